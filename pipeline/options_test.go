package pipeline

import "testing"

func TestOptionName_RoundTrip(t *testing.T) {
	for i := 0; i <= maxOptionIndex; i++ {
		name, err := optionName(i)
		if err != nil {
			t.Fatalf("optionName(%d): %v", i, err)
		}
		got, err := parseOptionName(name)
		if err != nil {
			t.Fatalf("parseOptionName(%q): %v", name, err)
		}
		if got != i {
			t.Fatalf("round trip mismatch: optionName(%d)=%q, parseOptionName=%d", i, name, got)
		}
	}
}

func TestOptionName_OutOfRangeRaises(t *testing.T) {
	if _, err := optionName(maxOptionIndex + 1); err == nil {
		t.Fatalf("expected optionName(%d) to raise", maxOptionIndex+1)
	}
}

func TestOptionName_Boundaries(t *testing.T) {
	cases := map[int]string{0: "A", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ"}
	for i, want := range cases {
		got, err := optionName(i)
		if err != nil {
			t.Fatalf("optionName(%d): %v", i, err)
		}
		if got != want {
			t.Fatalf("optionName(%d) = %q, want %q", i, got, want)
		}
	}
}
