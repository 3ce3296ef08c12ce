package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/agentctl/aiclient"
	"github.com/itsneelabh/agentctl/core"
	"github.com/itsneelabh/agentctl/limits"
	"github.com/itsneelabh/agentctl/screenshot"
	"github.com/itsneelabh/agentctl/store"
)

type scriptedClient struct {
	ground []*aiclient.GroundResponse
	calls  int
}

func (c *scriptedClient) Plan(context.Context, aiclient.Request) (*aiclient.PlanResponse, error) {
	return &aiclient.PlanResponse{Text: "plan"}, nil
}

func (c *scriptedClient) Ground(context.Context, aiclient.Request) (*aiclient.GroundResponse, error) {
	resp := c.ground[c.calls]
	if c.calls < len(c.ground)-1 {
		c.calls++
	}
	return resp, nil
}

func (c *scriptedClient) Judge(context.Context, aiclient.Request) (*aiclient.JudgeResponse, error) {
	return &aiclient.JudgeResponse{Severity: core.SeveritySafe}, nil
}

type fakeCapturer struct{}

func (fakeCapturer) Capture(context.Context) ([]byte, error) { return []byte("x"), nil }

func newTestPipeline(client aiclient.Client) *Pipeline {
	coord := screenshot.NewCoordinator(fakeCapturer{}, store.NewInMemoryScreenshotStore())
	guard := limits.New(nil)
	p := New(client, coord, guard)
	p.sleep = func(time.Duration) {}
	return p
}

func newTestTask() *core.Task {
	return core.NewTask("click the login button", "https://example.com", core.Limits{
		MaxOps: 10, MaxNoops: 10, MaxFailures: 10, MaxFailureOrNoopStreak: 10,
		AutoMonitorThreshold: core.SeverityMedium,
	})
}

// Scenario 1: happy path single click.
func TestPipeline_HappyPathSingleClick(t *testing.T) {
	client := &scriptedClient{ground: []*aiclient.GroundResponse{
		{ElementLetter: "A", Action: core.ActionClick, Explanation: "Clicking login"},
	}}
	p := newTestPipeline(client)
	task := newTestTask()

	state := core.PageState{
		Elements: []core.InteractiveElement{{Description: "Login", TagHead: "<button ", CenterX: 50, CenterY: 80}},
		Viewport: core.ViewportInfo{Width: 1024, Height: 768, PageScrollHeight: 768},
		URL:      "https://example.com",
	}

	result, err := p.RunPageStateRound(context.Background(), task, state, nil)
	require.NoError(t, err)
	require.Equal(t, RoundCommitted, result.Kind)
	require.NotNil(t, result.Pending.ElementIndex)
	require.Equal(t, 0, *result.Pending.ElementIndex)
	require.Equal(t, core.ActionClick, result.Pending.Action)
}

// Scenario 2: noop invalid element letter, then reprompt succeeds.
func TestPipeline_NoopInvalidElementLetterThenReprompt(t *testing.T) {
	client := &scriptedClient{ground: []*aiclient.GroundResponse{
		{ElementLetter: "Z", Action: core.ActionClick, Explanation: "bad letter"},
		{ElementLetter: "A", Action: core.ActionClick, Explanation: "Clicking login"},
	}}
	p := newTestPipeline(client)
	task := newTestTask()

	state := core.PageState{
		Elements: []core.InteractiveElement{{Description: "Login", CenterX: 50, CenterY: 80}},
		Viewport: core.ViewportInfo{Width: 1024, Height: 768, PageScrollHeight: 768},
	}

	result, err := p.RunPageStateRound(context.Background(), task, state, nil)
	require.NoError(t, err)
	require.Equal(t, RoundCommitted, result.Kind)
	require.Equal(t, 1, task.Counters.Noops)
	require.Equal(t, 1, len(task.ActionHistory))
	require.Equal(t, core.NoopInvalidElement, *task.ActionHistory[0].NoopReason)
}

// Scenario 3: nonsensical scroll.
func TestPipeline_NonsensicalScrollAtTop(t *testing.T) {
	client := &scriptedClient{ground: []*aiclient.GroundResponse{
		{Action: core.ActionScrollUp, Explanation: "scrolling up"},
		{Action: core.ActionTerminate, Explanation: "done"},
	}}
	p := newTestPipeline(client)
	task := newTestTask()

	state := core.PageState{
		Viewport: core.ViewportInfo{Width: 1024, Height: 768, ScrollY: 0, PageScrollHeight: 2000},
	}

	result, err := p.RunPageStateRound(context.Background(), task, state, nil)
	require.NoError(t, err)
	require.Equal(t, RoundTerminated, result.Kind)
	require.Equal(t, core.NoopNonsensicalScroll, *task.ActionHistory[0].NoopReason)
}

// Scenario 4: page still loading.
func TestPipeline_PageStillLoadingWaitsAndRefetches(t *testing.T) {
	client := &scriptedClient{ground: []*aiclient.GroundResponse{
		{Action: core.ActionNone, NoneOfTheAbove: true, Explanation: "page is still loading, please wait until it has finished"},
	}}
	p := newTestPipeline(client)
	task := newTestTask()

	state := core.PageState{Viewport: core.ViewportInfo{Width: 100, Height: 100}}

	result, err := p.RunPageStateRound(context.Background(), task, state, nil)
	require.NoError(t, err)
	require.Equal(t, RoundWaitAndRefetch, result.Kind)
	require.Equal(t, 0, task.Counters.Noops)
}

// Scenario: auto-monitor style element-requiring action with "none of the
// above" chosen is a distinct noop reason from an invalid letter.
func TestPipeline_NoneOfTheAboveForElementRequiringAction(t *testing.T) {
	client := &scriptedClient{ground: []*aiclient.GroundResponse{
		{NoneOfTheAbove: true, Action: core.ActionClick, Explanation: "none fits"},
		{ElementLetter: "A", Action: core.ActionClick, Explanation: "ok now"},
	}}
	p := newTestPipeline(client)
	task := newTestTask()

	state := core.PageState{
		Elements: []core.InteractiveElement{{Description: "Login", CenterX: 50, CenterY: 80}},
		Viewport: core.ViewportInfo{Width: 1024, Height: 768, PageScrollHeight: 768},
	}

	result, err := p.RunPageStateRound(context.Background(), task, state, nil)
	require.NoError(t, err)
	require.Equal(t, RoundCommitted, result.Kind)
	require.Equal(t, core.NoopActionIncompatibleWithNone, *task.ActionHistory[0].NoopReason)
}

// SetClient swaps the model client a running Pipeline uses, per spec.md
// §4.2's provider-change reconstruction.
func TestPipeline_SetClientSwapsModelClientForSubsequentRounds(t *testing.T) {
	first := &scriptedClient{ground: []*aiclient.GroundResponse{
		{ElementLetter: "A", Action: core.ActionClick, Explanation: "from first client"},
	}}
	p := newTestPipeline(first)

	second := &scriptedClient{ground: []*aiclient.GroundResponse{
		{ElementLetter: "A", Action: core.ActionClick, Explanation: "from second client"},
	}}
	p.SetClient(second)

	task := newTestTask()
	state := core.PageState{
		Elements: []core.InteractiveElement{{Description: "Login", CenterX: 50, CenterY: 80}},
		Viewport: core.ViewportInfo{Width: 1024, Height: 768, PageScrollHeight: 768},
	}

	result, err := p.RunPageStateRound(context.Background(), task, state, nil)
	require.NoError(t, err)
	require.Equal(t, RoundCommitted, result.Kind)
	require.Equal(t, "from second client", result.GroundingOutput)
}

func TestPipeline_NoopLimitBreachEndsRoundWithoutCommitting(t *testing.T) {
	client := &scriptedClient{ground: []*aiclient.GroundResponse{
		{ElementLetter: "Z", Action: core.ActionClick, Explanation: "bad letter"},
	}}
	p := newTestPipeline(client)
	task := newTestTask()
	task.ConfigSnapshot.MaxNoops = 0               // 0 disables the noop-count check; the streak limit below breaches instead
	task.ConfigSnapshot.MaxFailureOrNoopStreak = 1 // second consecutive noop: streak 2 > 1

	state := core.PageState{
		Elements: []core.InteractiveElement{{Description: "Login", CenterX: 50, CenterY: 80}},
		Viewport: core.ViewportInfo{Width: 1024, Height: 768, PageScrollHeight: 768},
	}

	result, err := p.RunPageStateRound(context.Background(), task, state, nil)
	require.NoError(t, err)
	require.Equal(t, RoundLimitBreached, result.Kind)
	require.NotNil(t, result.Breach)
}
