// Package configstore implements the Agent Controller's config contract
// (spec.md §4.2 "Config validation", §6 "Config keys"): a typed snapshot of
// the user-tunable settings, validation rules, and a live-reload contract
// over a key/value backend (configuration storage itself is an out-of-scope
// collaborator per spec.md §1; this package defines the reader contract and
// a concrete file-backed implementation for local/manual exercising).
package configstore

import (
	"github.com/itsneelabh/agentctl/aiclient"
	"github.com/itsneelabh/agentctl/core"
)

// Config is the typed snapshot of every key listed in spec.md §6 "Config
// keys".
type Config struct {
	MaxOps                 int
	MaxNoops               int
	MaxFailures            int
	MaxFailureOrNoopStreak int

	MonitorMode          bool
	AutoMonitorThreshold core.Severity

	AIProviderType aiclient.Provider
	EULAAccepted   bool

	// APIKeys holds one key per provider, keyed by Provider so a provider
	// switch can reuse a previously supplied key without re-prompting.
	APIKeys map[aiclient.Provider]string
}

// Clone returns a deep copy suitable for Task.ConfigSnapshot (spec.md §4.2:
// "snapshot config" at start-task time; §3: "Task.ConfigSnapshot is a deep
// copy").
func (c Config) Clone() Config {
	out := c
	out.APIKeys = make(map[aiclient.Provider]string, len(c.APIKeys))
	for k, v := range c.APIKeys {
		out.APIKeys[k] = v
	}
	return out
}

// Limits projects the counter-guard-relevant fields out of Config, matching
// the core.Limits shape core.NewTask expects as its snapshot.
func (c Config) Limits() core.Limits {
	return core.Limits{
		MaxOps:                 c.MaxOps,
		MaxNoops:               c.MaxNoops,
		MaxFailures:            c.MaxFailures,
		MaxFailureOrNoopStreak: c.MaxFailureOrNoopStreak,
		AutoMonitorThreshold:   c.AutoMonitorThreshold,
	}
}

// DefaultConfig returns the baseline settings a fresh install starts from.
// Limits are deliberately conservative; EULA and monitor mode default to the
// safest posture (monitor on, EULA not yet accepted).
func DefaultConfig() Config {
	return Config{
		MaxOps:                 50,
		MaxNoops:               10,
		MaxFailures:            5,
		MaxFailureOrNoopStreak: 5,
		MonitorMode:            true,
		AutoMonitorThreshold:   core.SeverityMedium,
		AIProviderType:         aiclient.ProviderOpenAI,
		EULAAccepted:           false,
		APIKeys:                map[aiclient.Provider]string{},
	}
}
