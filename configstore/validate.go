package configstore

import (
	"fmt"

	"github.com/itsneelabh/agentctl/aiclient"
	"github.com/itsneelabh/agentctl/core"
)

// Update describes one proposed change to the live config, as observed from
// the backend (spec.md §6: "Changes are observed and re-validated live").
type Update struct {
	MaxOps                 *int
	MaxNoops                *int
	MaxFailures             *int
	MaxFailureOrNoopStreak *int
	MonitorMode             *bool
	AutoMonitorThreshold    *string
	AIProviderType          *string
	EULAAccepted            *bool
	APIKey                  *APIKeyUpdate
}

// APIKeyUpdate sets the stored API key for one provider.
type APIKeyUpdate struct {
	Provider aiclient.Provider
	Key      string
}

// Apply validates update against cur and returns the resulting Config.
// Per spec.md §4.2: "Integer limits ... must be positive; out-of-range
// values are logged and ignored (keeping the prior value). Auto-monitor
// threshold must be one of the severity names." Invalid fields are skipped
// individually rather than rejecting the whole update, and are reported
// through logger so the caller can surface a NOTIFICATION.
func Apply(logger core.Logger, cur Config, update Update) Config {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	next := cur.Clone()

	applyPositiveInt(logger, "maxOps", update.MaxOps, &next.MaxOps)
	applyPositiveInt(logger, "maxNoops", update.MaxNoops, &next.MaxNoops)
	applyPositiveInt(logger, "maxFailures", update.MaxFailures, &next.MaxFailures)
	applyPositiveInt(logger, "maxFailureOrNoopStreak", update.MaxFailureOrNoopStreak, &next.MaxFailureOrNoopStreak)

	if update.MonitorMode != nil {
		next.MonitorMode = *update.MonitorMode
	}

	if update.AutoMonitorThreshold != nil {
		if sev, ok := core.ParseSeverity(*update.AutoMonitorThreshold); ok {
			next.AutoMonitorThreshold = sev
		} else {
			logger.Warn(fmt.Sprintf("ignoring invalid autoMonitorThreshold %q, keeping %s", *update.AutoMonitorThreshold, next.AutoMonitorThreshold), nil)
		}
	}

	if update.EULAAccepted != nil {
		next.EULAAccepted = *update.EULAAccepted
	}

	if update.AIProviderType != nil {
		provider := aiclient.Provider(*update.AIProviderType)
		if provider != aiclient.ProviderOpenAI && provider != aiclient.ProviderBedrock {
			logger.Warn(fmt.Sprintf("ignoring unknown aiProviderType %q, keeping %s", *update.AIProviderType, next.AIProviderType), nil)
		} else if provider != next.AIProviderType {
			// Per spec.md §4.2: "An AI-provider change triggers
			// reconstruction of the engine with the stored API key." The
			// actual rebuild happens in the Store.OnChange callback
			// registered by cmd/agentctl wiring, which compares
			// prev.AIProviderType against next.AIProviderType.
			next.AIProviderType = provider
		}
	}

	if update.APIKey != nil {
		next.APIKeys[update.APIKey.Provider] = update.APIKey.Key
	}

	return next
}

func applyPositiveInt(logger core.Logger, name string, proposed *int, target *int) {
	if proposed == nil {
		return
	}
	if *proposed <= 0 {
		logger.Warn(fmt.Sprintf("ignoring out-of-range %s=%d, keeping %d", name, *proposed, *target), nil)
		return
	}
	*target = *proposed
}
