package billing

import "log/slog"

// Block reasons returned by Policy.Check.
const (
	ReasonChannelDisabled = "channel_disabled"
	ReasonNoCredits       = "no_credits"
)

// Policy decides whether an entitlement violation blocks the pipeline. Both
// enforcement flags default to off: the pipeline logs a warning and proceeds
// on a disabled channel or an exhausted balance.
type Policy struct {
	EnforceChannelEnabled bool
	EnforceCredits        bool
	logger                *slog.Logger
}

// NewPolicy creates the entitlement policy from the configured toggles.
func NewPolicy(log *slog.Logger, enforceChannel, enforceCredits bool) Policy {
	if log == nil {
		log = slog.Default()
	}
	return Policy{
		EnforceChannelEnabled: enforceChannel,
		EnforceCredits:        enforceCredits,
		logger:                log.With(slog.String("service", "billing_policy")),
	}
}

// Check evaluates the tenant snapshot. When a violation is not enforced it is
// logged and allowed through; when enforced, the block reason is returned.
func (p Policy) Check(channelEnabled bool, credits int) (bool, string) {
	if !channelEnabled {
		if p.EnforceChannelEnabled {
			return false, ReasonChannelDisabled
		}
		p.logger.Warn("channel disabled for tenant, proceeding under permissive policy")
	}
	if credits <= 0 {
		if p.EnforceCredits {
			return false, ReasonNoCredits
		}
		p.logger.Warn("tenant has no credits, proceeding under permissive policy",
			slog.Int("credits", credits),
		)
	}
	return true, ""
}
