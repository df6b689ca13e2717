package policy

import "fmt"

// Tier is a coarse relationship-strength label driving a scoring multiplier.
type Tier string

const (
	TierEngaged Tier = "engaged"
	TierMonitor Tier = "monitor"
	TierNoise   Tier = "noise"
)

// TierConfig holds classification thresholds and multiplier overrides.
type TierConfig struct {
	EngagedThreshold int
	MinimumActivity  int
	Multipliers      map[Tier]float64
}

// DefaultTierConfig returns the stock thresholds and multipliers.
func DefaultTierConfig() TierConfig {
	return TierConfig{
		EngagedThreshold: 1,
		MinimumActivity:  3,
	}
}

var defaultMultipliers = map[Tier]float64{
	TierEngaged: 1.0,
	TierMonitor: 0.5,
	TierNoise:   0.1,
}

// TierMetadata is the classification outcome.
type TierMetadata struct {
	Tier       Tier    `json:"tier"`
	Reason     string  `json:"reason"`
	Multiplier float64 `json:"multiplier"`
}

// Classify labels a relationship from its outbound/inbound counts. A pure,
// total function: any sent message at or above the engaged threshold wins
// regardless of inbound volume.
func Classify(outbound, inbound int, cfg TierConfig) TierMetadata {
	if cfg.EngagedThreshold <= 0 {
		cfg.EngagedThreshold = 1
	}
	if cfg.MinimumActivity <= 0 {
		cfg.MinimumActivity = 3
	}

	switch {
	case outbound >= cfg.EngagedThreshold:
		return meta(TierEngaged, fmt.Sprintf("%d outbound messages", outbound), cfg)
	case outbound+inbound < cfg.MinimumActivity:
		return meta(TierNoise, fmt.Sprintf("only %d total messages", outbound+inbound), cfg)
	case inbound > 0 && outbound == 0:
		return meta(TierMonitor, fmt.Sprintf("%d inbound, never replied", inbound), cfg)
	default:
		// Reached when outbound is positive but below a raised engaged
		// threshold.
		return meta(TierNoise, fmt.Sprintf("%d outbound below engaged threshold", outbound), cfg)
	}
}

func meta(t Tier, reason string, cfg TierConfig) TierMetadata {
	multiplier := defaultMultipliers[t]
	if cfg.Multipliers != nil {
		if m, ok := cfg.Multipliers[t]; ok {
			multiplier = m
		}
	}
	return TierMetadata{Tier: t, Reason: reason, Multiplier: multiplier}
}
