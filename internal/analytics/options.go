package analytics

import (
	"github.com/calebh/sift/internal/config"
	"github.com/calebh/sift/internal/policy"
)

// ThreadWeightsFromConfig maps the YAML scoring section onto formula
// weights. Zero-valued fields keep the package defaults.
func ThreadWeightsFromConfig(c config.ThreadWeights) ThreadWeights {
	return ThreadWeights{
		Outbound:     c.Outbound,
		Reciprocity:  c.Reciprocity,
		Recent:       c.Recent,
		Volume:       c.Volume,
		RecentDays:   c.RecentDays,
		HalfLifeDays: c.HalfLifeDays,
	}
}

func ContactWeightsFromConfig(c config.ContactWeights) ContactWeights {
	return ContactWeights{
		Outbound:  c.Outbound,
		Volume:    c.Volume,
		Recency:   c.Recency,
		Diversity: c.Diversity,
	}
}

func EmailWeightsFromConfig(c config.EmailWeights) EmailWeights {
	return EmailWeights{
		PerMessage:   c.PerMessage,
		Financial:    c.Financial,
		Urgency:      c.Urgency,
		Question:     c.Question,
		HalfLifeDays: c.HalfLifeDays,
	}
}

func TierConfigFromConfig(c config.TierThresholds) policy.TierConfig {
	cfg := policy.DefaultTierConfig()
	if c.EngagedThreshold > 0 {
		cfg.EngagedThreshold = c.EngagedThreshold
	}
	if c.MinimumActivity > 0 {
		cfg.MinimumActivity = c.MinimumActivity
	}
	return cfg
}
