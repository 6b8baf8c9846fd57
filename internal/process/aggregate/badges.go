package aggregate

import "github.com/lueurxax/sentiment-dashboard/internal/core/domain"

// Badge ids.
const (
	BadgeAnalyzer     = "analyzer"
	BadgeSharpshooter = "sharpshooter"
	BadgeBatchMaster  = "batch_master"
)

type badgeRule struct {
	id          string
	name        string
	description string
	threshold   float64
	metric      func(domain.RunningStats) float64
}

// badgeRules is the fixed badge table. A badge unlocks when its metric
// reaches the threshold.
var badgeRules = []badgeRule{
	{
		id:          BadgeAnalyzer,
		name:        "Analyzer",
		description: "Process 100 texts",
		threshold:   100,
		metric:      func(s domain.RunningStats) float64 { return float64(s.TextsProcessed) },
	},
	{
		id:          BadgeSharpshooter,
		name:        "Sharpshooter",
		description: ">80% avg confidence",
		threshold:   0.8,
		metric:      func(s domain.RunningStats) float64 { return s.AverageConfidence },
	},
	{
		id:          BadgeBatchMaster,
		name:        "Batch Master",
		description: "Complete 10 batches",
		threshold:   10,
		metric:      func(s domain.RunningStats) float64 { return float64(s.BatchesCompleted) },
	},
}

// Badges evaluates every badge against stats.
func Badges(stats domain.RunningStats) []domain.Badge {
	badges := make([]domain.Badge, 0, len(badgeRules))

	for _, rule := range badgeRules {
		value := rule.metric(stats)

		progress := value / rule.threshold
		switch {
		case progress < 0:
			progress = 0
		case progress > 1:
			progress = 1
		}

		badges = append(badges, domain.Badge{
			ID:          rule.id,
			Name:        rule.name,
			Description: rule.description,
			Threshold:   rule.threshold,
			Progress:    progress,
			Unlocked:    value >= rule.threshold,
		})
	}

	return badges
}
