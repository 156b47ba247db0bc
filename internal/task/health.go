package task

import (
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// HealthScore derives the 0-100 schedule-risk score. Pure function of its
// inputs; callers recompute it whenever any input changes instead of
// adjusting incrementally.
//
// Starts at 100. Overdue tasks lose min(40, daysOverdue*5); tasks due within
// 3 days at under 80% progress lose 20. A set blocker costs another 30.
func HealthScore(dueDate string, progress int, blocked bool, now time.Time) int {
	score := 100

	if dueDate != "" {
		if due, err := time.Parse(dateLayout, dueDate); err == nil {
			diffDays := int(math.Floor(due.Sub(now).Hours() / 24))
			if diffDays < 0 {
				penalty := -diffDays * 5
				if penalty > 40 {
					penalty = 40
				}
				score -= penalty
			} else if diffDays <= 3 && progress < 80 {
				score -= 20
			}
		}
	}
	if blocked {
		score -= 30
	}
	if score < 0 {
		score = 0
	}
	return score
}
