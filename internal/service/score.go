package service

import "math"

// ScorePercent is round(attemptPoint / total * 100), where total is
// totalPoint or, when unset, maxPoint. It is 0 when both are zero.
func ScorePercent(attemptPoint, totalPoint, maxPoint int) int {
	total := totalPoint
	if total <= 0 {
		total = maxPoint
	}
	if total <= 0 || attemptPoint <= 0 {
		return 0
	}
	return int(math.Round(float64(attemptPoint) / float64(total) * 100))
}
