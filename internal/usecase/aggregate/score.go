package aggregate

import "github.com/kailas-cloud/metasearch/internal/domain/result"

// score computes the ranking score of a merged result.
// weight = product of engine weights * number of positions;
// score = sum over positions of weight/position (0 for low priority,
// weight for high priority).
func score(r *result.Result, priority result.Priority, weightOf func(string) float64) float64 {
	weight := 1.0
	for _, name := range r.Engines.Sorted() {
		weight *= weightOf(name)
	}
	weight *= float64(len(r.Positions))

	var s float64
	for _, pos := range r.Positions {
		switch priority {
		case result.PriorityLow:
			continue
		case result.PriorityHigh:
			s += weight
		default:
			s += weight / float64(pos)
		}
	}
	return s
}
