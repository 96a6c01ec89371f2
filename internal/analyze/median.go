package analyze

import "sort"

// median returns the middle value of values. For an even count it linearly
// interpolates: the mean of the two middle values after sorting. The input
// slice is not modified. Callers must not pass an empty slice.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
