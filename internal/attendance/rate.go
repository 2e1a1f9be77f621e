package attendance

import "math"

// Rate returns round(100 × present / set) over the marks that are set.
// Unset marks count towards neither side; no set marks gives 0.
func Rate(marks []Mark) int {
	var present, considered int
	for _, mark := range marks {
		if !mark.Status.IsSet() {
			continue
		}
		considered++
		if mark.Status == StatusPresent {
			present++
		}
	}

	if considered == 0 {
		return 0
	}

	return int(math.Round(100 * float64(present) / float64(considered)))
}
