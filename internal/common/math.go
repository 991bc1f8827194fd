package common

import "math"

// Round rounds to the given number of decimal places
func Round(value float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(value*mult) / mult
}
