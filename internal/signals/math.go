package signals

import (
	"math"

	"github.com/ternarybob/indepth/internal/models"
)

// round rounds to specified decimal places
func round(value float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(value*mult) / mult
}

// minFloat returns the minimum of two float64 values
func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// avg calculates the average of all values
func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// pctChange calculates the percentage change from old to new
func pctChange(old, newVal float64) float64 {
	if old == 0 {
		return 0
	}
	return ((newVal - old) / old) * 100
}

// periodReturn is the percent change over the last n bars, measured from
// the close n bars back. Nil when fewer than n bars exist or the start is zero.
func periodReturn(closes []float64, n int) *float64 {
	if n <= 0 || len(closes) < n {
		return nil
	}
	start := closes[len(closes)-n]
	if start == 0 {
		return nil
	}
	r := pctChange(start, closes[len(closes)-1])
	return &r
}

// diff returns a-b when both are present
func diff(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := *a - *b
	return &d
}

// pearson returns the sample correlation of two equal-length series
func pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return math.NaN()
	}
	mx, my := avg(x), avg(y)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	return sxy / math.Sqrt(sxx*syy)
}

// valid reports whether v is a usable number
func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// last returns a pointer to the final value of a series, nil when missing
func last(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if !valid(v) {
		return nil
	}
	return &v
}

// truthy reports whether a pointer holds a non-zero value
func truthy(v *float64) bool {
	return v != nil && *v != 0
}

func closes(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
