package signals

import (
	"math"
)

// Indicator series are aligned with their input. Positions before the
// warm-up period completes hold NaN.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// rollingMean is the simple moving average over window bars
func rollingMean(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if window <= 0 {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// emaAdjusted is the bias-corrected exponential mean with alpha 2/(span+1),
// weighting every observation from the start of the series.
func emaAdjusted(values []float64, span int) []float64 {
	out := nanSeries(len(values))
	alpha := 2.0 / float64(span+1)
	num, den := 0.0, 0.0
	for i, v := range values {
		num = v + (1-alpha)*num
		den = 1 + (1-alpha)*den
		out[i] = num / den
	}
	return out
}

// emaRecursive seeds with the first valid value and applies y = a*x + (1-a)*y.
// Leading NaNs are skipped; output is NaN until minPeriods valid values have been seen.
func emaRecursive(values []float64, alpha float64, minPeriods int) []float64 {
	out := nanSeries(len(values))
	seen := 0
	var y float64
	for i, v := range values {
		if !valid(v) {
			continue
		}
		if seen == 0 {
			y = v
		} else {
			y = alpha*v + (1-alpha)*y
		}
		seen++
		if seen >= minPeriods {
			out[i] = y
		}
	}
	return out
}

// rsi is the Wilder relative strength index
func rsi(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if len(values) < 2 {
		return out
	}
	up := nanSeries(len(values))
	down := nanSeries(len(values))
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		up[i] = math.Max(d, 0)
		down[i] = math.Max(-d, 0)
	}
	alpha := 1.0 / float64(window)
	emaUp := emaRecursive(up, alpha, window)
	emaDown := emaRecursive(down, alpha, window)
	for i := range values {
		if !valid(emaUp[i]) || !valid(emaDown[i]) {
			continue
		}
		if emaDown[i] == 0 {
			out[i] = 100
			continue
		}
		rs := emaUp[i] / emaDown[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// macd returns the MACD line, signal line and histogram
func macd(values []float64, fast, slow, signal int) (line, sig, hist []float64) {
	emaFast := emaRecursive(values, 2.0/float64(fast+1), fast)
	emaSlow := emaRecursive(values, 2.0/float64(slow+1), slow)
	line = nanSeries(len(values))
	for i := range values {
		if valid(emaFast[i]) && valid(emaSlow[i]) {
			line[i] = emaFast[i] - emaSlow[i]
		}
	}
	sig = emaRecursive(line, 2.0/float64(signal+1), signal)
	hist = nanSeries(len(values))
	for i := range values {
		if valid(line[i]) && valid(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}
	return line, sig, hist
}

// stochastic returns %K over window bars and %D as its smooth-bar mean
func stochastic(high, low, closing []float64, window, smooth int) (k, d []float64) {
	n := len(closing)
	k = nanSeries(n)
	for i := window - 1; i < n; i++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for j := i - window + 1; j <= i; j++ {
			lo = math.Min(lo, low[j])
			hi = math.Max(hi, high[j])
		}
		if hi-lo == 0 {
			continue
		}
		k[i] = 100 * (closing[i] - lo) / (hi - lo)
	}
	d = nanSeries(n)
	for i := smooth - 1; i < n; i++ {
		sum := 0.0
		ok := true
		for j := i - smooth + 1; j <= i; j++ {
			if !valid(k[j]) {
				ok = false
				break
			}
			sum += k[j]
		}
		if ok {
			d[i] = sum / float64(smooth)
		}
	}
	return k, d
}

// adx is the Wilder average directional index
func adx(high, low, closing []float64, window int) []float64 {
	n := len(closing)
	out := nanSeries(n)
	if n < 2*window+1 {
		return out
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-closing[i-1]), math.Abs(low[i]-closing[i-1])))
		upMove := high[i] - high[i-1]
		downMove := low[i-1] - low[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	var trS, plusS, minusS float64
	for i := 1; i <= window; i++ {
		trS += tr[i]
		plusS += plusDM[i]
		minusS += minusDM[i]
	}

	dx := nanSeries(n)
	w := float64(window)
	for i := window; i < n; i++ {
		if i > window {
			trS = trS - trS/w + tr[i]
			plusS = plusS - plusS/w + plusDM[i]
			minusS = minusS - minusS/w + minusDM[i]
		}
		if trS == 0 {
			continue
		}
		plusDI := 100 * plusS / trS
		minusDI := 100 * minusS / trS
		if plusDI+minusDI == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	first := 2*window - 1
	sum := 0.0
	count := 0
	for i := window; i <= first; i++ {
		if valid(dx[i]) {
			sum += dx[i]
			count++
		}
	}
	if count == 0 {
		return out
	}
	prev := sum / float64(count)
	out[first] = prev
	for i := first + 1; i < n; i++ {
		if valid(dx[i]) {
			prev = (prev*(w-1) + dx[i]) / w
		}
		out[i] = prev
	}
	return out
}
