package ensemble

import "math"

// minSamples is the sample floor for the rolling statistics: at least 10
// paired observations, and never more than 200 even for huge windows, so a
// long window does not keep the statistic pinned to neutral forever.
func minSamples(window int) int {
	n := window
	if n > 200 {
		n = 200
	}
	if n < 10 {
		n = 10
	}
	return n
}

// RollingCorrelation computes the Pearson correlation over the last
// `window` paired samples. It returns 0.0 (neutral) when fewer than the
// minimum finite paired samples are available or either side has zero
// variance; early in a run there is simply not enough history.
func RollingCorrelation(predicted, realized []float64, window int) float64 {
	n := len(predicted)
	if len(realized) < n {
		n = len(realized)
	}
	if n > window {
		predicted = predicted[len(predicted)-window:]
		realized = realized[len(realized)-window:]
		n = window
	} else {
		predicted = predicted[len(predicted)-n:]
		realized = realized[len(realized)-n:]
	}

	var xs, ys []float64
	for i := 0; i < n; i++ {
		if !finite(predicted[i]) || !finite(realized[i]) {
			continue
		}
		xs = append(xs, predicted[i])
		ys = append(ys, realized[i])
	}
	if len(xs) < minSamples(window) {
		return 0.0
	}

	mx := mean(xs)
	my := mean(ys)
	var cov, vx, vy float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0.0
	}
	r := cov / math.Sqrt(vx*vy)
	if !finite(r) {
		return 0.0
	}
	return r
}

// RollingVolatility computes the standard deviation over the last `window`
// finite samples. It returns 1.0 (neutral, avoids division amplification)
// when fewer than the minimum sample count is available.
func RollingVolatility(series []float64, window int) float64 {
	if len(series) > window {
		series = series[len(series)-window:]
	}
	var xs []float64
	for _, v := range series {
		if finite(v) {
			xs = append(xs, v)
		}
	}
	if len(xs) < minSamples(window) {
		return 1.0
	}
	m := mean(xs)
	var s2 float64
	for _, v := range xs {
		d := v - m
		s2 += d * d
	}
	sd := math.Sqrt(s2 / float64(len(xs)-1))
	if !finite(sd) {
		return 1.0
	}
	return sd
}

// BlendWeights converts per-source information coefficients and
// volatilities into a normalized weight vector: weight_i is proportional
// to exp(kappa*ic_i)/vol_i. A non-finite or non-positive normalizing sum
// falls back to a uniform distribution of the same length; the function
// never divides by zero and never returns NaN weights.
func BlendWeights(ic, vol []float64, kappa float64) []float64 {
	n := len(ic)
	if n == 0 {
		return nil
	}
	raw := make([]float64, n)
	sum := 0.0
	for i := 0; i < n; i++ {
		v := 1.0
		if i < len(vol) && finite(vol[i]) && vol[i] > 0 {
			v = vol[i]
		}
		c := 0.0
		if finite(ic[i]) {
			c = ic[i]
		}
		raw[i] = math.Exp(kappa*c) / v
		sum += raw[i]
	}
	if !finite(sum) || sum <= 0 {
		return uniform(n)
	}
	for i := range raw {
		raw[i] /= sum
		if !finite(raw[i]) || raw[i] < 0 {
			return uniform(n)
		}
	}
	return raw
}

func uniform(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

func mean(xs []float64) float64 {
	s := 0.0
	for _, v := range xs {
		s += v
	}
	return s / float64(len(xs))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
