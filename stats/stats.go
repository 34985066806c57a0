package stats

import "math"

// Summary holds single-pass intensity statistics. Non-finite samples are
// skipped and counted separately.
type Summary struct {
	Count     int
	NonFinite int
	Mean      float64
	RMS       float64
	Max       float64
	MaxPos    int
	Min       float64
	MinPos    int
	Peak      float64 // max(|max|, |min|)
	Range     float64 // max - min
	Variance  float64
	StdDev    float64
	Skewness  float64
	Kurtosis  float64
}

// Calculate computes all statistics in a single pass using Welford's online
// algorithm for numerical stability on the higher-order moments.
func Calculate(data []float64) Summary {
	var (
		mean float64
		m2   float64
		m3   float64
		m4   float64
	)

	var (
		sumSq     float64
		maxVal    = math.Inf(-1)
		maxPos    int
		minVal    = math.Inf(1)
		minPos    int
		count     int
		nonFinite int
	)

	for i, x := range data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			nonFinite++
			continue
		}
		count++

		ni := float64(count)
		delta := x - mean
		deltaN := delta / ni
		deltaN2 := deltaN * deltaN
		term1 := delta * deltaN * (ni - 1)

		// M4 must be updated before M3, and M3 before M2.
		m4 += term1*deltaN2*(ni*ni-3*ni+3) + 6*deltaN2*m2 - 4*deltaN*m3
		m3 += term1*deltaN*(ni-2) - 3*deltaN*m2
		m2 += term1
		mean += deltaN

		sumSq += x * x

		if x > maxVal {
			maxVal = x
			maxPos = i
		}
		if x < minVal {
			minVal = x
			minPos = i
		}
	}

	if count == 0 {
		return Summary{NonFinite: nonFinite}
	}

	nf := float64(count)
	variance := m2 / nf

	var skewness, kurtosis float64
	if variance > 0 {
		skewness = (m3 / nf) / (variance * math.Sqrt(variance))
		kurtosis = (m4/nf)/(variance*variance) - 3
	}

	return Summary{
		Count:     count,
		NonFinite: nonFinite,
		Mean:      mean,
		RMS:       math.Sqrt(sumSq / nf),
		Max:       maxVal,
		MaxPos:    maxPos,
		Min:       minVal,
		MinPos:    minPos,
		Peak:      math.Max(math.Abs(maxVal), math.Abs(minVal)),
		Range:     maxVal - minVal,
		Variance:  variance,
		StdDev:    math.Sqrt(variance),
		Skewness:  skewness,
		Kurtosis:  kurtosis,
	}
}
