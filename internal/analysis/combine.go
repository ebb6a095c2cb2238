package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Total sums every per-arbor value.
func Total(apical, axon, basal []float64) float64 {
	return floats.Sum(concat(apical, axon, basal))
}

// Minimum returns the smallest per-arbor value, 0 when there is none.
func Minimum(apical, axon, basal []float64) float64 {
	return minOf(concat(apical, axon, basal))
}

// Maximum returns the largest per-arbor value, 0 when there is none.
func Maximum(apical, axon, basal []float64) float64 {
	return maxOf(concat(apical, axon, basal))
}

// Average returns the mean of the per-arbor values, 0 when there is none.
func Average(apical, axon, basal []float64) float64 {
	return meanOf(concat(apical, axon, basal))
}

// MinimumIgnoreZero is Minimum over the non-zero values only.
func MinimumIgnoreZero(apical, axon, basal []float64) float64 {
	return minOf(nonZero(concat(apical, axon, basal)))
}

// MaximumIgnoreZero is Maximum over the non-zero values only.
func MaximumIgnoreZero(apical, axon, basal []float64) float64 {
	return maxOf(nonZero(concat(apical, axon, basal)))
}

// AverageIgnoreZero is Average over the non-zero values only.
func AverageIgnoreZero(apical, axon, basal []float64) float64 {
	return meanOf(nonZero(concat(apical, axon, basal)))
}

func concat(lists ...[]float64) []float64 {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]float64, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func nonZero(values []float64) []float64 {
	out := values[:0:0]
	for _, v := range values {
		if v != 0 {
			out = append(out, v)
		}
	}
	return out
}

// floats.Min and floats.Max panic on empty input.
func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Min(values)
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Max(values)
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

func sumOf(values []float64) float64 {
	return floats.Sum(values)
}
