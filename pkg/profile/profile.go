// Package profile aggregates chosen-answer trait scores into a moral profile.
package profile

import (
	"fmt"
	"math"
	"sort"

	"moral-torture-machine/internal/models"
)

// FullMarkFactor scales the highest average to the chart's outer ring.
const FullMarkFactor = 1.2

// Profile maps a trait name to its average score.
type Profile map[string]float64

// ChartPoint is one axis of the profile chart.
type ChartPoint struct {
	Trait    string  `json:"trait"`
	Value    float64 `json:"value"`
	FullMark float64 `json:"fullMark"`
}

// Average returns the per-trait mean of answers.
func Average(answers []models.TraitVector) (Profile, error) {
	maps := make([]map[string]float64, 0, len(answers))
	for _, a := range answers {
		maps = append(maps, a.Map())
	}
	return AverageMap(maps)
}

// AverageMap averages free-form trait maps. Each trait is divided by the
// number of answers, so a trait missing from some answers counts as 0 there.
// Scores so large that an average overflows are rejected with ErrInvalidInput.
func AverageMap(answers []map[string]float64) (Profile, error) {
	if len(answers) == 0 {
		return nil, models.ErrNoAnswers
	}
	sums := make(map[string]float64)
	for _, a := range answers {
		for trait, v := range a {
			sums[trait] += v
		}
	}
	n := float64(len(answers))
	p := make(Profile, len(sums))
	for trait, sum := range sums {
		avg := sum / n
		if math.IsInf(avg, 0) || math.IsNaN(avg) {
			return nil, fmt.Errorf("%w: average of %s is not a finite number", models.ErrInvalidInput, trait)
		}
		p[trait] = avg
	}
	return p, nil
}

// Rounded returns a copy with every value rounded to 2 decimals.
func (p Profile) Rounded() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = Round2(v)
	}
	return out
}

// Keys lists the traits in chart order: known traits first, then the rest sorted.
func (p Profile) Keys() []string {
	keys := make([]string, 0, len(p))
	known := make(map[string]bool, len(models.Traits))
	for _, t := range models.Traits {
		known[t] = true
		if _, ok := p[t]; ok {
			keys = append(keys, t)
		}
	}
	var extra []string
	for k := range p {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// ChartData returns one point per trait. FullMark is the max average times 1.2.
func ChartData(p Profile) []ChartPoint {
	keys := p.Keys()
	if len(keys) == 0 {
		return nil
	}
	maxVal := math.Inf(-1)
	for _, k := range keys {
		maxVal = math.Max(maxVal, p[k])
	}
	full := Round2(maxVal * FullMarkFactor)
	points := make([]ChartPoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, ChartPoint{Trait: k, Value: Round2(p[k]), FullMark: full})
	}
	return points
}

// Dominant returns the highest scoring trait. Ties go to the earlier trait in chart order.
func Dominant(p Profile) (string, float64) {
	var (
		best    string
		bestVal = math.Inf(-1)
	)
	for _, k := range p.Keys() {
		if p[k] > bestVal {
			best, bestVal = k, p[k]
		}
	}
	if best == "" {
		return "", 0
	}
	return best, bestVal
}

// Round2 rounds half away from zero to 2 decimals.
func Round2(v float64) float64 {
	scaled := v * 100
	if math.IsInf(scaled, 0) {
		// Too large to carry a fractional part.
		return v
	}
	return math.Round(scaled) / 100
}
