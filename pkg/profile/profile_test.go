package profile

import (
	"math"
	"testing"

	"moral-torture-machine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverage(t *testing.T) {
	answers := []models.TraitVector{
		{Empathy: 1, Integrity: 2, Responsibility: 3, Justice: 4, Altruism: 5, Honesty: 6},
		{Empathy: 3, Integrity: 2, Responsibility: 1, Justice: 0, Altruism: 5, Honesty: 7},
	}
	p, err := Average(answers)
	require.NoError(t, err)
	assert.Equal(t, 2.0, p[models.TraitEmpathy])
	assert.Equal(t, 2.0, p[models.TraitIntegrity])
	assert.Equal(t, 2.0, p[models.TraitJustice])
	assert.Equal(t, 5.0, p[models.TraitAltruism])
	assert.Equal(t, 6.5, p[models.TraitHonesty])
}

func TestAverage_Empty(t *testing.T) {
	_, err := Average(nil)
	assert.ErrorIs(t, err, models.ErrNoAnswers)
}

func TestAverageMap_MissingKeysCountAsZero(t *testing.T) {
	p, err := AverageMap([]map[string]float64{
		{"Empathy": 3, "Courage": 1},
		{"Empathy": 1},
		{"Empathy": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, p["Empathy"])
	assert.InDelta(t, 0.3333, p["Courage"], 0.0001)
	assert.Equal(t, 0.33, p.Rounded()["Courage"])
}

func TestAverageMap_RejectsOverflow(t *testing.T) {
	_, err := AverageMap([]map[string]float64{
		{"Empathy": 1, "Justice": math.MaxFloat64},
		{"Empathy": 2, "Justice": math.MaxFloat64},
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.ErrorContains(t, err, "Justice")

	_, err = AverageMap([]map[string]float64{{"Honesty": -math.MaxFloat64}, {"Honesty": -math.MaxFloat64}})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	p, err := AverageMap([]map[string]float64{{"Honesty": math.MaxFloat64}})
	require.NoError(t, err)
	assert.Equal(t, math.MaxFloat64, p["Honesty"])
}

func TestChartData(t *testing.T) {
	p := Profile{"Honesty": 5, "Empathy": 2.556, "Zeal": 1}
	points := ChartData(p)
	require.Len(t, points, 3)

	assert.Equal(t, "Empathy", points[0].Trait)
	assert.Equal(t, 2.56, points[0].Value)
	assert.Equal(t, "Honesty", points[1].Trait)
	assert.Equal(t, "Zeal", points[2].Trait)
	for _, pt := range points {
		assert.Equal(t, 6.0, pt.FullMark)
	}
	assert.Nil(t, ChartData(Profile{}))
}

func TestDominant(t *testing.T) {
	trait, v := Dominant(Profile{"Justice": 4, "Empathy": 4, "Honesty": 1})
	assert.Equal(t, "Empathy", trait)
	assert.Equal(t, 4.0, v)

	trait, v = Dominant(nil)
	assert.Empty(t, trait)
	assert.Zero(t, v)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.24, Round2(1.235000001))
	assert.Equal(t, -1.5, Round2(-1.499999))
	assert.Equal(t, 3.0, Round2(3))
	assert.Equal(t, math.MaxFloat64, Round2(math.MaxFloat64))
	assert.Equal(t, -math.MaxFloat64, Round2(-math.MaxFloat64))
}
