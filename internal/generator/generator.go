// Package generator builds synthetic measurement samples.
package generator

import (
	"fmt"
	"math/rand"
	"time"
)

// Defaults reproduce the classic diameter demo: 100 parts around 0.546 with a
// spread of 0.019.
const (
	DefaultSeed  = 42
	DefaultMean  = 0.546
	DefaultSD    = 0.019
	DefaultCount = 100
)

// Generator produces normally distributed samples.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator whose output is reproducible for a seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Normal draws count values from N(mean, sd²).
func (g *Generator) Normal(mean, sd float64, count int) ([]float64, error) {
	if count < 0 {
		return nil, fmt.Errorf("count must not be negative, got %d", count)
	}
	if sd < 0 {
		return nil, fmt.Errorf("standard deviation must not be negative, got %v", sd)
	}
	result := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, mean+sd*g.rnd.NormFloat64())
	}
	return result, nil
}

// Categories labels count values round-robin with the given names.
func Categories(names []string, count int) []string {
	if len(names) == 0 {
		return nil
	}
	result := make([]string, count)
	for i := range result {
		result[i] = names[i%len(names)]
	}
	return result
}

// Shifted draws one group per name, moving the mean by shift for each
// subsequent group. It returns the values with matching categories.
func (g *Generator) Shifted(names []string, mean, sd, shift float64, perGroup int) ([]float64, []string, error) {
	var values []float64
	var cats []string
	for i, name := range names {
		group, err := g.Normal(mean+float64(i)*shift, sd, perGroup)
		if err != nil {
			return nil, nil, err
		}
		values = append(values, group...)
		for range group {
			cats = append(cats, name)
		}
	}
	return values, cats, nil
}
