package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ponder/internal/domain"
)

func TestScoreUpdaterFunc(t *testing.T) {
	var _ ScoreUpdater = ScoreUpdaterFunc(nil)

	var gotOwner domain.Entity
	f := ScoreUpdaterFunc(func(owner domain.Entity, _ domain.ScoreReader) (domain.Score, error) {
		gotOwner = owner
		return domain.Score{Value: 0.25, Weight: 1}, nil
	})

	s, err := f.Update(domain.Entity(4), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Entity(4), gotOwner)
	assert.Equal(t, domain.Score{Value: 0.25, Weight: 1}, s)
}

func TestInputFunc(t *testing.T) {
	var _ InputSource = InputFunc(nil)

	src := InputFunc(func(owner domain.Entity, name string) (float64, bool) {
		if name == "hunger" {
			return float64(owner) / 10, true
		}
		return 0, false
	})

	v, ok := src.Input(domain.Entity(3), "hunger")
	assert.True(t, ok)
	assert.InDelta(t, 0.3, v, 1e-9)

	_, ok = src.Input(domain.Entity(3), "thirst")
	assert.False(t, ok)
}
