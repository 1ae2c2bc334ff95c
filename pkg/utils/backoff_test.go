package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffGrowsExponentially(t *testing.T) {
	base := 2 * time.Second
	max := 5 * time.Minute

	for count := 1; count <= 5; count++ {
		expected := base * time.Duration(1<<(count-1))
		lower := expected - expected/8
		upper := expected + expected/8

		for i := 0; i < 50; i++ {
			delay := CalculateExponentialBackoffWithJitter(count, base, max)
			assert.GreaterOrEqual(t, delay, lower, "count %d", count)
			assert.LessOrEqual(t, delay, upper, "count %d", count)
		}
	}
}

func TestBackoffCapsAtMax(t *testing.T) {
	max := 10 * time.Second
	delay := CalculateExponentialBackoffWithJitter(10, 2*time.Second, max)
	assert.Equal(t, max, delay)
}

func TestBackoffZeroForNonPositiveCount(t *testing.T) {
	assert.Zero(t, CalculateExponentialBackoffWithJitter(0, time.Second, time.Minute))
	assert.Zero(t, CalculateExponentialBackoffWithJitter(-1, time.Second, time.Minute))
}
