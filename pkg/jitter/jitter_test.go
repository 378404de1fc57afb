package jitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoffBounds(t *testing.T) {
	cases := []struct {
		attempt int
		min     time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{10, time.Second},
	}

	for _, tc := range cases {
		for i := 0; i < 20; i++ {
			d := ExponentialBackoff(100*time.Millisecond, time.Second, tc.attempt, DefaultJitter)
			assert.GreaterOrEqual(t, d, tc.min)
			assert.LessOrEqual(t, d, time.Duration(float64(tc.min)*(1+DefaultJitter)))
		}
	}
}

func TestDurationWithoutJitter(t *testing.T) {
	assert.Equal(t, time.Second, Duration(time.Second, 0))
	assert.Equal(t, time.Duration(0), Duration(0, DefaultJitter))
}
