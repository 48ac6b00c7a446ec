package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_Delay(t *testing.T) {
	t.Parallel()

	noJitter := func() float64 { return 0 }

	t.Run("exponential growth from base delay", func(t *testing.T) {
		t.Parallel()

		b := Backoff{BaseDelay: 60 * time.Second, MaxDelay: 600 * time.Second, jitter: noJitter}

		assert.Equal(t, 60*time.Second, b.Delay(0))
		assert.Equal(t, 120*time.Second, b.Delay(1))
		assert.Equal(t, 240*time.Second, b.Delay(2))
	})

	t.Run("capped at max delay", func(t *testing.T) {
		t.Parallel()

		b := Backoff{BaseDelay: 60 * time.Second, MaxDelay: 600 * time.Second, jitter: noJitter}

		assert.Equal(t, 480*time.Second, b.Delay(3))
		assert.Equal(t, 600*time.Second, b.Delay(4))
		assert.Equal(t, 600*time.Second, b.Delay(20))
	})

	t.Run("jitter adds less than one full delay", func(t *testing.T) {
		t.Parallel()

		almostOne := func() float64 { return 0.999 }
		b := Backoff{BaseDelay: 60 * time.Second, MaxDelay: 600 * time.Second, jitter: almostOne}

		delay := b.Delay(0)
		assert.GreaterOrEqual(t, delay, 60*time.Second)
		assert.Less(t, delay, 120*time.Second)
	})

	t.Run("random jitter stays within bounds", func(t *testing.T) {
		t.Parallel()

		b := DefaultBackoff()
		for i := 0; i < 50; i++ {
			delay := b.Delay(1)
			assert.GreaterOrEqual(t, delay, 120*time.Second)
			assert.Less(t, delay, 240*time.Second)
		}
	})

	t.Run("zero-value policy falls back to defaults", func(t *testing.T) {
		t.Parallel()

		var b Backoff
		delay := b.Delay(0)
		assert.GreaterOrEqual(t, delay, 60*time.Second)
		assert.Less(t, delay, 120*time.Second)
	})
}
