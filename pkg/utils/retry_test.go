package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	t.Run("devuelve nil al primer éxito", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			if calls < 2 {
				return errors.New("aún no")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("devuelve el último error", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			return errors.New("caído")
		})
		assert.EqualError(t, err, "caído")
		assert.Equal(t, 3, calls)
	})

	t.Run("no espera tras el último intento", func(t *testing.T) {
		start := time.Now()
		err := Retry(context.Background(), 1, time.Hour, func() error { return errors.New("caído") })
		assert.EqualError(t, err, "caído")
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("sin intentos no llama a fn", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 0, time.Millisecond, func() error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Zero(t, calls)
	})

	t.Run("se corta con el contexto", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, 5, time.Hour, func() error { return errors.New("caído") })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
