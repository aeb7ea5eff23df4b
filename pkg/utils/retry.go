package utils

import (
	"context"
	"time"
)

// Retry llama a fn hasta attempts veces, esperando delay entre intentos.
// Devuelve nil al primer éxito, el último error si se agotan los intentos o
// ctx.Err() si el contexto termina durante una espera. Tras el último intento no espera.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return err
}
