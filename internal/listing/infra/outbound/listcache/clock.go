package listcache

import "time"

// Clock abstrae el tiempo para poder sondear con un reloj manual en tests.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker es la parte de *time.Ticker que usa el sondeo.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// SystemClock usa el reloj del proceso.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }
