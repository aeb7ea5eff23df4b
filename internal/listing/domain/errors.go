package domain

import (
	"errors"
	"fmt"
)

// ---------- Errores de dominio ----------
var (
	ErrTableNotFound   = errors.New("table not found")
	ErrSessionNotFound = errors.New("table session not found")
	ErrEntryNotFound   = errors.New("cache entry not found")
	ErrCacheClosed     = errors.New("list cache closed")
	ErrInvalidEvent    = errors.New("invalid event")
)

// FetchError describe una respuesta no exitosa del backend de listados.
type FetchError struct {
	Status int
	URL    string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("list fetch %s: unexpected status %d", e.URL, e.Status)
}
