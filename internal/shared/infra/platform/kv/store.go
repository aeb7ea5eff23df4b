package kv

import (
	"context"
	"errors"
)

// ErrCorrupt indica que el valor guardado existe pero no se pudo deserializar.
var ErrCorrupt = errors.New("kv: corrupt value")

// Store define la interfaz para un almacén clave-valor genérico con valores JSON.
type Store interface {
	// Get intenta poblar 'dest' (que debe ser un puntero) con el valor asociado a la 'key'.
	// Devuelve (true, nil) si hay un 'hit' y 'dest' fue rellenado.
	// Devuelve (false, nil) si es un 'miss'.
	// Devuelve (false, ErrCorrupt envuelto) si el valor existe pero no es JSON válido para 'dest'.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set serializa y guarda el valor. ttlSecs <= 0 significa sin expiración.
	Set(ctx context.Context, key string, val interface{}, ttlSecs int) error

	// Delete elimina la 'key' del almacén.
	Delete(ctx context.Context, key string) error
}
