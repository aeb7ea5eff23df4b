package domain

import "context"

// ---------- Interfaces (Ports) ----------

// Fetcher resuelve un descriptor contra el backend. Debe ser idempotente y sin efectos.
type Fetcher[T any] func(ctx context.Context, desc RequestDescriptor) (*Page[T], error)

// Invalidatable es cualquier caché que sabe invalidar por tag.
type Invalidatable interface {
	// Invalidate marca como obsoletas las entradas con alguno de los tags y devuelve cuántas.
	Invalidate(tags ...string) int
}

// PageSizeStore guarda el tamaño de página elegido por tabla. Nunca falla hacia fuera.
type PageSizeStore interface {
	Get(ctx context.Context, tableID string) (int, bool)
	Set(ctx context.Context, tableID string, size int)
}
