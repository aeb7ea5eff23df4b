package bus

import "context"

// Keyer lo implementan los eventos que eligen su clave de partición.
type Keyer interface {
	PartitionKey() string
}

// EventBus publica un evento. El topic y el formato del payload los decide el adapter.
type EventBus interface {
	Publish(ctx context.Context, event interface{}) error
}

// Subscriber entrega en proceso los eventos publicados, ya serializados a []byte.
type Subscriber interface {
	Subscribe(bufferSize int) <-chan interface{}
}
