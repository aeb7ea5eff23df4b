package utils

import (
	"encoding/json"

	"go.uber.org/zap"
)

// UnmarshalAndHandle decodifica data en T y llama a handler. Un payload vacío es T cero.
// Devuelve false si el JSON no era válido (ya registrado en el log).
func UnmarshalAndHandle[T any](log *zap.Logger, data json.RawMessage, handler func(T)) bool {
	var evt T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &evt); err != nil {
			log.Warn("Failed to unmarshal event data", zap.Error(err))
			return false
		}
	}
	handler(evt)
	return true
}
