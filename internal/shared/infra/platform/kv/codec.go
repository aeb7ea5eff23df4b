package kv

import (
	"encoding/json"
	"fmt"
)

// decode rellena dest y marca como ErrCorrupt cualquier fallo de JSON.
func decode(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}
