package memstore

import (
	"testing"

	"docindex/internal/adapter/store/storetest"
	"docindex/internal/port"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.Store {
		return NewMemoryStore(nil)
	})
}
