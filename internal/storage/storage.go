// Package storage selects the persistence gateway backend.
package storage

import (
	"fmt"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/storage/memory"
	"github.com/dkeye/Doubts/internal/storage/sqlite"
)

func Open(kind, path string) (core.Store, error) {
	switch kind {
	case "memory":
		return memory.New(), nil
	case "sqlite", "":
		return sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}
