// Package backend opens a graph database by name.
package backend

import (
	"fmt"

	"github.com/roach88/propsync/internal/graph"
	"github.com/roach88/propsync/internal/kvstore"
	"github.com/roach88/propsync/internal/store"
)

// Backend names.
const (
	SQLite = "sqlite"
	Badger = "badger"
)

// Open opens the named backend at path. SQLite needs a file path; Badger
// takes a directory and runs in memory when path is empty.
func Open(name, path string) (graph.Graph, error) {
	switch name {
	case SQLite, "":
		if path == "" {
			return nil, fmt.Errorf("sqlite backend requires a path")
		}
		s, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case Badger:
		s, err := kvstore.Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q", name)
	}
}
