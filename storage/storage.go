// Package storage defines the interface to physical chunked hierarchical
// stores.  Implementations materialize metadata trees as ztree node graphs
// and write them back; chunk payload I/O is out of scope.
package storage

import (
	"context"
	"errors"

	"github.com/janelia-cellmap/cellmap-schemas/ztree"
)

// Flavor identifies the on-disk encoding of a store.
type Flavor string

const (
	// FlavorZarr is a Zarr v2 layout: ".zarray", ".zgroup" and ".zattrs"
	// documents per node.
	FlavorZarr Flavor = "zarr"

	// FlavorN5 is an N5 layout: one "attributes.json" document per node
	// carrying structural array metadata and user attributes together.
	FlavorN5 Flavor = "n5"
)

// ErrNodeNotFound is returned when no array or group exists at a path.
var ErrNodeNotFound = errors.New("no array or group at path")

// Store provides read and write access to the metadata of one hierarchical
// store.  Implementations must be safe for concurrent readers.  Writes
// carry no transactional guarantee: a failure partway through a multi-node
// write leaves the store in a mixed state, and callers needing atomicity
// must layer it externally (e.g. a write-then-rename snapshot).
type Store interface {
	// ReadTree reads the subtree rooted at path into a typed node graph.
	ReadTree(ctx context.Context, path string) (ztree.Node, error)

	// WriteTree writes the metadata of a node graph under path, creating
	// arrays and groups as needed.
	WriteTree(ctx context.Context, path string, node ztree.Node) error

	// ReadAttrs reads the raw attribute map of the node at path.
	ReadAttrs(ctx context.Context, path string) (map[string]interface{}, error)

	// UpdateAttrs replaces the user attributes of the node at path.
	UpdateAttrs(ctx context.Context, path string, attrs map[string]interface{}) error

	// Flavor reports the on-disk encoding of the store.
	Flavor() Flavor

	// Close releases the store.
	Close() error
}
