// Package ztree models chunked hierarchical stores (Zarr v2 and N5) as an
// in-memory tree of typed nodes.  A node is either an Array, which mirrors
// the fields of Zarr v2 array metadata, or a Group, which holds free-form
// attributes and named members.  The node graph carries no chunk payloads,
// only metadata.
package ztree

import (
	"fmt"
	"sort"
)

// Dimension separator tokens.  Zarr-flavored trees use "/" between chunk
// coordinates; N5-flavored trees use ".".
const (
	SepZarr = "/"
	SepN5   = "."
)

// Node is a sealed union of *Array and *Group.
type Node interface {
	// Attrs returns the free-form attribute map of the node.
	Attrs() map[string]interface{}

	// SetAttrs replaces the free-form attribute map of the node.
	SetAttrs(attrs map[string]interface{})

	// Clone returns a deep copy of the node.
	Clone() Node

	node() // marker; restricts implementations to this package
}

// Array describes the metadata of a single chunked array.
type Array struct {
	Shape      []int
	Chunks     []int
	DType      string
	Compressor map[string]interface{}   // nil means uncompressed
	FillValue  interface{}
	Filters    []map[string]interface{} // nil means no filters
	Order      string                   // memory layout, "C" or "F"

	// Separator is the dimension separator token used for chunk keys.
	Separator string

	Attributes map[string]interface{}
}

// Group holds free-form attributes and named member nodes.
type Group struct {
	Attributes map[string]interface{}
	Members    map[string]Node
}

func (a *Array) node() {}
func (g *Group) node() {}

func (a *Array) Attrs() map[string]interface{} { return a.Attributes }
func (g *Group) Attrs() map[string]interface{} { return g.Attributes }

func (a *Array) SetAttrs(attrs map[string]interface{}) { a.Attributes = attrs }
func (g *Group) SetAttrs(attrs map[string]interface{}) { g.Attributes = attrs }

// NumElements returns the total number of elements described by the array shape.
func (a *Array) NumElements() uint64 {
	n := uint64(1)
	for _, s := range a.Shape {
		n *= uint64(s)
	}
	return n
}

func (a *Array) String() string {
	return fmt.Sprintf("array<%s> %v, chunks %v", a.DType, a.Shape, a.Chunks)
}

func (g *Group) String() string {
	names := make([]string, 0, len(g.Members))
	for name := range g.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("group %v", names)
}

// Clone returns a deep copy of the array.
func (a *Array) Clone() Node {
	dup := &Array{
		Shape:      append([]int(nil), a.Shape...),
		Chunks:     append([]int(nil), a.Chunks...),
		DType:      a.DType,
		Compressor: cloneMap(a.Compressor),
		FillValue:  cloneValue(a.FillValue),
		Order:      a.Order,
		Separator:  a.Separator,
		Attributes: cloneMap(a.Attributes),
	}
	if a.Filters != nil {
		dup.Filters = make([]map[string]interface{}, len(a.Filters))
		for i, f := range a.Filters {
			dup.Filters[i] = cloneMap(f)
		}
	}
	return dup
}

// Clone returns a deep copy of the group and all its descendants.
func (g *Group) Clone() Node {
	dup := &Group{
		Attributes: cloneMap(g.Attributes),
		Members:    make(map[string]Node, len(g.Members)),
	}
	for name, member := range g.Members {
		dup.Members[name] = member.Clone()
	}
	return dup
}

// MemberNames returns the sorted member names of a group.
func (g *Group) MemberNames() []string {
	names := make([]string, 0, len(g.Members))
	for name := range g.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	dup := make(map[string]interface{}, len(m))
	for k, v := range m {
		dup[k] = cloneValue(v)
	}
	return dup
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case []interface{}:
		dup := make([]interface{}, len(val))
		for i, e := range val {
			dup[i] = cloneValue(e)
		}
		return dup
	default:
		return v
	}
}
