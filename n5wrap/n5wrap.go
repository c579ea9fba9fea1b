// Package n5wrap translates node trees between their Zarr-flavored and
// N5-flavored encodings.  The two encodings describe bit-identical chunk
// payloads and differ only in a thin metadata shim: the dimension
// separator token and the nesting of the compressor configuration.
//
// Wrap and Unwrap are exact inverses for any valid node, so a tree can be
// moved between the two conventions losslessly in either direction.
package n5wrap

import (
	"fmt"

	"github.com/janelia-cellmap/cellmap-schemas/ztree"
)

// compressorConfigKey is the wrapper key under which N5-flavored array
// metadata nests the actual codec configuration.
const compressorConfigKey = "compressor_config"

// Wrap converts a node tree into its N5-flavored encoding: every array
// gets the "." dimension separator and a compressor nested under the
// wrapper key.  A compressor already in wrapped shape is left as-is.
// Group attributes pass through unchanged.
func Wrap(n ztree.Node) ztree.Node {
	switch node := n.(type) {
	case *ztree.Array:
		return wrapArray(node)
	case *ztree.Group:
		return wrapGroup(node)
	}
	return nil
}

func wrapArray(a *ztree.Array) *ztree.Array {
	wrapped := a.Clone().(*ztree.Array)
	wrapped.Separator = ztree.SepN5
	if wrapped.Compressor != nil {
		if _, nested := wrapped.Compressor[compressorConfigKey]; !nested {
			wrapped.Compressor = map[string]interface{}{
				"id":                wrapped.Compressor["id"],
				compressorConfigKey: wrapped.Compressor,
			}
		}
	}
	return wrapped
}

func wrapGroup(g *ztree.Group) *ztree.Group {
	members := make(map[string]ztree.Node, len(g.Members))
	for name, member := range g.Members {
		switch node := member.(type) {
		case *ztree.Array:
			members[name] = wrapArray(node)
		case *ztree.Group:
			members[name] = wrapGroup(node)
		}
	}
	return &ztree.Group{
		Attributes: g.Clone().(*ztree.Group).Attributes,
		Members:    members,
	}
}

// Unwrap converts a node tree parsed from N5 storage back into its
// Zarr-flavored encoding: every array gets the "/" dimension separator and
// the codec configuration un-nested from its wrapper key.  Group attributes
// pass through unchanged.
func Unwrap(n ztree.Node) (ztree.Node, error) {
	switch node := n.(type) {
	case *ztree.Array:
		return unwrapArray(node)
	case *ztree.Group:
		return unwrapGroup(node)
	}
	return nil, fmt.Errorf("can't unwrap nil node")
}

func unwrapArray(a *ztree.Array) (*ztree.Array, error) {
	unwrapped := a.Clone().(*ztree.Array)
	unwrapped.Separator = ztree.SepZarr
	if unwrapped.Compressor != nil {
		nested, found := unwrapped.Compressor[compressorConfigKey]
		if !found {
			return nil, fmt.Errorf("array compressor %v has no %q key; is this node really N5-flavored?",
				unwrapped.Compressor, compressorConfigKey)
		}
		config, ok := nested.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("array compressor %q entry is %T, expected a codec config mapping",
				compressorConfigKey, nested)
		}
		unwrapped.Compressor = config
	}
	return unwrapped, nil
}

func unwrapGroup(g *ztree.Group) (*ztree.Group, error) {
	members := make(map[string]ztree.Node, len(g.Members))
	for name, member := range g.Members {
		switch node := member.(type) {
		case *ztree.Array:
			unwrapped, err := unwrapArray(node)
			if err != nil {
				return nil, fmt.Errorf("member %q: %v", name, err)
			}
			members[name] = unwrapped
		case *ztree.Group:
			unwrapped, err := unwrapGroup(node)
			if err != nil {
				return nil, err
			}
			members[name] = unwrapped
		}
	}
	return &ztree.Group{
		Attributes: g.Clone().(*ztree.Group).Attributes,
		Members:    members,
	}, nil
}
