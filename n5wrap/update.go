package n5wrap

import (
	"context"
	"fmt"

	"github.com/janelia-cellmap/cellmap-schemas/storage"
	"github.com/janelia-cellmap/cellmap-schemas/ztree"
)

// StructuralMismatchError is returned by UpdateAttrs when the stored tree
// and the supplied tree differ in shape, chunking, dtype, codec, or member
// layout.  Attribute updates against a mismatched tree would orphan
// metadata, so the update is refused outright.
type StructuralMismatchError struct {
	Path string
}

func (e StructuralMismatchError) Error() string {
	return fmt.Sprintf("stored tree @ %q does not structurally match the supplied tree; refusing to update attributes", e.Path)
}

// UpdateAttrs overwrites the user attributes of every node under path with
// the attributes carried by spec.  The stored tree must structurally equal
// spec; only attribute documents are touched, never array metadata or
// chunk payloads.
func UpdateAttrs(ctx context.Context, store storage.Store, path string, spec ztree.Node) error {
	stored, err := store.ReadTree(ctx, path)
	if err != nil {
		return err
	}
	if store.Flavor() == storage.FlavorN5 {
		if stored, err = Unwrap(stored); err != nil {
			return fmt.Errorf("stored tree @ %q: %v", path, err)
		}
	}
	same, err := ztree.StructureEqual(stored, spec)
	if err != nil {
		return err
	}
	if !same {
		return StructuralMismatchError{Path: path}
	}
	return updateNodeAttrs(ctx, store, path, spec)
}

func updateNodeAttrs(ctx context.Context, store storage.Store, path string, node ztree.Node) error {
	if err := store.UpdateAttrs(ctx, path, node.Attrs()); err != nil {
		return fmt.Errorf("node @ %q: %v", path, err)
	}
	group, isGroup := node.(*ztree.Group)
	if !isGroup {
		return nil
	}
	for _, name := range group.MemberNames() {
		memberPath := name
		if path != "" {
			memberPath = path + "/" + name
		}
		if err := updateNodeAttrs(ctx, store, memberPath, group.Members[name]); err != nil {
			return err
		}
	}
	return nil
}
