package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/janelia-cellmap/cellmap-schemas/annotation"
	"github.com/janelia-cellmap/cellmap-schemas/multiscale/cosem"
	"github.com/janelia-cellmap/cellmap-schemas/multiscale/neuroglancer"
	"github.com/janelia-cellmap/cellmap-schemas/n5wrap"
	"github.com/janelia-cellmap/cellmap-schemas/storage"
	"github.com/janelia-cellmap/cellmap-schemas/storage/local"
	"github.com/janelia-cellmap/cellmap-schemas/ztree"
)

// parseURL splits a url into a store reference, its flavor, and the node
// path within the store.  The store root is marked by a ".zarr" or ".n5"
// suffix; urls with both or neither are rejected.
func parseURL(url string) (ref string, flavor storage.Flavor, path string, err error) {
	hasZarr := strings.Contains(url, ".zarr")
	hasN5 := strings.Contains(url, ".n5")
	switch {
	case hasZarr && hasN5:
		return "", "", "", fmt.Errorf("url %q contains both .zarr and .n5 and is ambiguous", url)
	case hasZarr:
		stem, rest, _ := strings.Cut(url, ".zarr")
		return stem + ".zarr", storage.FlavorZarr, strings.TrimPrefix(rest, "/"), nil
	case hasN5:
		stem, rest, _ := strings.Cut(url, ".n5")
		return stem + ".n5", storage.FlavorN5, strings.TrimPrefix(rest, "/"), nil
	}
	return "", "", "", fmt.Errorf("url %q does not refer to Zarr or N5 storage; expected a .zarr or .n5 suffix", url)
}

// openNode reads the node tree the url refers to.  N5 trees come back in
// their Zarr-flavored encoding so they can be checked against any schema.
func openNode(ctx context.Context, url string) (storage.Store, string, ztree.Node, error) {
	ref, flavor, path, err := parseURL(url)
	if err != nil {
		return nil, "", nil, err
	}
	store, err := local.Open(ctx, ref, flavor)
	if err != nil {
		return nil, "", nil, err
	}
	node, err := store.ReadTree(ctx, path)
	if err != nil {
		store.Close()
		return nil, "", nil, err
	}
	if flavor == storage.FlavorN5 {
		if node, err = n5wrap.Unwrap(node); err != nil {
			store.Close()
			return nil, "", nil, err
		}
	}
	return store, path, node, nil
}

// schemaChecks maps schema names to validation functions over a node tree.
var schemaChecks = map[string]func(ztree.Node, cosem.ParseMode) error{
	"multiscale.cosem.Group": func(node ztree.Node, mode cosem.ParseMode) error {
		_, err := cosem.GroupFromNode(node, mode)
		return err
	},
	"multiscale.neuroglancer.Group": checkNeuroglancerGroup,
	"annotation.CropGroup": func(node ztree.Node, mode cosem.ParseMode) error {
		_, err := annotation.CropGroupFromNode(node, mode == cosem.Strict)
		return err
	},
}

func checkNeuroglancerGroup(node ztree.Node, mode cosem.ParseMode) error {
	group, isGroup := node.(*ztree.Group)
	if !isGroup {
		return fmt.Errorf("expected a group, got %s", node)
	}
	payload, err := json.Marshal(group.Attributes)
	if err != nil {
		return err
	}
	var meta neuroglancer.GroupMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return err
	}
	members := make(map[string]*ztree.Array, len(group.Members))
	for name, member := range group.Members {
		array, isArray := member.(*ztree.Array)
		if !isArray {
			if mode == cosem.DropUnknown {
				continue
			}
			return fmt.Errorf("member %q: expected an array", name)
		}
		members[name] = array
	}
	_, err = neuroglancer.NewGroup(meta, members)
	return err
}

// DoCheck validates the node at url against a named schema.
func DoCheck(url, schemaName string) error {
	check, found := schemaChecks[schemaName]
	if !found {
		names := make([]string, 0, len(schemaChecks))
		for name := range schemaChecks {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown schema %q; available schemas: %s", schemaName, strings.Join(names, ", "))
	}
	ctx := context.Background()
	store, _, node, err := openNode(ctx, url)
	if err != nil {
		return err
	}
	defer store.Close()

	mode := cosem.DropUnknown
	if *strictParse {
		mode = cosem.Strict
	}
	if err := check(node, mode); err != nil {
		return fmt.Errorf("%s: %q failed validation: %v", schemaName, url, err)
	}
	fmt.Printf("%s: %q validated successfully.\n", schemaName, url)
	return nil
}

// DoInspect prints the node tree at url as JSON, followed by a per-array
// size summary.
func DoInspect(url string) error {
	ctx := context.Background()
	store, _, node, err := openNode(ctx, url)
	if err != nil {
		return err
	}
	defer store.Close()

	encoded, err := ztree.MarshalNode(node)
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	printArraySizes(node, "")
	return nil
}

func printArraySizes(node ztree.Node, path string) {
	switch n := node.(type) {
	case *ztree.Array:
		name := path
		if name == "" {
			name = "/"
		}
		fmt.Printf("%s: %v %s, %s elements\n", name, n.Shape, n.DType,
			humanize.Comma(int64(n.NumElements())))
	case *ztree.Group:
		for _, name := range n.MemberNames() {
			memberPath := name
			if path != "" {
				memberPath = path + "/" + name
			}
			printArraySizes(n.Members[name], memberPath)
		}
	}
}

// DoUpdate overwrites the attributes of the tree at url with the attributes
// carried by the node graph in jsonFile.  The stored tree must structurally
// match the supplied one.
func DoUpdate(url, jsonFile string) error {
	data, err := os.ReadFile(jsonFile)
	if err != nil {
		return err
	}
	spec, err := ztree.UnmarshalNode(data)
	if err != nil {
		return fmt.Errorf("bad node json in %q: %v", jsonFile, err)
	}
	ctx := context.Background()
	ref, flavor, path, err := parseURL(url)
	if err != nil {
		return err
	}
	store, err := local.Open(ctx, ref, flavor)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := n5wrap.UpdateAttrs(ctx, store, path, spec); err != nil {
		return err
	}
	fmt.Printf("updated attributes @ %q\n", url)
	return nil
}
