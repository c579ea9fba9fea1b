// Package local implements storage.Store over a gocloud.dev blob bucket,
// which covers local directories (fileblob) as well as bucket URLs such as
// gs:// references.  Both on-disk encodings are supported: Zarr v2 trees
// and N5 trees.  N5 arrays are surfaced in their wrapped, N5-flavored node
// shape ("." separator, compressor nested under its wrapper key); callers
// that want the Zarr-flavored view unwrap the tree afterwards.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/janelia-cellmap/cellmap-schemas/cellmap"
	"github.com/janelia-cellmap/cellmap-schemas/storage"
	"github.com/janelia-cellmap/cellmap-schemas/ztree"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob" // register gs:// URLs
	"gocloud.dev/gcerrors"
	"golang.org/x/sync/errgroup"
)

const (
	zarrArrayKey = ".zarray"
	zarrGroupKey = ".zgroup"
	zarrAttrsKey = ".zattrs"
	n5AttrsKey   = "attributes.json"

	// readConcurrency bounds parallel member reads per group.
	readConcurrency = 8
)

// Store reads and writes node trees in one bucket.
type Store struct {
	ref    string
	flavor storage.Flavor
	bucket *blob.Bucket
}

// Open opens a store at ref.  A ref containing a URL scheme is opened via
// the gocloud URL muxer; anything else is treated as a local directory.
func Open(ctx context.Context, ref string, flavor storage.Flavor) (*Store, error) {
	switch flavor {
	case storage.FlavorZarr, storage.FlavorN5:
	default:
		return nil, fmt.Errorf("unknown store flavor %q", flavor)
	}
	cellmap.Infof("Trying to open %s store @ %q ...\n", flavor, ref)
	var bucket *blob.Bucket
	var err error
	if strings.Contains(ref, "://") {
		bucket, err = blob.OpenBucket(ctx, ref)
	} else {
		bucket, err = fileblob.OpenBucket(ref, &fileblob.Options{CreateDir: true})
	}
	if err != nil {
		return nil, fmt.Errorf("can't open %s store @ %q: %v", flavor, ref, err)
	}
	return &Store{ref: ref, flavor: flavor, bucket: bucket}, nil
}

func (s *Store) String() string {
	return fmt.Sprintf("%s store @ %s", s.flavor, s.ref)
}

// Flavor reports the on-disk encoding of the store.
func (s *Store) Flavor() storage.Flavor { return s.flavor }

// Close releases the underlying bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "/" + name
}

func (s *Store) readDoc(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) writeDoc(ctx context.Context, key string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("can't encode %q: %v", key, err)
	}
	return s.bucket.WriteAll(ctx, key, data, nil)
}

// memberDirs lists the immediate subdirectory names under path.
func (s *Store) memberDirs(ctx context.Context, path string) ([]string, error) {
	prefix := ""
	if path != "" {
		prefix = path + "/"
	}
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})
	var names []string
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if obj.IsDir {
			name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), "/")
			if name != "" {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadTree reads the subtree rooted at path.
func (s *Store) ReadTree(ctx context.Context, path string) (ztree.Node, error) {
	timedLog := cellmap.NewTimeLog()
	node, err := s.readNode(ctx, path)
	if err != nil {
		return nil, err
	}
	timedLog.Infof("read tree @ %q from %s", path, s)
	return node, nil
}

func (s *Store) readNode(ctx context.Context, path string) (ztree.Node, error) {
	switch s.flavor {
	case storage.FlavorZarr:
		return s.readZarrNode(ctx, path)
	default:
		return s.readN5Node(ctx, path)
	}
}

func (s *Store) readZarrNode(ctx context.Context, path string) (ztree.Node, error) {
	arrayDoc, err := s.readDoc(ctx, join(path, zarrArrayKey))
	if err != nil {
		return nil, err
	}
	if arrayDoc != nil {
		return s.readZarrArray(ctx, path, arrayDoc)
	}
	groupDoc, err := s.readDoc(ctx, join(path, zarrGroupKey))
	if err != nil {
		return nil, err
	}
	if groupDoc == nil {
		return nil, fmt.Errorf("%w: %q in %s", storage.ErrNodeNotFound, path, s)
	}
	attrs, err := s.readZarrAttrs(ctx, path)
	if err != nil {
		return nil, err
	}
	members, err := s.readMembers(ctx, path, s.zarrMemberNode)
	if err != nil {
		return nil, err
	}
	return &ztree.Group{Attributes: attrs, Members: members}, nil
}

// zarrMemberNode reads a member directory if it holds a zarr node; chunk
// directories (nested "/" separator) are skipped by returning nil.
func (s *Store) zarrMemberNode(ctx context.Context, path string) (ztree.Node, error) {
	isNode, err := s.isZarrNode(ctx, path)
	if err != nil || !isNode {
		return nil, err
	}
	return s.readZarrNode(ctx, path)
}

func (s *Store) isZarrNode(ctx context.Context, path string) (bool, error) {
	for _, key := range []string{zarrArrayKey, zarrGroupKey} {
		exists, err := s.bucket.Exists(ctx, join(path, key))
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) readZarrArray(ctx context.Context, path string, doc []byte) (*ztree.Array, error) {
	array, err := ztree.ParseArrayMeta(doc)
	if err != nil {
		return nil, fmt.Errorf("bad array metadata @ %q: %v", path, err)
	}
	attrs, err := s.readZarrAttrs(ctx, path)
	if err != nil {
		return nil, err
	}
	array.Attributes = attrs
	return array, nil
}

func (s *Store) readZarrAttrs(ctx context.Context, path string) (map[string]interface{}, error) {
	doc, err := s.readDoc(ctx, join(path, zarrAttrsKey))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return map[string]interface{}{}, nil
	}
	var attrs map[string]interface{}
	if err := json.Unmarshal(doc, &attrs); err != nil {
		return nil, fmt.Errorf("bad attributes @ %q: %v", path, err)
	}
	return attrs, nil
}

func (s *Store) readN5Node(ctx context.Context, path string) (ztree.Node, error) {
	doc, err := s.readDoc(ctx, join(path, n5AttrsKey))
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if doc != nil {
		if err := json.Unmarshal(doc, &raw); err != nil {
			return nil, fmt.Errorf("bad attributes @ %q: %v", path, err)
		}
	}
	if raw != nil {
		if _, isArray := raw["dimensions"]; isArray {
			return n5Array(path, raw)
		}
	}
	members, err := s.readMembers(ctx, path, s.n5MemberNode)
	if err != nil {
		return nil, err
	}
	if raw == nil && len(members) == 0 {
		return nil, fmt.Errorf("%w: %q in %s", storage.ErrNodeNotFound, path, s)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return &ztree.Group{Attributes: raw, Members: members}, nil
}

// n5MemberNode reads a member directory if it holds an N5 node; chunk
// directories are skipped by returning nil.
func (s *Store) n5MemberNode(ctx context.Context, path string) (ztree.Node, error) {
	exists, err := s.bucket.Exists(ctx, join(path, n5AttrsKey))
	if err != nil || !exists {
		return nil, err
	}
	return s.readN5Node(ctx, path)
}

// readMembers reads the member nodes of a group concurrently.  readFn
// returns (nil, nil) for directories that are not nodes (chunk dirs).
func (s *Store) readMembers(ctx context.Context, path string,
	readFn func(context.Context, string) (ztree.Node, error)) (map[string]ztree.Node, error) {

	names, err := s.memberDirs(ctx, path)
	if err != nil {
		return nil, err
	}
	members := make(map[string]ztree.Node, len(names))
	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(readConcurrency)
	for _, name := range names {
		name := name
		eg.Go(func() error {
			node, err := readFn(egCtx, join(path, name))
			if err != nil {
				return fmt.Errorf("member %q: %w", name, err)
			}
			if node == nil {
				return nil
			}
			mu.Lock()
			members[name] = node
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return members, nil
}

// WriteTree writes the metadata of a node graph under path.
func (s *Store) WriteTree(ctx context.Context, path string, node ztree.Node) error {
	timedLog := cellmap.NewTimeLog()
	if err := s.writeNode(ctx, path, node); err != nil {
		return err
	}
	timedLog.Infof("wrote tree @ %q to %s", path, s)
	return nil
}

func (s *Store) writeNode(ctx context.Context, path string, node ztree.Node) error {
	switch n := node.(type) {
	case *ztree.Array:
		return s.writeArray(ctx, path, n)
	case *ztree.Group:
		if err := s.writeGroupDoc(ctx, path, n.Attributes); err != nil {
			return err
		}
		for name, member := range n.Members {
			if err := s.writeNode(ctx, join(path, name), member); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("can't write nil node @ %q", path)
}

func (s *Store) writeGroupDoc(ctx context.Context, path string, attrs map[string]interface{}) error {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	switch s.flavor {
	case storage.FlavorZarr:
		if err := s.writeDoc(ctx, join(path, zarrGroupKey), map[string]int{"zarr_format": 2}); err != nil {
			return err
		}
		return s.writeDoc(ctx, join(path, zarrAttrsKey), attrs)
	default:
		return s.writeDoc(ctx, join(path, n5AttrsKey), attrs)
	}
}

func (s *Store) writeArray(ctx context.Context, path string, a *ztree.Array) error {
	switch s.flavor {
	case storage.FlavorZarr:
		doc, err := ztree.MarshalArrayMeta(a)
		if err != nil {
			return fmt.Errorf("array @ %q: %v", path, err)
		}
		if err := s.bucket.WriteAll(ctx, join(path, zarrArrayKey), doc, nil); err != nil {
			return err
		}
		attrs := a.Attributes
		if attrs == nil {
			attrs = map[string]interface{}{}
		}
		return s.writeDoc(ctx, join(path, zarrAttrsKey), attrs)
	default:
		doc, err := n5ArrayDoc(a)
		if err != nil {
			return fmt.Errorf("array @ %q: %v", path, err)
		}
		return s.writeDoc(ctx, join(path, n5AttrsKey), doc)
	}
}

// ReadAttrs reads the raw attribute map of the node at path.
func (s *Store) ReadAttrs(ctx context.Context, path string) (map[string]interface{}, error) {
	switch s.flavor {
	case storage.FlavorZarr:
		return s.readZarrAttrs(ctx, path)
	default:
		doc, err := s.readDoc(ctx, join(path, n5AttrsKey))
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return map[string]interface{}{}, nil
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(doc, &raw); err != nil {
			return nil, fmt.Errorf("bad attributes @ %q: %v", path, err)
		}
		for _, key := range n5StructuralKeys {
			delete(raw, key)
		}
		return raw, nil
	}
}

// UpdateAttrs replaces the user attributes of the node at path.  For N5,
// the structural keys of array metadata share the attributes document and
// are preserved.
func (s *Store) UpdateAttrs(ctx context.Context, path string, attrs map[string]interface{}) error {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	switch s.flavor {
	case storage.FlavorZarr:
		return s.writeDoc(ctx, join(path, zarrAttrsKey), attrs)
	default:
		doc, err := s.readDoc(ctx, join(path, n5AttrsKey))
		if err != nil {
			return err
		}
		merged := map[string]interface{}{}
		if doc != nil {
			var existing map[string]interface{}
			if err := json.Unmarshal(doc, &existing); err != nil {
				return fmt.Errorf("bad attributes @ %q: %v", path, err)
			}
			for _, key := range n5StructuralKeys {
				if v, found := existing[key]; found {
					merged[key] = v
				}
			}
		}
		for k, v := range attrs {
			if !isN5StructuralKey(k) {
				merged[k] = v
			}
		}
		return s.writeDoc(ctx, join(path, n5AttrsKey), merged)
	}
}
