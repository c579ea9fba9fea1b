package cosem

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/janelia-cellmap/cellmap-schemas/multiscale"
	"github.com/janelia-cellmap/cellmap-schemas/multiscale/neuroglancer"
	"github.com/janelia-cellmap/cellmap-schemas/ztree"
)

// ParseMode controls how GroupFromNode treats members that do not belong
// to the pyramid: subgroups and members named outside the s0, s1, ...
// convention.
type ParseMode int

const (
	// Strict rejects any member that is not a conforming scale level.
	Strict ParseMode = iota

	// DropUnknown silently drops non-conforming extras, the historical
	// behavior when reading trees written by other tools.
	DropUnknown
)

// GroupFromNode parses a node read from a store into a validated Group.
// The raw group attribute payload is checked against the group metadata
// schema before typed decoding, so shape errors are reported before any
// cross-field validation runs.
func GroupFromNode(node ztree.Node, mode ParseMode) (*Group, error) {
	group, ok := node.(*ztree.Group)
	if !ok {
		return nil, fmt.Errorf("a multiscale group must be parsed from a group node, got %s", node)
	}

	payload, err := json.Marshal(group.Attributes)
	if err != nil {
		return nil, fmt.Errorf("can't re-encode group attributes: %v", err)
	}
	if err := ValidateGroupPayload(payload); err != nil {
		return nil, fmt.Errorf("group attributes do not describe a multiscale pyramid: %v", err)
	}
	var meta GroupMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("can't decode group attributes: %v", err)
	}

	catalog := map[string]int{}
	if len(meta.Multiscales) > 0 {
		for idx, dataset := range meta.Multiscales[0].Datasets {
			catalog[dataset.Path] = idx
		}
	}

	members := make(map[string]*Array, len(group.Members))
	for name, member := range group.Members {
		spec, isArray := member.(*ztree.Array)
		if !isArray {
			if idx, referenced := catalog[name]; referenced {
				return nil, &multiscale.TypeMismatchError{Index: idx, Path: name}
			}
			if mode == DropUnknown {
				continue
			}
			return nil, fmt.Errorf("member %q is a group, but members of a multiscale group must be arrays", name)
		}
		if !neuroglancer.CheckScaleLevelName(name) && mode == DropUnknown {
			continue
		}
		arrayMeta, err := decodeArrayMetadata(spec.Attributes)
		if err != nil {
			return nil, fmt.Errorf("member %q: %v", name, err)
		}
		array, err := NewArray(*spec, arrayMeta)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", name, err)
		}
		members[name] = array
	}

	return NewGroup(meta, members)
}

func decodeArrayMetadata(attrs map[string]interface{}) (ArrayMetadata, error) {
	payload, err := json.Marshal(attrs)
	if err != nil {
		return ArrayMetadata{}, fmt.Errorf("can't re-encode array attributes: %v", err)
	}
	var meta ArrayMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return ArrayMetadata{}, fmt.Errorf("can't decode array attributes: %v", err)
	}
	return meta, nil
}

// Node converts the group back into a raw node graph suitable for a store,
// writing the typed metadata into the attribute maps.
func (g *Group) Node() (*ztree.Group, error) {
	attrs, err := toAttrMap(g.Attributes)
	if err != nil {
		return nil, err
	}
	members := make(map[string]ztree.Node, len(g.Members))
	for name, member := range g.Members {
		node, err := member.Node()
		if err != nil {
			return nil, fmt.Errorf("member %q: %v", name, err)
		}
		members[name] = node
	}
	return &ztree.Group{Attributes: attrs, Members: members}, nil
}

// Node converts the array back into a raw array node, writing the typed
// metadata into the attribute map.
func (a *Array) Node() (*ztree.Array, error) {
	attrs, err := toAttrMap(a.Metadata)
	if err != nil {
		return nil, err
	}
	node := a.Spec.Clone().(*ztree.Array)
	node.Attributes = attrs
	return node, nil
}

func toAttrMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("can't encode metadata: %v", err)
	}
	var attrs map[string]interface{}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("can't re-decode metadata: %v", err)
	}
	return attrs, nil
}

// sortedLevelNames orders member names by their numeric scale level so s2
// sorts before s10.
func sortedLevelNames(arrays map[string]*Array) []string {
	names := make([]string, 0, len(arrays))
	for name := range arrays {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		li, lj := levelNumber(names[i]), levelNumber(names[j])
		if li != lj {
			return li < lj
		}
		return names[i] < names[j]
	})
	return names
}

func levelNumber(name string) int {
	rest, found := strings.CutPrefix(name, "s")
	if !found {
		return -1
	}
	level, err := strconv.Atoi(rest)
	if err != nil {
		return -1
	}
	return level
}
