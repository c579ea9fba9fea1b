package annotation

import (
	"encoding/json"
	"fmt"

	"github.com/janelia-cellmap/cellmap-schemas/ztree"
)

// MissingClassError means a class listed in crop metadata has no matching
// group member.
type MissingClassError struct {
	Name string
}

func (e MissingClassError) Error() string {
	return fmt.Sprintf("crop metadata lists class %q but the group has no member with that name", e.Name)
}

// AnnotationArray is one label array of a class pyramid.
type AnnotationArray struct {
	Spec  ztree.Array
	Attrs AnnotationArrayAttrs
}

// AnnotationGroup is the multiscale pyramid of one annotated class.
type AnnotationGroup struct {
	Attrs   AnnotationGroupAttrs
	Members map[string]*AnnotationArray
}

// Validate checks the group metadata and that every member array agrees
// with the group on class name and segmentation type.
func (g *AnnotationGroup) Validate() error {
	if err := g.Attrs.Validate(); err != nil {
		return err
	}
	for name, member := range g.Members {
		if err := member.Attrs.Validate(); err != nil {
			return fmt.Errorf("array %q: %v", name, err)
		}
		if member.Attrs.ClassName != g.Attrs.ClassName {
			return fmt.Errorf("array %q annotates class %q, group annotates %q",
				name, member.Attrs.ClassName, g.Attrs.ClassName)
		}
		if member.Attrs.AnnotationType.Type != g.Attrs.AnnotationType.Type {
			return fmt.Errorf("array %q has segmentation type %q, group has %q",
				name, member.Attrs.AnnotationType.Type, g.Attrs.AnnotationType.Type)
		}
	}
	return nil
}

// CropGroup is a whole annotated crop: one class group per entry in the
// crop metadata's class name list.
type CropGroup struct {
	Attrs   CropGroupAttrs
	Members map[string]*AnnotationGroup
}

// Validate checks the crop metadata, that every listed class has a member
// group, and that every member group validates.
func (c *CropGroup) Validate() error {
	if err := c.Attrs.Validate(); err != nil {
		return err
	}
	for _, name := range c.Attrs.ClassNames {
		member, found := c.Members[name]
		if !found {
			return MissingClassError{Name: name}
		}
		if err := member.Validate(); err != nil {
			return fmt.Errorf("class %q: %v", name, err)
		}
	}
	return nil
}

// decodeWrapped unmarshals node attributes into the namespaced wrapper
// around dst.
func decodeWrapped[T any](attrs map[string]interface{}, dst *T) error {
	payload, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	var wrapped CellmapWrapper[AnnotationWrapper[T]]
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return err
	}
	*dst = wrapped.Cellmap.Annotation
	return nil
}

func encodeWrapped[T any](attrs T) (map[string]interface{}, error) {
	payload, err := json.Marshal(WrapAttrs(attrs))
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CropGroupFromNode builds a validated CropGroup from a stored node tree.
// Members not listed in the crop's class names are ignored.  When strict
// is set, a listed class whose group fails to decode is an error; otherwise
// only missing members are.
func CropGroupFromNode(node ztree.Node, strict bool) (*CropGroup, error) {
	group, isGroup := node.(*ztree.Group)
	if !isGroup {
		return nil, fmt.Errorf("crop node must be a group, got %s", node)
	}
	var attrs CropGroupAttrs
	if err := decodeWrapped(group.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("bad crop attributes: %v", err)
	}
	crop := &CropGroup{
		Attrs:   attrs,
		Members: make(map[string]*AnnotationGroup, len(attrs.ClassNames)),
	}
	for _, name := range attrs.ClassNames {
		member, found := group.Members[name]
		if !found {
			return nil, MissingClassError{Name: name}
		}
		classGroup, err := annotationGroupFromNode(member)
		if err != nil {
			if strict {
				return nil, fmt.Errorf("class %q: %v", name, err)
			}
			continue
		}
		crop.Members[name] = classGroup
	}
	if err := crop.Attrs.Validate(); err != nil {
		return nil, err
	}
	return crop, nil
}

func annotationGroupFromNode(node ztree.Node) (*AnnotationGroup, error) {
	group, isGroup := node.(*ztree.Group)
	if !isGroup {
		return nil, fmt.Errorf("class node must be a group, got %s", node)
	}
	var attrs AnnotationGroupAttrs
	if err := decodeWrapped(group.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("bad class attributes: %v", err)
	}
	out := &AnnotationGroup{
		Attrs:   attrs,
		Members: make(map[string]*AnnotationArray, len(group.Members)),
	}
	for name, member := range group.Members {
		array, isArray := member.(*ztree.Array)
		if !isArray {
			return nil, fmt.Errorf("member %q: expected an array", name)
		}
		var arrayAttrs AnnotationArrayAttrs
		if err := decodeWrapped(array.Attributes, &arrayAttrs); err != nil {
			return nil, fmt.Errorf("member %q: bad array attributes: %v", name, err)
		}
		out.Members[name] = &AnnotationArray{
			Spec:  *array.Clone().(*ztree.Array),
			Attrs: arrayAttrs,
		}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Node converts the crop back into a node tree with namespaced attributes.
func (c *CropGroup) Node() (*ztree.Group, error) {
	attrs, err := encodeWrapped(c.Attrs)
	if err != nil {
		return nil, err
	}
	members := make(map[string]ztree.Node, len(c.Members))
	for name, member := range c.Members {
		node, err := member.Node()
		if err != nil {
			return nil, fmt.Errorf("class %q: %v", name, err)
		}
		members[name] = node
	}
	return &ztree.Group{Attributes: attrs, Members: members}, nil
}

// Node converts the class group back into a node tree.
func (g *AnnotationGroup) Node() (*ztree.Group, error) {
	attrs, err := encodeWrapped(g.Attrs)
	if err != nil {
		return nil, err
	}
	members := make(map[string]ztree.Node, len(g.Members))
	for name, member := range g.Members {
		array := member.Spec.Clone().(*ztree.Array)
		arrayAttrs, err := encodeWrapped(member.Attrs)
		if err != nil {
			return nil, fmt.Errorf("array %q: %v", name, err)
		}
		array.Attributes = arrayAttrs
		members[name] = array
	}
	return &ztree.Group{Attributes: attrs, Members: members}, nil
}
