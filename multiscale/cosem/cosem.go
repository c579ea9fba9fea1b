// Package cosem models "COSEM-flavored" multiscale images: N5-stored
// pyramids with a layout and metadata readable by Neuroglancer, as
// published on OpenOrganelle.
//
// The hierarchy convention modeled here predates version 0.4 of OME-NGFF,
// which can express the same information.
package cosem

import (
	"encoding/json"
	"fmt"

	"github.com/janelia-cellmap/cellmap-schemas/multiscale"
	"github.com/janelia-cellmap/cellmap-schemas/multiscale/neuroglancer"
	"github.com/janelia-cellmap/cellmap-schemas/ztree"
)

// Order is the array indexing convention assumed by the axes of an
// STTransform.  Tools in the N5 ecosystem enumerate dimensions in "F"
// (colexicographic) order while numpy-like tools enumerate them in "C"
// (lexicographic) order; the tag lets either ecosystem express a transform
// in its native axis order.
type Order string

const (
	// OrderC lists the slowest-varying axis first.  This is the default:
	// a missing order is assumed to be "C".
	OrderC Order = "C"

	// OrderF lists the fastest-varying axis first.
	OrderF Order = "F"
)

// STTransform is an N-dimensional scaling -> translation transform for
// labelled axes with units.  When converting an array index into a
// coordinate, the scaling applies before the translation.
//
// Instances are value objects: construct them with NewSTTransform (or
// decode then Validate) and never mutate them afterwards.
type STTransform struct {
	Order     Order     `json:"order,omitempty"`
	Axes      []string  `json:"axes"`
	Units     []string  `json:"units"`
	Translate []float64 `json:"translate"`
	Scale     []float64 `json:"scale"`
}

// NewSTTransform constructs an STTransform, failing with a length mismatch
// if the four dimensional fields disagree.  An empty order is normalized
// to OrderC.
func NewSTTransform(order Order, axes, units []string, translate, scale []float64) (STTransform, error) {
	if order == "" {
		order = OrderC
	}
	t := STTransform{Order: order, Axes: axes, Units: units, Translate: translate, Scale: scale}
	if err := t.Validate(); err != nil {
		return STTransform{}, err
	}
	return t, nil
}

// Validate checks that all four dimensional fields have the same length
// and that the order tag is one of "C" or "F".
func (t STTransform) Validate() error {
	if len(t.Axes) != len(t.Units) || len(t.Axes) != len(t.Translate) || len(t.Axes) != len(t.Scale) {
		return &multiscale.LengthMismatchError{Lengths: map[string]int{
			"axes":      len(t.Axes),
			"units":     len(t.Units),
			"translate": len(t.Translate),
			"scale":     len(t.Scale),
		}}
	}
	switch t.Order {
	case OrderC, OrderF:
	default:
		return fmt.Errorf("transform order must be %q or %q, got %q", OrderC, OrderF, t.Order)
	}
	return nil
}

// NDim returns the dimensionality of the transform.
func (t STTransform) NDim() int { return len(t.Axes) }

// Equal reports field-for-field equality of two transforms.
func (t STTransform) Equal(o STTransform) bool {
	if t.Order != o.Order || len(t.Axes) != len(o.Axes) {
		return false
	}
	for i := range t.Axes {
		if t.Axes[i] != o.Axes[i] || t.Units[i] != o.Units[i] ||
			t.Translate[i] != o.Translate[i] || t.Scale[i] != o.Scale[i] {
			return false
		}
	}
	return true
}

// UnmarshalJSON decodes a transform, treating a missing order as OrderC.
func (t *STTransform) UnmarshalJSON(data []byte) error {
	type alias STTransform
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Order == "" {
		raw.Order = OrderC
	}
	*t = STTransform(raw)
	return nil
}

func (t STTransform) String() string {
	return fmt.Sprintf("STTransform{order: %s, axes: %v, units: %v, translate: %v, scale: %v}",
		t.Order, t.Axes, t.Units, t.Translate, t.Scale)
}

// ArrayMetadata is the attribute payload of one array in a multiscale
// group.  The pixelResolution field redundantly expresses a strict subset
// of the transform; it is kept because a family of visualization tools
// (e.g. Neuroglancer) reads only that form.
type ArrayMetadata struct {
	PixelResolution neuroglancer.PixelResolution `json:"pixelResolution"`
	Transform       STTransform                  `json:"transform"`
}

// ArrayMetadataFromTransform derives the redundant pixelResolution
// projection from a transform.  A C-ordered transform yields its scale
// reversed (the projection's consumers index colexicographically) and the
// unit of the first axis; an F-ordered transform yields the scale as-is
// and the unit of the last axis.
func ArrayMetadataFromTransform(t STTransform) (ArrayMetadata, error) {
	if err := t.Validate(); err != nil {
		return ArrayMetadata{}, err
	}
	var pixr neuroglancer.PixelResolution
	if t.Order == OrderC {
		pixr = neuroglancer.PixelResolution{Dimensions: reversedFloats(t.Scale), Unit: t.Units[0]}
	} else {
		pixr = neuroglancer.PixelResolution{
			Dimensions: append([]float64(nil), t.Scale...),
			Unit:       t.Units[len(t.Units)-1],
		}
	}
	m := ArrayMetadata{PixelResolution: pixr, Transform: t}
	if err := m.Validate(); err != nil {
		return ArrayMetadata{}, err
	}
	return m, nil
}

// Validate checks the transform itself and then cross-checks it against
// the pixelResolution projection: every unit must equal the projection's
// single unit, and the projection dimensions must equal the
// order-appropriate arrangement of the scale.
func (m ArrayMetadata) Validate() error {
	if err := m.Transform.Validate(); err != nil {
		return err
	}
	for idx, u := range m.Transform.Units {
		if u != m.PixelResolution.Unit {
			return &multiscale.UnitMismatchError{Index: idx, Unit: u, Expected: m.PixelResolution.Unit}
		}
	}
	want := m.Transform.Scale
	if m.Transform.Order == OrderC {
		want = reversedFloats(m.Transform.Scale)
	}
	if !floatsEqual(m.PixelResolution.Dimensions, want) {
		return &multiscale.DimensionMismatchError{
			Got:  m.PixelResolution.Dimensions,
			Want: want,
		}
	}
	return nil
}

// ScaleMetadata is one entry of the dataset catalog inside
// MultiscaleMetadata: the coordinate transform of an array plus the path
// of that array relative to the group holding the catalog.
type ScaleMetadata struct {
	Transform STTransform `json:"transform"`
	Path      string      `json:"path"`
}

// MultiscaleMetadata is the catalog stored in a multiscale group's
// attributes under the "multiscales" key.  Dataset order is resolution
// order, finest (s0) first.
type MultiscaleMetadata struct {
	Name     *string         `json:"name"`
	Datasets []ScaleMetadata `json:"datasets"`
}

// NamedTransform pairs a scale-level path with its transform.  Ordered
// sequences of NamedTransform stand in for the insertion-ordered mappings
// used by catalog constructors.
type NamedTransform struct {
	Path      string
	Transform STTransform
}

// MultiscaleFromTransforms builds a catalog from transforms, preserving
// their order as resolution order.  No cross-level validation happens
// here; that is the group validator's job.
func MultiscaleFromTransforms(transforms []NamedTransform, name *string) MultiscaleMetadata {
	datasets := make([]ScaleMetadata, len(transforms))
	for i, nt := range transforms {
		datasets[i] = ScaleMetadata{Path: nt.Path, Transform: nt.Transform}
	}
	return MultiscaleMetadata{Name: name, Datasets: datasets}
}

// GroupMetadata is the full attribute payload of a COSEM multiscale group.
// It contains the neuroglancer-compatible group metadata plus the
// "multiscales" catalog, which must hold exactly one element.  The total
// metadata is deliberately redundant: resolution and axis names appear in
// several places, and the group validator guards their agreement.
type GroupMetadata struct {
	neuroglancer.GroupMetadata
	Multiscales []MultiscaleMetadata `json:"multiscales"`
}

// Validate checks the embedded neuroglancer metadata and the catalog
// shape: exactly one multiscales entry whose dataset paths follow the
// scale level naming convention and whose transforms are well formed.
func (m GroupMetadata) Validate() error {
	if err := m.GroupMetadata.Validate(); err != nil {
		return err
	}
	if len(m.Multiscales) != 1 {
		return fmt.Errorf("the multiscales attribute must hold exactly one entry, got %d", len(m.Multiscales))
	}
	for _, dataset := range m.Multiscales[0].Datasets {
		if !neuroglancer.CheckScaleLevelName(dataset.Path) {
			return &multiscale.BadLevelNameError{Name: dataset.Path}
		}
		if err := dataset.Transform.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GroupMetadataFromTransforms computes full group metadata from per-level
// transforms, which must include the full-resolution level "s0".  The
// group-level axes, units and pixelResolution are derived from the s0
// transform via the order-appropriate reversal; the relative scales of
// each level are computed against the s0 scale.
func GroupMetadataFromTransforms(transforms []NamedTransform, name *string) (GroupMetadata, error) {
	var s0 *STTransform
	for i := range transforms {
		if transforms[i].Path == "s0" {
			s0 = &transforms[i].Transform
			break
		}
	}
	if s0 == nil {
		return GroupMetadata{}, &multiscale.MissingLevelError{Index: 0, Path: "s0"}
	}
	if err := s0.Validate(); err != nil {
		return GroupMetadata{}, err
	}

	scales := make([][]int, 0, len(transforms))
	for idx, nt := range transforms {
		if len(nt.Transform.Scale) != len(s0.Scale) {
			return GroupMetadata{}, &multiscale.InvalidScaleRatioError{Index: idx, Ratio: nil, NDim: len(s0.Scale)}
		}
		row := make([]int, len(nt.Transform.Scale))
		for d, s := range nt.Transform.Scale {
			ratio := int(s / s0.Scale[d])
			if ratio < 1 {
				return GroupMetadata{}, &multiscale.InvalidScaleRatioError{Index: idx, Ratio: row, NDim: len(s0.Scale)}
			}
			row[d] = ratio
		}
		scales = append(scales, row)
	}

	axes := s0.Axes
	units := s0.Units
	dims := s0.Scale
	if s0.Order == OrderC {
		axes = reversedStrings(axes)
		units = reversedStrings(units)
		dims = reversedFloats(dims)
	} else {
		axes = append([]string(nil), axes...)
		units = append([]string(nil), units...)
		dims = append([]float64(nil), dims...)
	}
	pixr := neuroglancer.PixelResolution{Dimensions: dims, Unit: units[0]}

	base, err := neuroglancer.NewGroupMetadata(axes, units, scales, pixr)
	if err != nil {
		return GroupMetadata{}, err
	}
	meta := GroupMetadata{
		GroupMetadata: base,
		Multiscales:   []MultiscaleMetadata{MultiscaleFromTransforms(transforms, name)},
	}
	if err := meta.Validate(); err != nil {
		return GroupMetadata{}, err
	}
	return meta, nil
}

// Array is one scale level of a multiscale group: the structural
// description of the stored array plus its typed coordinate metadata.
// Spec.Attributes holds whatever payload the array was parsed with;
// Metadata is authoritative, and Node() re-emits it.
type Array struct {
	Spec     ztree.Array
	Metadata ArrayMetadata
}

// NewArray constructs an Array, cross-checking the coordinate metadata
// against the array rank.
func NewArray(spec ztree.Array, meta ArrayMetadata) (*Array, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if len(spec.Shape) != meta.Transform.NDim() {
		return nil, &multiscale.LengthMismatchError{Lengths: map[string]int{
			"shape": len(spec.Shape),
			"axes":  meta.Transform.NDim(),
		}}
	}
	return &Array{Spec: spec, Metadata: meta}, nil
}

// Group is a COSEM multiscale group.  Construction runs the full
// consistency validator; no partially valid group ever escapes, and a
// validated group is never mutated in place (rebasing produces a new,
// independently validated instance).
type Group struct {
	Attributes GroupMetadata
	Members    map[string]*Array
}

// NewGroup constructs a Group from literal metadata and members, running
// the full consistency validator.
func NewGroup(attrs GroupMetadata, members map[string]*Array) (*Group, error) {
	g := &Group{Attributes: attrs, Members: members}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// GroupFromArrays builds group metadata from the transforms of the given
// arrays (ordered by scale level) and constructs a validated Group.
func GroupFromArrays(arrays map[string]*Array, name *string) (*Group, error) {
	transforms := make([]NamedTransform, 0, len(arrays))
	for _, path := range sortedLevelNames(arrays) {
		transforms = append(transforms, NamedTransform{Path: path, Transform: arrays[path].Metadata.Transform})
	}
	meta, err := GroupMetadataFromTransforms(transforms, name)
	if err != nil {
		return nil, err
	}
	return NewGroup(meta, arrays)
}

// Validate cross-checks the group catalog against the actual members:
//
//  1. every member name follows the scale level convention
//  2. members share one dtype and one rank
//  3. every catalog path exists in members
//  4. the member's own transform equals the catalog copy field-for-field
//  5. axis-order reconciliation: a C-ordered member transform must carry
//     the group-level axes reversed, an F-ordered one must carry them
//     verbatim
//  6. the relative scales attribute is well formed (first row all ones,
//     one positive ratio per axis)
//
// Each check fails fast with a typed error naming the offending level.
func (g *Group) Validate() error {
	if err := g.Attributes.Validate(); err != nil {
		return err
	}

	specs := make(map[string]*ztree.Array, len(g.Members))
	for name, member := range g.Members {
		specs[name] = &member.Spec
	}
	if err := neuroglancer.CheckMembers(specs); err != nil {
		return err
	}

	axes := g.Attributes.Axes
	for idx, dataset := range g.Attributes.Multiscales[0].Datasets {
		member, found := g.Members[dataset.Path]
		if !found {
			return &multiscale.MissingLevelError{Index: idx, Path: dataset.Path}
		}
		if !member.Metadata.Transform.Equal(dataset.Transform) {
			return &multiscale.TransformDriftError{
				Index: idx,
				Path:  dataset.Path,
				Group: dataset.Transform,
				Array: member.Metadata.Transform,
			}
		}
		txAxes := dataset.Transform.Axes
		if dataset.Transform.Order == OrderF {
			if !stringsEqual(txAxes, axes) {
				return &multiscale.AxesOrderMismatchError{
					Index:     idx,
					Order:     string(dataset.Transform.Order),
					Axes:      txAxes,
					GroupAxes: axes,
				}
			}
		} else {
			if !stringsEqual(reversedStrings(txAxes), axes) {
				return &multiscale.AxesOrderMismatchError{
					Index:     idx,
					Order:     string(dataset.Transform.Order),
					Axes:      txAxes,
					GroupAxes: axes,
				}
			}
		}
	}

	// every row of the scales attribute needs its contiguously named level
	for level := range g.Attributes.Scales {
		name := fmt.Sprintf("s%d", level)
		if _, found := g.Members[name]; !found {
			return &multiscale.MissingLevelError{Index: level, Path: name}
		}
	}
	return nil
}

func reversedFloats(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[len(v)-1-i] = x
	}
	return out
}

func reversedStrings(v []string) []string {
	out := make([]string, len(v))
	for i, x := range v {
		out[len(v)-1-i] = x
	}
	return out
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
