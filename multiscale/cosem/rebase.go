package cosem

import (
	"sort"

	"github.com/janelia-cellmap/cellmap-schemas/multiscale"
)

// Overrides selects replacement values for ChangeCoordinates.  Nil slices
// and an empty order keep the prior values.
type Overrides struct {
	Axes      []string
	Units     []string
	Scale     []float64
	Translate []float64
	Order     Order
}

// override applies the overrides to a transform, keeping old values for
// unset fields.
func (o Overrides) override(t STTransform) (STTransform, error) {
	order := o.Order
	if order == "" {
		order = t.Order
	}
	axes := o.Axes
	if axes == nil {
		axes = t.Axes
	}
	units := o.Units
	if units == nil {
		units = t.Units
	}
	scale := o.Scale
	if scale == nil {
		scale = t.Scale
	}
	translate := o.Translate
	if translate == nil {
		translate = t.Translate
	}
	return NewSTTransform(order, axes, units, translate, scale)
}

// ChangeCoordinates returns a new Group expressing the same pyramid in a
// changed global coordinate frame.  Axes, units, and order are replaced
// uniformly on every level.  Scale and translate overrides apply to the
// base level -- the member with the most elements -- and the difference
// they induce there (a per-axis scaling ratio and translation offset) is
// propagated to every other level, preserving inter-level scale ratios.
//
// With no overrides set, the result equals the input.  The result is
// re-validated in full before it is returned.
func ChangeCoordinates(g *Group, o Overrides) (*Group, error) {
	// members ordered by descending element count, ties broken by name,
	// so the base level is first and the operation is deterministic
	names := make([]string, 0, len(g.Members))
	for name := range g.Members {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ni := g.Members[names[i]].Spec.NumElements()
		nj := g.Members[names[j]].Spec.NumElements()
		if ni != nj {
			return ni > nj
		}
		return names[i] < names[j]
	})

	base := g.Members[names[0]]
	baseTx := base.Metadata.Transform
	newBaseTx, err := o.override(baseTx)
	if err != nil {
		return nil, err
	}
	if newBaseTx.NDim() != baseTx.NDim() {
		return nil, &multiscale.LengthMismatchError{Lengths: map[string]int{
			"axes":  newBaseTx.NDim(),
			"scale": baseTx.NDim(),
		}}
	}

	// if the base scale goes from 4 to 8 the diff is 2; if the base origin
	// goes from 0 to 10 the diff is +10
	ndim := baseTx.NDim()
	scaleDiff := make([]float64, ndim)
	translateDiff := make([]float64, ndim)
	for d := 0; d < ndim; d++ {
		scaleDiff[d] = newBaseTx.Scale[d] / baseTx.Scale[d]
		translateDiff[d] = newBaseTx.Translate[d] - baseTx.Translate[d]
	}

	transforms := make([]NamedTransform, 0, len(names))
	newMembers := make(map[string]*Array, len(names))
	for _, name := range names {
		member := g.Members[name]
		oldTx := member.Metadata.Transform
		if oldTx.NDim() != ndim {
			return nil, &multiscale.LengthMismatchError{Lengths: map[string]int{
				"axes":  ndim,
				"scale": oldTx.NDim(),
			}}
		}
		newScale := make([]float64, ndim)
		newTranslate := make([]float64, ndim)
		for d := 0; d < ndim; d++ {
			newScale[d] = oldTx.Scale[d] * scaleDiff[d]
			newTranslate[d] = oldTx.Translate[d] + translateDiff[d]
		}
		perLevel := Overrides{
			Axes:      o.Axes,
			Units:     o.Units,
			Order:     o.Order,
			Scale:     newScale,
			Translate: newTranslate,
		}
		newTx, err := perLevel.override(oldTx)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, NamedTransform{Path: name, Transform: newTx})

		meta, err := ArrayMetadataFromTransform(newTx)
		if err != nil {
			return nil, err
		}
		// shape, chunking, and compression are untouched; only attributes change
		newArray, err := NewArray(member.Spec, meta)
		if err != nil {
			return nil, err
		}
		newMembers[name] = newArray
	}

	meta, err := GroupMetadataFromTransforms(transforms, g.Attributes.Multiscales[0].Name)
	if err != nil {
		return nil, err
	}
	return NewGroup(meta, newMembers)
}
