// Package multiscale defines the error taxonomy shared by the multiscale
// schema packages.  Every validation failure in those packages surfaces as
// one of the typed errors below, carrying the offending field names,
// indices, and actual-vs-expected values.  None are downgraded to warnings
// and none are retried; discriminate with errors.As.
package multiscale

import (
	"fmt"
	"strings"
)

// LengthMismatchError reports dimensional sequences of unequal length.
// Lengths maps each offending field name to its length.
type LengthMismatchError struct {
	Lengths map[string]int
}

func (e *LengthMismatchError) Error() string {
	parts := make([]string, 0, len(e.Lengths))
	// report in a fixed order so error text is stable
	for _, field := range []string{"axes", "units", "translate", "scale", "dimensions", "scales"} {
		if n, found := e.Lengths[field]; found {
			parts = append(parts, fmt.Sprintf("len(%s) = %d", field, n))
		}
	}
	for field, n := range e.Lengths {
		switch field {
		case "axes", "units", "translate", "scale", "dimensions", "scales":
		default:
			parts = append(parts, fmt.Sprintf("len(%s) = %d", field, n))
		}
	}
	return "the length of all dimensional fields must match: " + strings.Join(parts, ", ")
}

// UnitMismatchError reports a unit that disagrees with the single global
// unit of a pixel resolution projection.
type UnitMismatchError struct {
	Index    int    // index into the units sequence
	Unit     string // offending unit
	Expected string // pixelResolution.unit
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("units[%d] (%q) does not match pixelResolution.unit (%q)",
		e.Index, e.Unit, e.Expected)
}

// DimensionMismatchError reports pixelResolution dimensions that disagree
// with the order-appropriate arrangement of a transform's scale.
type DimensionMismatchError struct {
	Got  []float64 // pixelResolution.dimensions
	Want []float64 // scale, reversed if the transform is C-ordered
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("pixelResolution.dimensions (%v) does not match the order-appropriate "+
		"arrangement of the transform scale (%v)", e.Got, e.Want)
}

// HeterogeneousPyramidError reports scale-level arrays that disagree in
// dtype or rank.
type HeterogeneousPyramidError struct {
	Field  string            // "dtype" or "rank"
	Values map[string]string // member name -> value
}

func (e *HeterogeneousPyramidError) Error() string {
	return fmt.Sprintf("all members of a multiscale group must share one %s; got %v",
		e.Field, e.Values)
}

// MissingLevelError reports a catalog entry whose path has no corresponding
// member.
type MissingLevelError struct {
	Index int    // index into the dataset catalog, or the scales list
	Path  string // the missing member name
}

func (e *MissingLevelError) Error() string {
	return fmt.Sprintf("datasets[%d] refers to an array named %q that does not exist in members",
		e.Index, e.Path)
}

// TypeMismatchError reports a catalog entry that names a group where an
// array is required.
type TypeMismatchError struct {
	Index int
	Path  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("datasets[%d] refers to %q, which should be an array but is a group",
		e.Index, e.Path)
}

// TransformDriftError reports a per-array transform that disagrees with the
// copy held in the group-level catalog.
type TransformDriftError struct {
	Index int
	Path  string
	Group interface{} // transform per the group catalog
	Array interface{} // transform per the array attributes
}

func (e *TransformDriftError) Error() string {
	return fmt.Sprintf("datasets[%d]: the transform in the group catalog (%v) does not match "+
		"the transform in the attributes of member %q (%v)", e.Index, e.Group, e.Path, e.Array)
}

// AxesOrderMismatchError reports a failure of axis-order reconciliation
// between group-level axes and a member transform's axes.
type AxesOrderMismatchError struct {
	Index     int
	Order     string   // the member transform's indexing convention
	Axes      []string // member transform axes, arranged per Order
	GroupAxes []string
}

func (e *AxesOrderMismatchError) Error() string {
	return fmt.Sprintf("datasets[%d]: transform axes %v (order %q) do not reconcile with "+
		"group-level axes %v", e.Index, e.Axes, e.Order, e.GroupAxes)
}

// InvalidScaleRatioError reports a bad relative scale: the first row not
// being all ones, a row of the wrong length, or a non-positive ratio.
type InvalidScaleRatioError struct {
	Index int   // row index into scales
	Ratio []int // the offending row
	NDim  int   // expected row length
}

func (e *InvalidScaleRatioError) Error() string {
	if e.Index == 0 {
		return fmt.Sprintf("scales[0] must be all ones; got %v", e.Ratio)
	}
	if len(e.Ratio) != e.NDim {
		return fmt.Sprintf("scales[%d] has %d elements, expected %d", e.Index, len(e.Ratio), e.NDim)
	}
	return fmt.Sprintf("scales[%d] (%v) contains a non-positive downsampling ratio", e.Index, e.Ratio)
}

// BadLevelNameError reports a member name that does not follow the
// "s<non-negative integer>" convention.
type BadLevelNameError struct {
	Name string
}

func (e *BadLevelNameError) Error() string {
	return fmt.Sprintf("member name %q does not follow the s0, s1, ... scale level convention", e.Name)
}
