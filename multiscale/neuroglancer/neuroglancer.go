// Package neuroglancer models the metadata that lets Neuroglancer display
// an N5 group holding several datasets as one multiresolution image.
//
// Indexing note: the group-level axes, units, and scales attributes are
// indexed colexicographically (fastest-varying axis first), the convention
// native to the N5 ecosystem and to Neuroglancer.  This is the opposite of
// the C-style convention used by per-array transforms elsewhere in this
// module, so consumers that mix the two must reverse one of them.
package neuroglancer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/janelia-cellmap/cellmap-schemas/multiscale"
	"github.com/janelia-cellmap/cellmap-schemas/ztree"
)

// PixelResolution conveys the spacing between points of an N-dimensional
// coordinate grid and the unit of measure of that grid.  Tools in the N5
// ecosystem (notably Neuroglancer) read it from the attributes of a dataset
// or of a multiscale group.
//
// Dimensions maps onto the array axes in colexicographic order: the first
// element corresponds to the smallest stride of the stored representation.
type PixelResolution struct {
	Dimensions []float64 `json:"dimensions"`
	Unit       string    `json:"unit"`
}

// GroupMetadata is the attribute payload that marks an N5 group as a
// multiresolution image.
//
// Scales holds the relative downsampling ratio of each level with respect
// to the full-resolution level.  For a 3D volume downsampled isotropically
// by 2 over two iterations, Scales is [[1,1,1],[2,2,2],[4,4,4]].
type GroupMetadata struct {
	Axes            []string        `json:"axes"`
	Units           []string        `json:"units"`
	Scales          [][]int         `json:"scales"`
	PixelResolution PixelResolution `json:"pixelResolution"`
}

// NewGroupMetadata constructs GroupMetadata, failing if any cross-field
// invariant does not hold.
func NewGroupMetadata(axes, units []string, scales [][]int, pixr PixelResolution) (GroupMetadata, error) {
	m := GroupMetadata{Axes: axes, Units: units, Scales: scales, PixelResolution: pixr}
	if err := m.Validate(); err != nil {
		return GroupMetadata{}, err
	}
	return m, nil
}

// Validate cross-checks the dimensional fields of the metadata:
// axes/units/pixelResolution lengths must agree, the first scales row must
// be all ones, and every row must have one positive ratio per axis.
func (m GroupMetadata) Validate() error {
	if len(m.Axes) != len(m.Units) {
		return &multiscale.LengthMismatchError{Lengths: map[string]int{
			"axes":  len(m.Axes),
			"units": len(m.Units),
		}}
	}
	if len(m.PixelResolution.Dimensions) != len(m.Axes) {
		return &multiscale.LengthMismatchError{Lengths: map[string]int{
			"axes":       len(m.Axes),
			"dimensions": len(m.PixelResolution.Dimensions),
		}}
	}
	for idx, row := range m.Scales {
		if idx == 0 {
			for _, s := range row {
				if s != 1 {
					return &multiscale.InvalidScaleRatioError{Index: 0, Ratio: row, NDim: len(m.Axes)}
				}
			}
		}
		if len(row) != len(m.Axes) {
			return &multiscale.InvalidScaleRatioError{Index: idx, Ratio: row, NDim: len(m.Axes)}
		}
		for _, s := range row {
			if s < 1 {
				return &multiscale.InvalidScaleRatioError{Index: idx, Ratio: row, NDim: len(m.Axes)}
			}
		}
	}
	for idx, u := range m.Units {
		if u != m.PixelResolution.Unit {
			return &multiscale.UnitMismatchError{Index: idx, Unit: u, Expected: m.PixelResolution.Unit}
		}
	}
	return nil
}

// CheckScaleLevelName reports whether name follows the scale level
// convention: the letter "s" followed by a non-negative integer and
// nothing else.
func CheckScaleLevelName(name string) bool {
	rest, found := strings.CutPrefix(name, "s")
	if !found {
		return false
	}
	level, err := strconv.Atoi(rest)
	return err == nil && level >= 0
}

// Group is a multiscale N5 group: GroupMetadata in its attributes and one
// array member per scale level.
type Group struct {
	Attributes GroupMetadata
	Members    map[string]*ztree.Array
}

// NewGroup constructs a Group and validates it: metadata invariants,
// member naming, dtype and rank homogeneity, and one array member per row
// of the scales attribute, named contiguously from s0.
func NewGroup(attrs GroupMetadata, members map[string]*ztree.Array) (*Group, error) {
	g := &Group{Attributes: attrs, Members: members}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate runs all group-level consistency checks.
func (g *Group) Validate() error {
	if err := g.Attributes.Validate(); err != nil {
		return err
	}
	if err := CheckMembers(g.Members); err != nil {
		return err
	}
	for level := range g.Attributes.Scales {
		name := fmt.Sprintf("s%d", level)
		if _, found := g.Members[name]; !found {
			return &multiscale.MissingLevelError{Index: level, Path: name}
		}
	}
	return nil
}

// CheckMembers validates the member arrays of a multiscale group: every
// name must follow the scale level convention, and all arrays must share
// one dtype and one rank.
func CheckMembers(members map[string]*ztree.Array) error {
	dtypes := make(map[string]string)
	ranks := make(map[string]string)
	var dtype string
	rank := -1
	heterogeneous := ""
	for _, name := range sortedNames(members) {
		if !CheckScaleLevelName(name) {
			return &multiscale.BadLevelNameError{Name: name}
		}
		array := members[name]
		dtypes[name] = array.DType
		ranks[name] = strconv.Itoa(len(array.Shape))
		if dtype == "" && rank < 0 {
			dtype, rank = array.DType, len(array.Shape)
			continue
		}
		if array.DType != dtype {
			heterogeneous = "dtype"
		} else if len(array.Shape) != rank && heterogeneous == "" {
			heterogeneous = "rank"
		}
	}
	switch heterogeneous {
	case "dtype":
		return &multiscale.HeterogeneousPyramidError{Field: "dtype", Values: dtypes}
	case "rank":
		return &multiscale.HeterogeneousPyramidError{Field: "rank", Values: ranks}
	}
	return nil
}

func sortedNames(members map[string]*ztree.Array) []string {
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	// numeric sort (s2 before s10) so error reports follow resolution order
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && levelOf(names[j]) < levelOf(names[j-1]); j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}

func levelOf(name string) int {
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
