package neuroglancer

import (
	"errors"
	"testing"

	"github.com/janelia-cellmap/cellmap-schemas/multiscale"
	"github.com/janelia-cellmap/cellmap-schemas/ztree"
)

func testArray(shape []int, dtype string) *ztree.Array {
	chunks := make([]int, len(shape))
	for i := range shape {
		chunks[i] = shape[i]
	}
	return &ztree.Array{
		Shape:     shape,
		Chunks:    chunks,
		DType:     dtype,
		Order:     "C",
		Separator: ztree.SepZarr,
	}
}

func validMetadata() GroupMetadata {
	return GroupMetadata{
		Axes:   []string{"x", "y", "z"},
		Units:  []string{"nm", "nm", "nm"},
		Scales: [][]int{{1, 1, 1}, {2, 2, 2}},
		PixelResolution: PixelResolution{
			Dimensions: []float64{4, 4, 4},
			Unit:       "nm",
		},
	}
}

func TestGroupMetadataValidate(t *testing.T) {
	if err := validMetadata().Validate(); err != nil {
		t.Fatalf("valid metadata failed validation: %v", err)
	}

	m := validMetadata()
	m.Units = []string{"nm", "nm"}
	var lenErr *multiscale.LengthMismatchError
	if err := m.Validate(); !errors.As(err, &lenErr) {
		t.Errorf("axes/units mismatch: expected LengthMismatchError, got %v", err)
	}

	m = validMetadata()
	m.PixelResolution.Dimensions = []float64{4, 4}
	if err := m.Validate(); !errors.As(err, &lenErr) {
		t.Errorf("short pixelResolution: expected LengthMismatchError, got %v", err)
	}

	m = validMetadata()
	m.Scales[0] = []int{2, 2, 2}
	var ratioErr *multiscale.InvalidScaleRatioError
	if err := m.Validate(); !errors.As(err, &ratioErr) {
		t.Errorf("non-unit first scales row: expected InvalidScaleRatioError, got %v", err)
	} else if ratioErr.Index != 0 {
		t.Errorf("expected index 0, got %d", ratioErr.Index)
	}

	m = validMetadata()
	m.Scales[1] = []int{2, 2}
	if err := m.Validate(); !errors.As(err, &ratioErr) {
		t.Errorf("short scales row: expected InvalidScaleRatioError, got %v", err)
	}

	m = validMetadata()
	m.Scales[1] = []int{2, 2, 0}
	if err := m.Validate(); !errors.As(err, &ratioErr) {
		t.Errorf("zero ratio: expected InvalidScaleRatioError, got %v", err)
	}

	m = validMetadata()
	m.Units[2] = "km"
	var unitErr *multiscale.UnitMismatchError
	if err := m.Validate(); !errors.As(err, &unitErr) {
		t.Errorf("unit mismatch: expected UnitMismatchError, got %v", err)
	} else if unitErr.Index != 2 || unitErr.Unit != "km" {
		t.Errorf("unexpected unit error detail: %v", unitErr)
	}
}

func TestCheckScaleLevelName(t *testing.T) {
	good := []string{"s0", "s1", "s10", "s999"}
	for _, name := range good {
		if !CheckScaleLevelName(name) {
			t.Errorf("%q should be a valid scale level name", name)
		}
	}
	bad := []string{"", "s", "0", "S0", "s-1", "sfoo", "s0x", "foo/s0"}
	for _, name := range bad {
		if CheckScaleLevelName(name) {
			t.Errorf("%q should not be a valid scale level name", name)
		}
	}
}

func TestCheckMembers(t *testing.T) {
	members := map[string]*ztree.Array{
		"s0": testArray([]int{64, 64, 64}, "<u2"),
		"s1": testArray([]int{32, 32, 32}, "<u2"),
	}
	if err := CheckMembers(members); err != nil {
		t.Fatalf("homogeneous members failed check: %v", err)
	}

	members["s1"] = testArray([]int{32, 32, 32}, "|u1")
	var hetErr *multiscale.HeterogeneousPyramidError
	if err := CheckMembers(members); !errors.As(err, &hetErr) {
		t.Errorf("expected HeterogeneousPyramidError, got %v", err)
	} else if hetErr.Field != "dtype" {
		t.Errorf("expected a dtype error, got field %q", hetErr.Field)
	}

	members["s1"] = testArray([]int{32, 32}, "<u2")
	if err := CheckMembers(members); !errors.As(err, &hetErr) {
		t.Errorf("expected HeterogeneousPyramidError, got %v", err)
	} else if hetErr.Field != "rank" {
		t.Errorf("expected a rank error, got field %q", hetErr.Field)
	}

	members = map[string]*ztree.Array{
		"s0":        testArray([]int{64, 64, 64}, "<u2"),
		"thumbnail": testArray([]int{32, 32, 32}, "<u2"),
	}
	var nameErr *multiscale.BadLevelNameError
	if err := CheckMembers(members); !errors.As(err, &nameErr) {
		t.Errorf("expected BadLevelNameError, got %v", err)
	}
}

func TestNewGroup(t *testing.T) {
	members := map[string]*ztree.Array{
		"s0": testArray([]int{64, 64, 64}, "<u2"),
		"s1": testArray([]int{32, 32, 32}, "<u2"),
	}
	if _, err := NewGroup(validMetadata(), members); err != nil {
		t.Fatalf("valid group failed construction: %v", err)
	}

	delete(members, "s1")
	var missErr *multiscale.MissingLevelError
	if _, err := NewGroup(validMetadata(), members); !errors.As(err, &missErr) {
		t.Errorf("expected MissingLevelError, got %v", err)
	} else if missErr.Path != "s1" {
		t.Errorf("expected missing level s1, got %q", missErr.Path)
	}
}
