package cosem

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/janelia-cellmap/cellmap-schemas/multiscale"
	"github.com/janelia-cellmap/cellmap-schemas/multiscale/neuroglancer"
	"github.com/janelia-cellmap/cellmap-schemas/ztree"
)

func mustTransform(t *testing.T, order Order, scale, translate []float64) STTransform {
	t.Helper()
	tr, err := NewSTTransform(order, []string{"z", "y", "x"}, []string{"nm", "nm", "nm"}, translate, scale)
	if err != nil {
		t.Fatalf("can't build transform: %v", err)
	}
	return tr
}

// testPyramid builds a 3-level isotropic pyramid with a C-ordered base
// transform of scale 4 nm and downsampling factor 2 per level.
func testPyramid(t *testing.T) *Group {
	t.Helper()
	shapes := [][]int{{64, 64, 64}, {32, 32, 32}, {16, 16, 16}}
	scales := [][]float64{{4, 4, 4}, {8, 8, 8}, {16, 16, 16}}
	translates := [][]float64{{0, 0, 0}, {2, 2, 2}, {6, 6, 6}}

	arrays := make(map[string]*Array, len(shapes))
	for i := range shapes {
		tr := mustTransform(t, OrderC, scales[i], translates[i])
		meta, err := ArrayMetadataFromTransform(tr)
		if err != nil {
			t.Fatalf("level %d: %v", i, err)
		}
		spec := ztree.Array{
			Shape:     shapes[i],
			Chunks:    []int{16, 16, 16},
			DType:     "<u2",
			Order:     "C",
			Separator: ztree.SepZarr,
		}
		array, err := NewArray(spec, meta)
		if err != nil {
			t.Fatalf("level %d: %v", i, err)
		}
		arrays[fmt.Sprintf("s%d", i)] = array
	}
	g, err := GroupFromArrays(arrays, nil)
	if err != nil {
		t.Fatalf("can't build pyramid: %v", err)
	}
	return g
}

func TestNewSTTransformLengthMismatch(t *testing.T) {
	axisNames := []string{"t", "z", "y", "x"}
	for n := 2; n <= 4; n++ {
		axes := axisNames[:n]
		units := make([]string, n)
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			units[i] = "nm"
			vals[i] = 1
		}
		if _, err := NewSTTransform(OrderC, axes, units, vals, vals); err != nil {
			t.Errorf("n=%d: valid transform rejected: %v", n, err)
		}

		// truncating any single sequence must fail
		short := vals[:n-1]
		cases := []struct {
			name             string
			axes, units      []string
			translate, scale []float64
		}{
			{"axes", axes[:n-1], units, vals, vals},
			{"units", axes, units[:n-1], vals, vals},
			{"translate", axes, units, short, vals},
			{"scale", axes, units, vals, short},
		}
		for _, tc := range cases {
			_, err := NewSTTransform(OrderC, tc.axes, tc.units, tc.translate, tc.scale)
			var lenErr *multiscale.LengthMismatchError
			if !errors.As(err, &lenErr) {
				t.Errorf("n=%d, truncated %s: expected LengthMismatchError, got %v", n, tc.name, err)
			}
		}
	}
}

func TestNewSTTransformBadOrder(t *testing.T) {
	_, err := NewSTTransform("K", []string{"x"}, []string{"nm"}, []float64{0}, []float64{1})
	if err == nil {
		t.Fatal("expected an error for order K")
	}
}

func TestSTTransformUnmarshalDefaultsOrder(t *testing.T) {
	payload := `{"axes": ["z", "y", "x"], "units": ["nm", "nm", "nm"],
		"translate": [0, 0, 0], "scale": [4, 4, 4]}`
	var tr STTransform
	if err := json.Unmarshal([]byte(payload), &tr); err != nil {
		t.Fatal(err)
	}
	if tr.Order != OrderC {
		t.Errorf("expected default order C, got %q", tr.Order)
	}
}

func TestArrayMetadataFromTransform(t *testing.T) {
	// C order: projection dimensions are the scale reversed, unit from
	// the first axis
	tr, err := NewSTTransform(OrderC, []string{"z", "y", "x"}, []string{"nm", "nm", "nm"},
		[]float64{0, 0, 0}, []float64{3, 2, 1})
	if err != nil {
		t.Fatal(err)
	}
	meta, err := ArrayMetadataFromTransform(tr)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(meta.PixelResolution.Dimensions, []float64{1, 2, 3}) {
		t.Errorf("C order: expected dimensions [1 2 3], got %v", meta.PixelResolution.Dimensions)
	}
	if meta.PixelResolution.Unit != "nm" {
		t.Errorf("expected unit nm, got %q", meta.PixelResolution.Unit)
	}

	// F order: dimensions verbatim
	tr, err = NewSTTransform(OrderF, []string{"x", "y", "z"}, []string{"nm", "nm", "nm"},
		[]float64{0, 0, 0}, []float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	meta, err = ArrayMetadataFromTransform(tr)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(meta.PixelResolution.Dimensions, []float64{1, 2, 3}) {
		t.Errorf("F order: expected dimensions [1 2 3], got %v", meta.PixelResolution.Dimensions)
	}
}

func TestArrayMetadataFromTransformMixedUnits(t *testing.T) {
	tr, err := NewSTTransform(OrderC, []string{"z", "y", "x"}, []string{"km", "nm", "nm"},
		[]float64{0, 0, 0}, []float64{4, 4, 4})
	if err != nil {
		t.Fatal(err)
	}
	_, err = ArrayMetadataFromTransform(tr)
	var unitErr *multiscale.UnitMismatchError
	if !errors.As(err, &unitErr) {
		t.Fatalf("expected UnitMismatchError, got %v", err)
	}
}

func TestArrayMetadataValidateDimensionMismatch(t *testing.T) {
	tr := mustTransform(t, OrderC, []float64{3, 2, 1}, []float64{0, 0, 0})
	meta := ArrayMetadata{
		PixelResolution: neuroglancer.PixelResolution{
			// not the reversal of the scale
			Dimensions: []float64{3, 2, 1},
			Unit:       "nm",
		},
		Transform: tr,
	}
	var dimErr *multiscale.DimensionMismatchError
	if err := meta.Validate(); !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
}

func TestNewArrayRankMismatch(t *testing.T) {
	tr := mustTransform(t, OrderC, []float64{4, 4, 4}, []float64{0, 0, 0})
	meta, err := ArrayMetadataFromTransform(tr)
	if err != nil {
		t.Fatal(err)
	}
	spec := ztree.Array{Shape: []int{64, 64}, Chunks: []int{16, 16}, DType: "<u2"}
	var lenErr *multiscale.LengthMismatchError
	if _, err := NewArray(spec, meta); !errors.As(err, &lenErr) {
		t.Fatalf("expected LengthMismatchError, got %v", err)
	}
}

func TestGroupFromArrays(t *testing.T) {
	g := testPyramid(t)

	// the group attributes are colexicographic: axes reversed from the
	// C-ordered transforms
	if !reflect.DeepEqual(g.Attributes.Axes, []string{"x", "y", "z"}) {
		t.Errorf("expected group axes [x y z], got %v", g.Attributes.Axes)
	}
	if !reflect.DeepEqual(g.Attributes.PixelResolution.Dimensions, []float64{4, 4, 4}) {
		t.Errorf("expected pixelResolution [4 4 4], got %v", g.Attributes.PixelResolution.Dimensions)
	}
	wantScales := [][]int{{1, 1, 1}, {2, 2, 2}, {4, 4, 4}}
	if !reflect.DeepEqual(g.Attributes.Scales, wantScales) {
		t.Errorf("expected scales %v, got %v", wantScales, g.Attributes.Scales)
	}
	datasets := g.Attributes.Multiscales[0].Datasets
	if len(datasets) != 3 {
		t.Fatalf("expected 3 datasets, got %d", len(datasets))
	}
	for i, dataset := range datasets {
		want := fmt.Sprintf("s%d", i)
		if dataset.Path != want {
			t.Errorf("dataset %d: expected path %q, got %q", i, want, dataset.Path)
		}
	}
}

func TestGroupValidateTransformDrift(t *testing.T) {
	g := testPyramid(t)
	g.Attributes.Multiscales[0].Datasets[1].Transform.Scale = []float64{999, 8, 8}
	var driftErr *multiscale.TransformDriftError
	if err := g.Validate(); !errors.As(err, &driftErr) {
		t.Fatalf("expected TransformDriftError, got %v", err)
	}
	if driftErr.Path != "s1" {
		t.Errorf("expected drift at s1, got %q", driftErr.Path)
	}
}

func TestGroupValidateMissingLevel(t *testing.T) {
	g := testPyramid(t)
	delete(g.Members, "s2")
	var missErr *multiscale.MissingLevelError
	if err := g.Validate(); !errors.As(err, &missErr) {
		t.Fatalf("expected MissingLevelError, got %v", err)
	}
	if missErr.Path != "s2" {
		t.Errorf("expected missing level s2, got %q", missErr.Path)
	}
}

func TestGroupValidateAxesOrderMismatch(t *testing.T) {
	g := testPyramid(t)
	// C-ordered member transforms require the group axes reversed, so
	// setting the group axes to the transform order must fail
	g.Attributes.Axes = []string{"z", "y", "x"}
	var axesErr *multiscale.AxesOrderMismatchError
	if err := g.Validate(); !errors.As(err, &axesErr) {
		t.Fatalf("expected AxesOrderMismatchError, got %v", err)
	}
}

func TestGroupValidateNonUnitFirstRow(t *testing.T) {
	g := testPyramid(t)
	g.Attributes.Scales[0] = []int{2, 2, 2}
	var ratioErr *multiscale.InvalidScaleRatioError
	if err := g.Validate(); !errors.As(err, &ratioErr) {
		t.Fatalf("expected InvalidScaleRatioError, got %v", err)
	}
}

func TestGroupMetadataFromTransformsMissingBase(t *testing.T) {
	transforms := []NamedTransform{
		{Path: "s1", Transform: mustTransform(t, OrderC, []float64{8, 8, 8}, []float64{2, 2, 2})},
	}
	var missErr *multiscale.MissingLevelError
	if _, err := GroupMetadataFromTransforms(transforms, nil); !errors.As(err, &missErr) {
		t.Fatalf("expected MissingLevelError, got %v", err)
	}
	if missErr.Path != "s0" {
		t.Errorf("expected missing s0, got %q", missErr.Path)
	}
}

func TestGroupMetadataFromTransformsBadRatio(t *testing.T) {
	transforms := []NamedTransform{
		{Path: "s0", Transform: mustTransform(t, OrderC, []float64{4, 4, 4}, []float64{0, 0, 0})},
		{Path: "s1", Transform: mustTransform(t, OrderC, []float64{2, 2, 2}, []float64{0, 0, 0})},
	}
	var ratioErr *multiscale.InvalidScaleRatioError
	if _, err := GroupMetadataFromTransforms(transforms, nil); !errors.As(err, &ratioErr) {
		t.Fatalf("expected InvalidScaleRatioError, got %v", err)
	}
}
