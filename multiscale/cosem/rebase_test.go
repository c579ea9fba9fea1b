package cosem

import (
	"reflect"
	"testing"
)

func TestChangeCoordinatesIdentity(t *testing.T) {
	g := testPyramid(t)
	out, err := ChangeCoordinates(g, Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.Attributes, g.Attributes) {
		t.Errorf("identity rebase changed attributes:\n got %+v\nwant %+v", out.Attributes, g.Attributes)
	}
	for name, member := range g.Members {
		if !out.Members[name].Metadata.Transform.Equal(member.Metadata.Transform) {
			t.Errorf("identity rebase changed transform of %s: got %s, want %s",
				name, out.Members[name].Metadata.Transform, member.Metadata.Transform)
		}
	}
}

func TestChangeCoordinatesScale(t *testing.T) {
	g := testPyramid(t)
	// base scale goes from (4,4,4) to (4,4,6): a 1.5x stretch on the
	// fastest axis that must propagate to every level
	out, err := ChangeCoordinates(g, Overrides{Scale: []float64{4, 4, 6}})
	if err != nil {
		t.Fatal(err)
	}
	wantScales := map[string][]float64{
		"s0": {4, 4, 6},
		"s1": {8, 8, 12},
		"s2": {16, 16, 24},
	}
	for name, want := range wantScales {
		got := out.Members[name].Metadata.Transform.Scale
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: expected scale %v, got %v", name, want, got)
		}
	}
	// inter-level ratios are preserved
	wantRatios := [][]int{{1, 1, 1}, {2, 2, 2}, {4, 4, 4}}
	if !reflect.DeepEqual(out.Attributes.Scales, wantRatios) {
		t.Errorf("expected scales attribute %v, got %v", wantRatios, out.Attributes.Scales)
	}
	// group pixelResolution reflects the new base scale, reversed
	wantDims := []float64{6, 4, 4}
	if !reflect.DeepEqual(out.Attributes.PixelResolution.Dimensions, wantDims) {
		t.Errorf("expected pixelResolution %v, got %v", wantDims, out.Attributes.PixelResolution.Dimensions)
	}
}

func TestChangeCoordinatesTranslate(t *testing.T) {
	g := testPyramid(t)
	out, err := ChangeCoordinates(g, Overrides{Translate: []float64{10, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	wantTranslates := map[string][]float64{
		"s0": {10, 0, 0},
		"s1": {12, 2, 2},
		"s2": {16, 6, 6},
	}
	for name, want := range wantTranslates {
		got := out.Members[name].Metadata.Transform.Translate
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: expected translate %v, got %v", name, want, got)
		}
	}
}

func TestChangeCoordinatesUnits(t *testing.T) {
	g := testPyramid(t)
	out, err := ChangeCoordinates(g, Overrides{Units: []string{"km", "km", "km"}})
	if err != nil {
		t.Fatal(err)
	}
	if out.Attributes.PixelResolution.Unit != "km" {
		t.Errorf("expected unit km, got %q", out.Attributes.PixelResolution.Unit)
	}
	for name, member := range out.Members {
		for _, u := range member.Metadata.Transform.Units {
			if u != "km" {
				t.Errorf("%s: expected unit km, got %q", name, u)
			}
		}
	}
	// shapes and chunking are untouched by a coordinate change
	for name := range g.Members {
		if !reflect.DeepEqual(out.Members[name].Spec.Shape, g.Members[name].Spec.Shape) {
			t.Errorf("%s: shape changed during rebase", name)
		}
	}
}

func TestChangeCoordinatesBadOverride(t *testing.T) {
	g := testPyramid(t)
	if _, err := ChangeCoordinates(g, Overrides{Scale: []float64{4, 4}}); err == nil {
		t.Fatal("expected an error for a wrong-length scale override")
	}
}
