package ztree

import (
	"errors"
	"reflect"
	"testing"
)

var sampleZarray = `
{
	"chunks": [64, 64, 64],
	"compressor": {
		"id": "gzip",
		"level": -1
	},
	"dtype": "|u1",
	"fill_value": 0,
	"filters": null,
	"order": "C",
	"shape": [128, 128, 128],
	"zarr_format": 2,
	"dimension_separator": "/"
}`

func TestParseArrayMeta(t *testing.T) {
	a, err := ParseArrayMeta([]byte(sampleZarray))
	if err != nil {
		t.Fatalf("couldn't parse array metadata: %v\n", err)
	}
	if !reflect.DeepEqual(a.Shape, []int{128, 128, 128}) {
		t.Errorf("bad shape: %v\n", a.Shape)
	}
	if !reflect.DeepEqual(a.Chunks, []int{64, 64, 64}) {
		t.Errorf("bad chunks: %v\n", a.Chunks)
	}
	if a.DType != "|u1" {
		t.Errorf("bad dtype: %q\n", a.DType)
	}
	if a.Separator != SepZarr {
		t.Errorf("bad separator: %q\n", a.Separator)
	}
	if a.Compressor["id"] != "gzip" {
		t.Errorf("bad compressor: %v\n", a.Compressor)
	}
	if a.NumElements() != 128*128*128 {
		t.Errorf("bad element count: %d\n", a.NumElements())
	}
}

func TestParseArrayMetaDefaults(t *testing.T) {
	data := `{"shape": [4], "chunks": [2], "dtype": "<f8", "zarr_format": 2}`
	a, err := ParseArrayMeta([]byte(data))
	if err != nil {
		t.Fatalf("couldn't parse minimal array metadata: %v\n", err)
	}
	if a.Separator != SepN5 {
		t.Errorf("expected default separator %q, got %q\n", SepN5, a.Separator)
	}
	if a.Order != "C" {
		t.Errorf("expected default order C, got %q\n", a.Order)
	}
}

func TestParseArrayMetaBadFormat(t *testing.T) {
	data := `{"shape": [4], "chunks": [2], "dtype": "<f8", "zarr_format": 3}`
	if _, err := ParseArrayMeta([]byte(data)); err == nil {
		t.Fatalf("expected error on zarr_format 3\n")
	}
	data = `{"shape": [4, 4], "chunks": [2], "dtype": "<f8", "zarr_format": 2}`
	if _, err := ParseArrayMeta([]byte(data)); err == nil {
		t.Fatalf("expected error on shape/chunks rank disagreement\n")
	}
}

func TestArrayMetaRoundTrip(t *testing.T) {
	a, err := ParseArrayMeta([]byte(sampleZarray))
	if err != nil {
		t.Fatalf("couldn't parse array metadata: %v\n", err)
	}
	out, err := MarshalArrayMeta(a)
	if err != nil {
		t.Fatalf("couldn't marshal array metadata: %v\n", err)
	}
	b, err := ParseArrayMeta(out)
	if err != nil {
		t.Fatalf("couldn't reparse array metadata: %v\n", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("array metadata round trip changed value:\n%v\n%v\n", a, b)
	}
}

func testArray() *Array {
	return &Array{
		Shape:      []int{64, 64, 64},
		Chunks:     []int{32, 32, 32},
		DType:      "|u1",
		Compressor: map[string]interface{}{"id": "gzip", "level": float64(-1)},
		FillValue:  float64(0),
		Order:      "C",
		Separator:  SepZarr,
		Attributes: map[string]interface{}{"key": "value"},
	}
}

func TestStructureEqualArrays(t *testing.T) {
	a := testArray()
	eq, err := StructureEqual(a, a)
	if err != nil {
		t.Fatalf("self comparison errored: %v\n", err)
	}
	if !eq {
		t.Errorf("array should be structurally equal to itself\n")
	}

	// attribute changes must not affect structural equality
	b := a.Clone().(*Array)
	b.Attributes = map[string]interface{}{"other": float64(3)}
	if eq, _ := StructureEqual(a, b); !eq {
		t.Errorf("attribute-only change broke structural equality\n")
	}

	// shape changes must break it
	c := a.Clone().(*Array)
	c.Shape = []int{32, 64, 64}
	if eq, _ := StructureEqual(a, c); eq {
		t.Errorf("shape change should break structural equality\n")
	}

	// separator changes must break it
	d := a.Clone().(*Array)
	d.Separator = SepN5
	if eq, _ := StructureEqual(a, d); eq {
		t.Errorf("separator change should break structural equality\n")
	}
}

func TestStructureEqualGroups(t *testing.T) {
	g1 := &Group{
		Attributes: map[string]interface{}{"a": float64(1)},
		Members:    map[string]Node{"s0": testArray()},
	}
	g2 := g1.Clone().(*Group)
	g2.Attributes = nil
	g2.Members["s0"].SetAttrs(nil)
	if eq, err := StructureEqual(g1, g2); err != nil || !eq {
		t.Errorf("groups differing only in attributes should be structurally equal (eq=%t, err=%v)\n", eq, err)
	}

	// differing member sets
	g3 := g1.Clone().(*Group)
	g3.Members["s1"] = testArray()
	if eq, _ := StructureEqual(g1, g3); eq {
		t.Errorf("differing member sets should break structural equality\n")
	}

	// array vs group is false, not an error
	if eq, err := StructureEqual(g1, testArray()); eq || err != nil {
		t.Errorf("group vs array should be unequal without error (eq=%t, err=%v)\n", eq, err)
	}
}

func TestStructureEqualNil(t *testing.T) {
	_, err := StructureEqual(nil, testArray())
	var nilErr *NilNodeError
	if !errors.As(err, &nilErr) {
		t.Fatalf("expected NilNodeError, got %v\n", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	g := &Group{
		Attributes: map[string]interface{}{"nested": map[string]interface{}{"k": "v"}},
		Members:    map[string]Node{"s0": testArray()},
	}
	dup := g.Clone().(*Group)
	dup.Attributes["nested"].(map[string]interface{})["k"] = "changed"
	dup.Members["s0"].(*Array).Shape[0] = 1
	if g.Attributes["nested"].(map[string]interface{})["k"] != "v" {
		t.Errorf("clone shares nested attribute maps\n")
	}
	if g.Members["s0"].(*Array).Shape[0] != 64 {
		t.Errorf("clone shares member shape slices\n")
	}
}

func TestSeparatorDefaultAgreement(t *testing.T) {
	// both decoders must fall back to the Zarr v2 default "." when the
	// dimension_separator field is absent, or a hand-written node graph
	// can never be structurally equal to a freshly parsed store tree
	metaDoc := `{
		"shape": [16, 16],
		"chunks": [8, 8],
		"dtype": "|u1",
		"compressor": null,
		"fill_value": 0,
		"filters": null,
		"order": "C",
		"zarr_format": 2
	}`
	fromMeta, err := ParseArrayMeta([]byte(metaDoc))
	if err != nil {
		t.Fatal(err)
	}
	if fromMeta.Separator != SepN5 {
		t.Errorf("ParseArrayMeta defaulted separator to %q, expected %q\n", fromMeta.Separator, SepN5)
	}

	nodeDoc := `{
		"shape": [16, 16],
		"chunks": [8, 8],
		"dtype": "|u1",
		"fill_value": 0,
		"order": "C",
		"attributes": {}
	}`
	fromNode, err := UnmarshalNode([]byte(nodeDoc))
	if err != nil {
		t.Fatal(err)
	}
	if sep := fromNode.(*Array).Separator; sep != SepN5 {
		t.Errorf("UnmarshalNode defaulted separator to %q, expected %q\n", sep, SepN5)
	}

	if eq, err := StructureEqual(fromMeta, fromNode); err != nil || !eq {
		t.Errorf("decoders disagree on a document omitting the separator (eq=%t, err=%v)\n", eq, err)
	}
}
