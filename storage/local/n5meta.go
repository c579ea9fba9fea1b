package local

import (
	"fmt"

	"github.com/janelia-cellmap/cellmap-schemas/ztree"
)

// n5StructuralKeys are the attribute keys N5 reserves for array metadata.
// They share the attributes.json document with user attributes.
var n5StructuralKeys = []string{"dimensions", "blockSize", "dataType", "compression"}

func isN5StructuralKey(key string) bool {
	for _, k := range n5StructuralKeys {
		if k == key {
			return true
		}
	}
	return false
}

// dtypeFromN5 maps an N5 dataType to its Zarr v2 dtype string.
var dtypeFromN5 = map[string]string{
	"uint8":   "|u1",
	"uint16":  "<u2",
	"uint32":  "<u4",
	"uint64":  "<u8",
	"int8":    "|i1",
	"int16":   "<i2",
	"int32":   "<i4",
	"int64":   "<i8",
	"float32": "<f4",
	"float64": "<f8",
}

var dtypeToN5 = map[string]string{
	"u1": "uint8",
	"u2": "uint16",
	"u4": "uint32",
	"u8": "uint64",
	"i1": "int8",
	"i2": "int16",
	"i4": "int32",
	"i8": "int64",
	"f4": "float32",
	"f8": "float64",
}

func n5DataType(dtype string) (string, error) {
	trimmed := dtype
	if len(trimmed) > 0 && (trimmed[0] == '<' || trimmed[0] == '>' || trimmed[0] == '|') {
		trimmed = trimmed[1:]
	}
	dataType, found := dtypeToN5[trimmed]
	if !found {
		return "", fmt.Errorf("dtype %q has no N5 data type", dtype)
	}
	return dataType, nil
}

func intsFromJSON(v interface{}) ([]int, bool) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]int, len(list))
	for i, e := range list {
		f, ok := e.(float64)
		if !ok {
			return nil, false
		}
		out[i] = int(f)
	}
	return out, true
}

func reversedInts(v []int) []int {
	out := make([]int, len(v))
	for i, e := range v {
		out[len(v)-1-i] = e
	}
	return out
}

// n5Array converts a decoded N5 attributes document into an array node.
// The node comes out in its N5-flavored shape: "." separator, reversed
// axis order undone (N5 stores F-order dimensions, Zarr C-order shapes),
// and the compressor nested under its wrapper key.
func n5Array(path string, raw map[string]interface{}) (*ztree.Array, error) {
	dims, ok := intsFromJSON(raw["dimensions"])
	if !ok {
		return nil, fmt.Errorf("bad dimensions @ %q", path)
	}
	blocks, ok := intsFromJSON(raw["blockSize"])
	if !ok {
		return nil, fmt.Errorf("bad blockSize @ %q", path)
	}
	if len(blocks) != len(dims) {
		return nil, fmt.Errorf("blockSize rank %d != dimensions rank %d @ %q", len(blocks), len(dims), path)
	}
	dataType, ok := raw["dataType"].(string)
	if !ok {
		return nil, fmt.Errorf("bad dataType @ %q", path)
	}
	dtype, found := dtypeFromN5[dataType]
	if !found {
		return nil, fmt.Errorf("N5 data type %q has no dtype @ %q", dataType, path)
	}
	compressor, err := compressorFromN5(raw["compression"])
	if err != nil {
		return nil, fmt.Errorf("%v @ %q", err, path)
	}
	attrs := map[string]interface{}{}
	for k, v := range raw {
		if !isN5StructuralKey(k) {
			attrs[k] = v
		}
	}
	return &ztree.Array{
		Shape:      reversedInts(dims),
		Chunks:     reversedInts(blocks),
		DType:      dtype,
		Compressor: compressor,
		FillValue:  float64(0),
		Order:      "C",
		Separator:  ztree.SepN5,
		Attributes: attrs,
	}, nil
}

// n5ArrayDoc builds the attributes.json document for an array node.  The
// node is expected in its N5-flavored shape; user attributes are merged in
// with the structural keys winning.
func n5ArrayDoc(a *ztree.Array) (map[string]interface{}, error) {
	dataType, err := n5DataType(a.DType)
	if err != nil {
		return nil, err
	}
	compression, err := compressorToN5(a.Compressor)
	if err != nil {
		return nil, err
	}
	doc := map[string]interface{}{}
	for k, v := range a.Attributes {
		if !isN5StructuralKey(k) {
			doc[k] = v
		}
	}
	doc["dimensions"] = reversedInts(a.Shape)
	doc["blockSize"] = reversedInts(a.Chunks)
	doc["dataType"] = dataType
	doc["compression"] = compression
	return doc, nil
}

// compressorFromN5 maps an N5 compression document to the nested node
// compressor shape.  A "raw" compression maps to a nil compressor.
func compressorFromN5(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	doc, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("bad compression document")
	}
	ctype, ok := doc["type"].(string)
	if !ok {
		return nil, fmt.Errorf("compression document lacks a type")
	}
	if ctype == "raw" {
		return nil, nil
	}
	inner := map[string]interface{}{"id": ctype}
	for k, val := range doc {
		if k != "type" {
			inner[k] = val
		}
	}
	return map[string]interface{}{
		"id":                ctype,
		"compressor_config": inner,
	}, nil
}

// compressorToN5 maps a nested node compressor back to an N5 compression
// document.  A nil compressor maps to "raw".
func compressorToN5(compressor map[string]interface{}) (map[string]interface{}, error) {
	if compressor == nil {
		return map[string]interface{}{"type": "raw"}, nil
	}
	config := compressor
	if nested, found := compressor["compressor_config"]; found {
		inner, ok := nested.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("bad nested compressor config")
		}
		config = inner
	}
	id, ok := config["id"].(string)
	if !ok {
		return nil, fmt.Errorf("compressor lacks an id")
	}
	doc := map[string]interface{}{"type": id}
	for k, v := range config {
		if k != "id" {
			doc[k] = v
		}
	}
	return doc, nil
}
