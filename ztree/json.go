package ztree

import (
	"encoding/json"
	"fmt"
)

// arrayMeta is the wire form of Zarr v2 array metadata (the ".zarray" document).
type arrayMeta struct {
	Shape              []int                    `json:"shape"`
	Chunks             []int                    `json:"chunks"`
	DType              string                   `json:"dtype"`
	Compressor         map[string]interface{}   `json:"compressor"`
	FillValue          interface{}              `json:"fill_value"`
	Filters            []map[string]interface{} `json:"filters"`
	Order              string                   `json:"order"`
	ZarrFormat         int                      `json:"zarr_format"`
	DimensionSeparator string                   `json:"dimension_separator,omitempty"`
}

// ParseArrayMeta decodes a Zarr v2 ".zarray" document into an Array.
// The returned array has no attributes; those live in a separate document.
func ParseArrayMeta(data []byte) (*Array, error) {
	var meta arrayMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("can't decode array metadata: %v", err)
	}
	if meta.ZarrFormat != 2 {
		return nil, fmt.Errorf("unsupported zarr_format %d, expected 2", meta.ZarrFormat)
	}
	if len(meta.Shape) != len(meta.Chunks) {
		return nil, fmt.Errorf("array metadata has %d-d shape but %d-d chunks", len(meta.Shape), len(meta.Chunks))
	}
	sep := meta.DimensionSeparator
	if sep == "" {
		sep = SepN5 // "." is the Zarr v2 default when the field is absent
	}
	order := meta.Order
	if order == "" {
		order = "C"
	}
	return &Array{
		Shape:      meta.Shape,
		Chunks:     meta.Chunks,
		DType:      meta.DType,
		Compressor: meta.Compressor,
		FillValue:  meta.FillValue,
		Filters:    meta.Filters,
		Order:      order,
		Separator:  sep,
	}, nil
}

// MarshalArrayMeta encodes the structural fields of an Array as a Zarr v2
// ".zarray" document.  Attributes are not included.
func MarshalArrayMeta(a *Array) ([]byte, error) {
	meta := arrayMeta{
		Shape:              a.Shape,
		Chunks:             a.Chunks,
		DType:              a.DType,
		Compressor:         a.Compressor,
		FillValue:          a.FillValue,
		Filters:            a.Filters,
		Order:              a.Order,
		ZarrFormat:         2,
		DimensionSeparator: a.Separator,
	}
	if meta.Order == "" {
		meta.Order = "C"
	}
	return json.MarshalIndent(meta, "", "    ")
}

// nodeJSON is the JSON form of a whole node graph, used by the CLI inspect
// command and by tests.  Arrays carry their structural fields inline.
type nodeJSON struct {
	Shape              []int                    `json:"shape,omitempty"`
	Chunks             []int                    `json:"chunks,omitempty"`
	DType              string                   `json:"dtype,omitempty"`
	Compressor         map[string]interface{}   `json:"compressor,omitempty"`
	FillValue          interface{}              `json:"fill_value,omitempty"`
	Filters            []map[string]interface{} `json:"filters,omitempty"`
	Order              string                   `json:"order,omitempty"`
	DimensionSeparator string                   `json:"dimension_separator,omitempty"`
	Attributes         map[string]interface{}   `json:"attributes"`
	Members            map[string]*nodeJSON     `json:"members,omitempty"`
}

func toNodeJSON(n Node) *nodeJSON {
	switch node := n.(type) {
	case *Array:
		return &nodeJSON{
			Shape:              node.Shape,
			Chunks:             node.Chunks,
			DType:              node.DType,
			Compressor:         node.Compressor,
			FillValue:          node.FillValue,
			Filters:            node.Filters,
			Order:              node.Order,
			DimensionSeparator: node.Separator,
			Attributes:         node.Attributes,
		}
	case *Group:
		members := make(map[string]*nodeJSON, len(node.Members))
		for name, member := range node.Members {
			members[name] = toNodeJSON(member)
		}
		return &nodeJSON{
			Attributes: node.Attributes,
			Members:    members,
		}
	}
	return nil
}

// MarshalNode encodes a whole node graph as indented JSON.
func MarshalNode(n Node) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("can't marshal nil node")
	}
	return json.MarshalIndent(toNodeJSON(n), "", "  ")
}

func fromNodeJSON(doc *nodeJSON) (Node, error) {
	if doc.DType != "" || doc.Shape != nil {
		if len(doc.Shape) != len(doc.Chunks) {
			return nil, fmt.Errorf("array has %d-d shape but %d-d chunks", len(doc.Shape), len(doc.Chunks))
		}
		order := doc.Order
		if order == "" {
			order = "C"
		}
		sep := doc.DimensionSeparator
		if sep == "" {
			sep = SepN5 // "." is the Zarr v2 default when the field is absent
		}
		return &Array{
			Shape:      doc.Shape,
			Chunks:     doc.Chunks,
			DType:      doc.DType,
			Compressor: doc.Compressor,
			FillValue:  doc.FillValue,
			Filters:    doc.Filters,
			Order:      order,
			Separator:  sep,
			Attributes: doc.Attributes,
		}, nil
	}
	members := make(map[string]Node, len(doc.Members))
	for name, memberDoc := range doc.Members {
		member, err := fromNodeJSON(memberDoc)
		if err != nil {
			return nil, fmt.Errorf("member %q: %v", name, err)
		}
		members[name] = member
	}
	return &Group{Attributes: doc.Attributes, Members: members}, nil
}

// UnmarshalNode decodes a node graph from its JSON form.  A document with a
// dtype or shape decodes as an array, anything else as a group.
func UnmarshalNode(data []byte) (Node, error) {
	var doc nodeJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("can't decode node: %v", err)
	}
	return fromNodeJSON(&doc)
}
