package ztree

import (
	"fmt"
	"reflect"
)

// NilNodeError is returned when structural comparison is attempted against
// a nil node, which has no kind and thus cannot be compared.
type NilNodeError struct {
	Arg string // which argument was nil
}

func (e *NilNodeError) Error() string {
	return fmt.Sprintf("can't compare structure: argument %s is a nil node", e.Arg)
}

// StructureEqual reports whether two nodes are identical up to their
// free-form attributes.  For arrays, every structural field (shape, chunks,
// dtype, compressor, fill value, filters, order, dimension separator) must
// match.  For groups, member name sets must be identical and every
// corresponding member pair must itself be structurally equal.  An array is
// never structurally equal to a group.  Attribute maps are never inspected
// at any depth.
func StructureEqual(a, b Node) (bool, error) {
	if a == nil {
		return false, &NilNodeError{Arg: "a"}
	}
	if b == nil {
		return false, &NilNodeError{Arg: "b"}
	}
	switch na := a.(type) {
	case *Array:
		nb, ok := b.(*Array)
		if !ok {
			return false, nil
		}
		return arrayStructureEqual(na, nb), nil
	case *Group:
		nb, ok := b.(*Group)
		if !ok {
			return false, nil
		}
		return groupStructureEqual(na, nb)
	}
	return false, &NilNodeError{Arg: "a"}
}

func arrayStructureEqual(a, b *Array) bool {
	if !reflect.DeepEqual(a.Shape, b.Shape) {
		return false
	}
	if !reflect.DeepEqual(a.Chunks, b.Chunks) {
		return false
	}
	if a.DType != b.DType || a.Order != b.Order || a.Separator != b.Separator {
		return false
	}
	if !reflect.DeepEqual(a.Compressor, b.Compressor) {
		return false
	}
	if !reflect.DeepEqual(a.FillValue, b.FillValue) {
		return false
	}
	return reflect.DeepEqual(a.Filters, b.Filters)
}

func groupStructureEqual(a, b *Group) (bool, error) {
	if len(a.Members) != len(b.Members) {
		return false, nil
	}
	for name, memberA := range a.Members {
		memberB, found := b.Members[name]
		if !found {
			return false, nil
		}
		eq, err := StructureEqual(memberA, memberB)
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}
