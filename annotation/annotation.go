// Package annotation defines the metadata convention for manually annotated
// crops.  A crop is a contiguous, densely annotated subset of a larger
// imaging volume, stored as one group per semantic class with a multiscale
// pyramid of label arrays inside each.  All crop metadata is namespaced
// under {"cellmap": {"annotation": ...}} in node attributes.
package annotation

import (
	"fmt"
	"sort"
	"time"

	"github.com/blang/semver"
)

// Version is the current crop metadata version.
const Version = "0.1.1"

// requiredVersion is what stored crop metadata must carry.
var requiredVersion = semver.MustParse(Version)

// dateLayout is the calendar date format used in crop metadata.
const dateLayout = "2006-01-02"

// Possibility values describe what a label value can stand for beyond a
// positive example of the class.
const (
	PossibilityUnknown = "unknown"
	PossibilityAbsent  = "absent"
	PossibilityPresent = "present"
)

// Segmentation type discriminators.
const (
	TypeSemantic = "semantic_segmentation"
	TypeInstance = "instance_segmentation"
)

// CellmapWrapper nests a value under the "cellmap" namespace key.
type CellmapWrapper[T any] struct {
	Cellmap T `json:"cellmap"`
}

// AnnotationWrapper nests a value under the "annotation" namespace key.
type AnnotationWrapper[T any] struct {
	Annotation T `json:"annotation"`
}

// WrapAttrs nests attrs under the {"cellmap": {"annotation": ...}} namespace.
func WrapAttrs[T any](attrs T) CellmapWrapper[AnnotationWrapper[T]] {
	return CellmapWrapper[AnnotationWrapper[T]]{
		Cellmap: AnnotationWrapper[T]{Annotation: attrs},
	}
}

// InstanceName gives the long and short names of a semantic class.
type InstanceName struct {
	Long  string `json:"long"`
	Short string `json:"short"`
}

// Annotated describes how completely a class was annotated in a crop.
type Annotated string

const (
	AnnotatedDense  Annotated = "dense"
	AnnotatedSparse Annotated = "sparse"
	AnnotatedEmpty  Annotated = "empty"
)

func (a Annotated) Valid() bool {
	switch a {
	case AnnotatedDense, AnnotatedSparse, AnnotatedEmpty:
		return true
	}
	return false
}

// AnnotationState records whether a class is present in a crop and how it
// was annotated.
type AnnotationState struct {
	Present   bool      `json:"present"`
	Annotated Annotated `json:"annotated"`
}

// Label is one entry of a label list: a numeric value, the class it
// stands for, its annotation state, and an optional sample count.
type Label struct {
	Value           int             `json:"value"`
	Name            InstanceName    `json:"name"`
	AnnotationState AnnotationState `json:"annotationState"`
	Count           *int            `json:"count"`
}

// LabelList enumerates the label values of an annotation and the
// segmentation type they belong to.
type LabelList struct {
	Labels         []Label          `json:"labels"`
	AnnotationType SegmentationType `json:"annotation_type"`
}

// Validate checks the segmentation type and every label's annotation state.
func (l LabelList) Validate() error {
	if err := l.AnnotationType.Validate(); err != nil {
		return err
	}
	for i, label := range l.Labels {
		if !label.AnnotationState.Annotated.Valid() {
			return fmt.Errorf("labels[%d]: bad annotation state %q", i, label.AnnotationState.Annotated)
		}
	}
	return nil
}

// SegmentationType describes how label values in an annotation array are to
// be interpreted: as per-class semantic values or as per-instance values.
// Encoding maps possibility names to the numeric values that stand for them.
type SegmentationType struct {
	Type     string         `json:"type"`
	Encoding map[string]int `json:"encoding"`
}

// NewSemanticSegmentation returns a semantic segmentation type with the
// given possibility encoding.
func NewSemanticSegmentation(encoding map[string]int) SegmentationType {
	return SegmentationType{Type: TypeSemantic, Encoding: encoding}
}

// NewInstanceSegmentation returns an instance segmentation type with the
// given possibility encoding.  Positive instance values are implied and do
// not appear in the encoding.
func NewInstanceSegmentation(encoding map[string]int) SegmentationType {
	return SegmentationType{Type: TypeInstance, Encoding: encoding}
}

// Validate checks the type discriminator and that every encoding key is a
// possibility the segmentation type allows.
func (s SegmentationType) Validate() error {
	var allowed map[string]struct{}
	switch s.Type {
	case TypeSemantic:
		allowed = map[string]struct{}{
			PossibilityUnknown: {},
			PossibilityAbsent:  {},
			PossibilityPresent: {},
		}
	case TypeInstance:
		allowed = map[string]struct{}{
			PossibilityUnknown: {},
			PossibilityAbsent:  {},
		}
	default:
		return fmt.Errorf("bad segmentation type %q, expected %q or %q", s.Type, TypeSemantic, TypeInstance)
	}
	for key := range s.Encoding {
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("segmentation type %q does not allow encoding key %q", s.Type, key)
		}
	}
	return nil
}

// AnnotationArrayAttrs is the metadata of one label array.  The complement
// counts record how many samples encode each non-positive possibility, so
// the number of positive samples can be recovered without reading chunks.
type AnnotationArrayAttrs struct {
	ClassName        string           `json:"class_name"`
	ComplementCounts map[string]int   `json:"complement_counts"`
	AnnotationType   SegmentationType `json:"annotation_type"`
}

// Validate checks the segmentation type and that every counted possibility
// is one the encoding actually assigns a value to.
func (a AnnotationArrayAttrs) Validate() error {
	if err := a.AnnotationType.Validate(); err != nil {
		return err
	}
	for key := range a.ComplementCounts {
		if _, ok := a.AnnotationType.Encoding[key]; !ok {
			return fmt.Errorf("complement count key %q is not in the %q encoding", key, a.AnnotationType.Type)
		}
	}
	return nil
}

// AnnotationGroupAttrs is the metadata of one annotated class group.
type AnnotationGroupAttrs struct {
	ClassName      string           `json:"class_name"`
	AnnotationType SegmentationType `json:"annotation_type"`
}

func (a AnnotationGroupAttrs) Validate() error {
	return a.AnnotationType.Validate()
}

// CropGroupAttrs is the metadata of a whole crop.  Optional fields are
// pointers so absence survives a JSON round trip.
type CropGroupAttrs struct {
	Version      string   `json:"version"`
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	CreatedBy    []string `json:"created_by"`
	CreatedWith  []string `json:"created_with"`
	StartDate    *string  `json:"start_date"`
	EndDate      *string  `json:"end_date"`
	DurationDays *int     `json:"duration_days"`
	ProtocolURI  *string  `json:"protocol_uri"`
	ClassNames   []string `json:"class_names"`
}

// Validate checks the metadata version and calendar date formats.
func (c CropGroupAttrs) Validate() error {
	v, err := semver.Parse(c.Version)
	if err != nil {
		return fmt.Errorf("bad crop metadata version %q: %v", c.Version, err)
	}
	if !v.Equals(requiredVersion) {
		return fmt.Errorf("crop metadata version %q, expected %q", c.Version, Version)
	}
	for _, d := range []*string{c.StartDate, c.EndDate} {
		if d == nil {
			continue
		}
		if _, err := time.Parse(dateLayout, *d); err != nil {
			return fmt.Errorf("bad crop date %q: %v", *d, err)
		}
	}
	return nil
}

// SortedClassNames returns the crop's class names in sorted order.
func (c CropGroupAttrs) SortedClassNames() []string {
	names := make([]string, len(c.ClassNames))
	copy(names, c.ClassNames)
	sort.Strings(names)
	return names
}
