// Package markup holds the pure, stateless building blocks of comment
// extraction: colour classification, drawing-noise filtering, and text
// normalisation of reviewer markup found on engineering drawings.
package markup

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Geometry and colour primitives
// ---------------------------------------------------------------------------

// BoundingBox is an axis-aligned rectangle in page space: x0, y0, x1, y1.
type BoundingBox [4]float64

// Int returns the box with each coordinate truncated towards zero.  Two
// detections that differ only by sub-point jitter share an Int box.
func (b BoundingBox) Int() [4]int {
	return [4]int{int(b[0]), int(b[1]), int(b[2]), int(b[3])}
}

// Key renders the integer box for use in deduplication keys.
func (b BoundingBox) Key() string {
	i := b.Int()
	return fmt.Sprintf("%d,%d,%d,%d", i[0], i[1], i[2], i[3])
}

// RGB is a colour with channels in [0,1].
type RGB [3]float64

// Components returns the channels as a slice, as accepted by ClassifyColor.
func (c RGB) Components() []float64 {
	return []float64{c[0], c[1], c[2]}
}

// Hex renders the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channelByte(c[0]), channelByte(c[1]), channelByte(c[2]))
}

func channelByte(v float64) int {
	return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// ---------------------------------------------------------------------------
// Item classification
// ---------------------------------------------------------------------------

// Kind classifies a detected markup item.
type Kind string

const (
	KindRedComment Kind = "red_comment"
	KindYellowBox  Kind = "yellow_box"
	KindAnnotation Kind = "annotation"
	KindShape      Kind = "shape"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRedComment, KindYellowBox, KindAnnotation, KindShape:
		return true
	}
	return false
}

// Origin records which page structure produced an item.
type Origin string

const (
	OriginAnnotation Origin = "annotation"
	OriginTextSpan   Origin = "text_span"
)

// RawItem is one candidate detection produced while scanning a page.  It is
// consumed within a single extraction call.
type RawItem struct {
	Text        string      `json:"text"`
	Page        int         `json:"page"`
	BoundingBox BoundingBox `json:"bounding_box"`
	Color       RGB         `json:"color"`
	Kind        Kind        `json:"kind"`
	Origin      Origin      `json:"origin"`
	// NativeType is the annotation subtype; empty for text spans.
	NativeType string `json:"native_type,omitempty"`
}

//Personal.AI order the ending
