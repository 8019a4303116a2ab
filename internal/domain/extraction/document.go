// Package extraction recovers review comments from the page object model of
// a marked-up drawing: vector annotations and coloured text runs.
package extraction

import "github.com/turtacn/DocRev-Intelligence/internal/domain/markup"

// Annotation is a vector annotation object on a page.
type Annotation struct {
	// Type is the native subtype, e.g. "FreeText", "Square", "Highlight".
	Type     string
	Title    string
	Subject  string
	Contents string
	// Fill and Stroke are colour components as stored in the document; an
	// empty slice means the colour is absent.
	Fill   []float64
	Stroke []float64
	Rect   markup.BoundingBox
}

// Color returns the fill colour, or the stroke colour when there is no fill.
func (a Annotation) Color() []float64 {
	if len(a.Fill) > 0 {
		return a.Fill
	}
	return a.Stroke
}

// TextRun is a run of text drawn in a single colour.
type TextRun struct {
	Text  string
	Rect  markup.BoundingBox
	Color markup.RunColor
}

// Page is one page of an opened document.  Either accessor may fail on a
// damaged page without affecting other pages.
type Page interface {
	Number() int
	Annotations() ([]Annotation, error)
	TextRuns() ([]TextRun, error)
}

// Document is an opened multi-page document.
type Document interface {
	PageCount() int
	// Page returns the 1-based page n.
	Page(n int) (Page, error)
}

// Opener opens raw document bytes.
type Opener interface {
	Open(data []byte) (Document, error)
}

//Personal.AI order the ending
