// internal/infrastructure/pdf/reader.go
//
// Page object model over github.com/ledongthuc/pdf.  Annotations come from the
// page /Annots array; text runs come from interpreting the content stream and
// tracking the non-stroking colour, which the library's own text extraction
// discards.
//
// Coordinates are flipped to a top-left origin using the page MediaBox.
//
// Dependencies:
//   Depends on: domain/extraction, domain/markup, pkg/errors
//   Depended by: application/ingestion, interfaces/cli

package pdf

import (
	"bytes"
	"math"
	"strings"
	"unicode/utf8"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/extraction"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/markup"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// Opener implements extraction.Opener.
type Opener struct{}

// NewOpener returns a PDF opener.
func NewOpener() *Opener { return &Opener{} }

// Open parses data.  A malformed cross-reference table or trailer is
// reported as an unreadable document.
func (Opener) Open(data []byte) (doc extraction.Document, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, errors.New(errors.ErrCodeDocumentUnreadable, "not a PDF document")
	}
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = errors.New(errors.ErrCodeDocumentUnreadable, "malformed PDF").WithDetailf("%v", r)
		}
	}()
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentUnreadable, "failed to open PDF")
	}
	return &document{r: r}, nil
}

type document struct {
	r *lpdf.Reader
}

func (d *document) PageCount() int { return d.r.NumPage() }

func (d *document) Page(n int) (extraction.Page, error) {
	if n < 1 || n > d.r.NumPage() {
		return nil, errors.New(errors.ErrCodePageScanFailure, "page out of range").WithDetailf("%d", n)
	}
	p := d.r.Page(n)
	if p.V.IsNull() {
		return nil, errors.New(errors.ErrCodePageScanFailure, "page object missing").WithDetailf("%d", n)
	}
	return &page{p: p, number: n, height: mediaHeight(p.V)}, nil
}

type page struct {
	p      lpdf.Page
	number int
	height float64
}

func (p *page) Number() int { return p.number }

// guard turns a library panic on a damaged page into a page error.
func (p *page) guard(what string, err *error) {
	if r := recover(); r != nil {
		*err = errors.New(errors.ErrCodePageScanFailure, "failed to read page "+what).
			WithDetailf("page %d: %v", p.number, r)
	}
}

func (p *page) Annotations() (out []extraction.Annotation, err error) {
	defer p.guard("annotations", &err)

	annots := p.p.V.Key("Annots")
	for i := 0; i < annots.Len(); i++ {
		a := annots.Index(i)
		if a.Kind() != lpdf.Dict {
			continue
		}
		out = append(out, extraction.Annotation{
			Type:     a.Key("Subtype").Name(),
			Title:    a.Key("T").Text(),
			Subject:  a.Key("Subj").Text(),
			Contents: a.Key("Contents").Text(),
			Stroke:   floats(a.Key("C")),
			Fill:     floats(a.Key("IC")),
			Rect:     p.flip(rect(a.Key("Rect"))),
		})
	}
	return out, nil
}

func (p *page) TextRuns() (runs []extraction.TextRun, err error) {
	defer p.guard("text", &err)

	it := newInterpreter(p)
	contents := p.p.V.Key("Contents")
	if contents.Kind() == lpdf.Array {
		for i := 0; i < contents.Len(); i++ {
			lpdf.Interpret(contents.Index(i), it.do)
		}
	} else if !contents.IsNull() {
		lpdf.Interpret(contents, it.do)
	}
	it.flush()
	return it.runs, nil
}

// flip converts a bottom-left box to top-left page space.
func (p *page) flip(b markup.BoundingBox) markup.BoundingBox {
	if p.height <= 0 {
		return b
	}
	return markup.BoundingBox{b[0], p.height - b[3], b[2], p.height - b[1]}
}

// ─────────────────────────────────────────────────────────────────────────────
// Content stream interpretation
// ─────────────────────────────────────────────────────────────────────────────

type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

type gstate struct {
	ctm  matrix
	fill []float64
}

type interpreter struct {
	page *page

	gs    gstate
	saved []gstate

	tm, tlm  matrix
	leading  float64
	fontSize float64
	enc      lpdf.TextEncoding

	runs    []extraction.TextRun
	pending *extraction.TextRun
	lastY   float64
}

func newInterpreter(p *page) *interpreter {
	return &interpreter{
		page: p,
		gs:   gstate{ctm: identity, fill: []float64{0}},
		tm:   identity,
		tlm:  identity,
	}
}

// operands drains the stack.  The interpreter does not clear operands of
// operators the handler ignores.
func operands(stk *lpdf.Stack) []lpdf.Value {
	n := stk.Len()
	args := make([]lpdf.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = stk.Pop()
	}
	return args
}

func numbers(args []lpdf.Value) []float64 {
	var out []float64
	for _, a := range args {
		if a.Kind() == lpdf.Integer || a.Kind() == lpdf.Real {
			out = append(out, a.Float64())
		}
	}
	return out
}

func last(args []lpdf.Value, n int) []lpdf.Value {
	if len(args) < n {
		return nil
	}
	return args[len(args)-n:]
}

func (it *interpreter) do(stk *lpdf.Stack, op string) {
	args := operands(stk)
	num := func(n int) []float64 {
		v := numbers(last(args, n))
		if len(v) != n {
			return nil
		}
		return v
	}

	switch op {
	case "q":
		it.saved = append(it.saved, gstate{ctm: it.gs.ctm, fill: append([]float64(nil), it.gs.fill...)})
	case "Q":
		if n := len(it.saved); n > 0 {
			it.gs = it.saved[n-1]
			it.saved = it.saved[:n-1]
		}
	case "cm":
		if v := num(6); v != nil {
			it.gs.ctm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}.mul(it.gs.ctm)
		}

	case "g":
		if v := num(1); v != nil {
			it.gs.fill = v
		}
	case "rg":
		if v := num(3); v != nil {
			it.gs.fill = v
		}
	case "k":
		if v := num(4); v != nil {
			it.gs.fill = cmykToRGB(v)
		}
	case "sc", "scn":
		switch v := numbers(args); len(v) {
		case 1, 3:
			it.gs.fill = v
		case 4:
			it.gs.fill = cmykToRGB(v)
		}

	case "BT":
		it.tm, it.tlm = identity, identity
	case "ET":
		it.flush()
	case "Tf":
		if a := last(args, 2); a != nil {
			it.enc = it.page.p.Font(a[0].Name()).Encoder()
			it.fontSize = a[1].Float64()
		}
	case "TL":
		if v := num(1); v != nil {
			it.leading = v[0]
		}
	case "Td":
		if v := num(2); v != nil {
			it.moveLine(v[0], v[1])
		}
	case "TD":
		if v := num(2); v != nil {
			it.leading = -v[1]
			it.moveLine(v[0], v[1])
		}
	case "Tm":
		if v := num(6); v != nil {
			it.tm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}
			it.tlm = it.tm
		}
	case "T*":
		it.moveLine(0, -it.leading)

	case "Tj", "'", "\"":
		if len(args) == 0 {
			return
		}
		if op != "Tj" {
			it.moveLine(0, -it.leading)
		}
		it.show(args[len(args)-1].RawString())
	case "TJ":
		if len(args) == 0 {
			return
		}
		arr := args[len(args)-1]
		var sb strings.Builder
		for i := 0; i < arr.Len(); i++ {
			el := arr.Index(i)
			switch el.Kind() {
			case lpdf.String:
				sb.WriteString(el.RawString())
			case lpdf.Integer, lpdf.Real:
				// Large negative kerning is a word gap.
				if el.Float64() < -200 {
					sb.WriteString(" ")
				}
			}
		}
		it.show(sb.String())
	}
}

func (it *interpreter) moveLine(tx, ty float64) {
	it.tlm = matrix{1, 0, 0, 1, tx, ty}.mul(it.tlm)
	it.tm = it.tlm
}

func (it *interpreter) show(raw string) {
	text := raw
	if it.enc != nil {
		text = it.enc.Decode(raw)
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	trm := it.tm.mul(it.gs.ctm)
	size := it.fontSize * math.Hypot(trm[2], trm[3])
	if size == 0 {
		size = it.fontSize
	}
	n := float64(utf8.RuneCountInString(text))
	x0, y0 := trm[4], trm[5]
	width := n * size * 0.5
	box := it.page.flip(markup.BoundingBox{x0, y0 - size*0.2, x0 + width, y0 + size*0.8})

	// Advance so a following show on the line starts after this one.
	it.tm = matrix{1, 0, 0, 1, n * it.fontSize * 0.5, 0}.mul(it.tm)

	color := markup.ComponentColor(it.gs.fill...)
	if p := it.pending; p != nil && sameColor(p.Color, color) && math.Abs(it.lastY-y0) < 0.5 {
		p.Text += text
		p.Rect[0] = math.Min(p.Rect[0], box[0])
		p.Rect[1] = math.Min(p.Rect[1], box[1])
		p.Rect[2] = math.Max(p.Rect[2], box[2])
		p.Rect[3] = math.Max(p.Rect[3], box[3])
		return
	}
	it.flush()
	it.pending = &extraction.TextRun{Text: text, Rect: box, Color: color}
	it.lastY = y0
}

func (it *interpreter) flush() {
	if it.pending != nil {
		it.runs = append(it.runs, *it.pending)
		it.pending = nil
	}
}

func sameColor(a, b markup.RunColor) bool {
	av, bv := a.Values(), b.Values()
	if len(av) != len(bv) {
		return false
	}
	for i := range av {
		if math.Abs(av[i]-bv[i]) > 1e-6 {
			return false
		}
	}
	return true
}

func cmykToRGB(v []float64) []float64 {
	c, m, y, k := v[0], v[1], v[2], v[3]
	return []float64{(1 - c) * (1 - k), (1 - m) * (1 - k), (1 - y) * (1 - k)}
}

// ─────────────────────────────────────────────────────────────────────────────
// Value helpers
// ─────────────────────────────────────────────────────────────────────────────

func floats(v lpdf.Value) []float64 {
	if v.Kind() != lpdf.Array {
		return nil
	}
	out := make([]float64, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		out = append(out, v.Index(i).Float64())
	}
	return out
}

func rect(v lpdf.Value) markup.BoundingBox {
	f := floats(v)
	if len(f) != 4 {
		return markup.BoundingBox{}
	}
	return markup.BoundingBox{
		math.Min(f[0], f[2]), math.Min(f[1], f[3]),
		math.Max(f[0], f[2]), math.Max(f[1], f[3]),
	}
}

// mediaHeight reads the MediaBox, which may be inherited from a parent node.
func mediaHeight(v lpdf.Value) float64 {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if box := rect(v.Key("MediaBox")); box != (markup.BoundingBox{}) {
			return box[3] - box[1]
		}
		v = v.Key("Parent")
	}
	return 0
}

//Personal.AI order the ending
