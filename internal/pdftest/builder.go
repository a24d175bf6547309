// Package pdftest builds small, structurally valid PDF files in memory for
// package tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Size is a page size in points.
type Size struct {
	W, H float64
}

var Letter = Size{612, 792}

type options struct {
	sizes      []Size
	rotations  map[int]int
	javascript bool
	title      string
}

// Option customises a fixture.
type Option func(*options)

// Pages gives the fixture n pages of Letter size.
func Pages(n int) Option {
	return func(o *options) {
		o.sizes = make([]Size, n)
		for i := range o.sizes {
			o.sizes[i] = Letter
		}
	}
}

// Sizes gives the fixture one page per size, in order.
func Sizes(s ...Size) Option {
	return func(o *options) { o.sizes = append([]Size(nil), s...) }
}

// Rotated sets /Rotate on the zero-based page i.
func Rotated(i, angle int) Option {
	return func(o *options) { o.rotations[i] = angle }
}

// WithJavaScript adds a document OpenAction, a JavaScript name tree and a
// page open action, all running a script.
func WithJavaScript() Option {
	return func(o *options) { o.javascript = true }
}

// Title sets the Info dictionary title.
func Title(t string) Option {
	return func(o *options) { o.title = t }
}

// Build renders the fixture. Each page shows "Page N" in Helvetica.
func Build(opts ...Option) []byte {
	o := options{rotations: map[int]int{}, title: "fixture"}
	Pages(1)(&o)
	for _, fn := range opts {
		fn(&o)
	}

	n := len(o.sizes)
	// 1 catalog, 2 pages, 3 font, 4 info, 5 script, then page/content pairs
	const firstPage = 6
	objs := make([]string, firstPage-1+2*n)

	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", firstPage+2*i)
	}

	catalog := "<< /Type /Catalog /Pages 2 0 R"
	if o.javascript {
		catalog += " /OpenAction 5 0 R /Names << /JavaScript << /Names [(init) 5 0 R] >> >>"
	}
	objs[0] = catalog + " >>"
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n)
	objs[2] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"
	objs[3] = fmt.Sprintf("<< /Title (%s) /Producer (pdftest) >>", o.title)
	objs[4] = "<< /S /JavaScript /JS (app.alert\\('hi'\\);) >>"

	for i, s := range o.sizes {
		page := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R",
			num(s.W), num(s.H), firstPage+2*i+1)
		if r, ok := o.rotations[i]; ok {
			page += fmt.Sprintf(" /Rotate %d", r)
		}
		if o.javascript {
			page += " /AA << /O 5 0 R >>"
		}
		objs[firstPage-1+2*i] = page + " >>"

		content := fmt.Sprintf("BT /F1 24 Tf 72 72 Td (Page %d) Tj ET", i+1)
		objs[firstPage+2*i] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func num(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
