package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Page is a handle on one page of a Document. Handles are cheap; changes
// go straight into the owning document.
type Page struct {
	doc   *Document
	run   *run
	nr    int
	index int
	dict  types.Dict
}

// Index returns the zero-based position of the page in its document.
func (p *Page) Index() int { return p.index }

func (p *Page) box() *types.Rectangle {
	_, _, inh, err := p.run.ctx.PageDict(p.nr, false)
	if err != nil || inh == nil {
		return types.RectForWidthAndHeight(0, 0, 0, 0)
	}
	if inh.CropBox != nil {
		return inh.CropBox
	}
	if inh.MediaBox != nil {
		return inh.MediaBox
	}
	return types.RectForWidthAndHeight(0, 0, 0, 0)
}

// Width returns the visible width in points, ignoring rotation.
func (p *Page) Width() float64 { return p.box().Width() }

// Height returns the visible height in points, ignoring rotation.
func (p *Page) Height() float64 { return p.box().Height() }

// Origin returns the lower left corner of the visible box.
func (p *Page) Origin() (float64, float64) {
	b := p.box()
	return b.LL.X, b.LL.Y
}

// Rotation returns the page rotation in degrees.
func (p *Page) Rotation() int {
	if obj, ok := p.dict.Find("Rotate"); ok {
		if i, ok := obj.(types.Integer); ok {
			return int(i)
		}
	}
	_, _, inh, err := p.run.ctx.PageDict(p.nr, false)
	if err != nil || inh == nil {
		return 0
	}
	return inh.Rotate
}

// SetRotation sets the absolute rotation. The angle is stored as given.
func (p *Page) SetRotation(angle int) {
	p.dict["Rotate"] = types.Integer(angle)
}

// Offset returns the accumulated content-origin translation.
func (p *Page) Offset() (float64, float64) {
	o := p.doc.offsets[p.index]
	return o.x, o.y
}

// Resize makes the page w by h points with its origin at 0,0. Media and
// crop boxes are both replaced.
func (p *Page) Resize(w, h float64) {
	r := types.RectForWidthAndHeight(0, 0, w, h)
	p.dict["MediaBox"] = r.Array()
	p.dict["CropBox"] = r.Array()
	p.dict.Delete("TrimBox")
	p.dict.Delete("BleedBox")
	p.dict.Delete("ArtBox")
}

// Translate moves the page content by dx, dy.
func (p *Page) Translate(dx, dy float64) error {
	if dx == 0 && dy == 0 {
		return nil
	}
	if err := p.Concat(1, 0, 0, 1, dx, dy); err != nil {
		return err
	}
	o := p.doc.offsets[p.index]
	p.doc.offsets[p.index] = offset{o.x + dx, o.y + dy}
	return nil
}

// Concat prepends a transformation matrix to the existing content.
func (p *Page) Concat(a, b, c, d, e, f float64) error {
	prefix := fmt.Sprintf("q %s %s %s %s %s %s cm\n", num(a), num(b), num(c), num(d), num(e), num(f))
	return p.rewrite([]byte(prefix), []byte("\nQ\n"), nil)
}

// content returns the decoded page content, streams of a /Contents array
// joined by newlines. A page without content yields nil.
func (p *Page) content() ([]byte, error) {
	ctx := p.run.ctx
	o, ok := p.dict.Find("Contents")
	if !ok || o == nil {
		return nil, nil
	}
	o, err := ctx.Dereference(o)
	if err != nil || o == nil {
		return nil, err
	}
	switch o := o.(type) {
	case types.StreamDict:
		return decode(&o)
	case types.Array:
		var buf bytes.Buffer
		for _, e := range o {
			sd, _, err := ctx.DereferenceStreamDict(e)
			if err != nil {
				return nil, err
			}
			if sd == nil {
				continue
			}
			b, err := decode(sd)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("page %d: unexpected /Contents %T", p.index+1, o)
}

func decode(sd *types.StreamDict) ([]byte, error) {
	if len(sd.FilterPipeline) == 0 {
		sd.FilterPipeline = nil
	}
	err := sd.Decode()
	if errors.Is(err, filter.ErrUnsupportedFilter) {
		return nil, errors.New("unsupported filter: unable to decode content")
	}
	if err != nil {
		return nil, err
	}
	return sd.Content, nil
}

// rewrite replaces the page content with prefix, content, suffix, extra.
// The old streams are left untouched since other pages may share them.
func (p *Page) rewrite(prefix, suffix, extra []byte) error {
	old, err := p.content()
	if err != nil {
		return fmt.Errorf("read content of page %d: %w", p.index+1, err)
	}
	var buf bytes.Buffer
	buf.Write(prefix)
	buf.Write(old)
	buf.Write(suffix)
	buf.Write(extra)

	sd, err := p.run.ctx.NewStreamDictForBuf(buf.Bytes())
	if err != nil {
		return err
	}
	if err := sd.Encode(); err != nil {
		return err
	}
	ref, err := p.run.ctx.IndRefForNewObject(*sd)
	if err != nil {
		return err
	}
	p.dict["Contents"] = *ref
	return nil
}

func num(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	s = trimZeros(s)
	if s == "-0" {
		return "0"
	}
	return s
}

func trimZeros(s string) string {
	if !bytes.ContainsRune([]byte(s), '.') {
		return s
	}
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}
