package pdfdoc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	fontName = "PTKHelv"
	gsPrefix = "PTKGS"
)

// Color is an RGB fill color with components in [0, 1].
type Color struct{ R, G, B float64 }

var Gray = Color{0.5, 0.5, 0.5}

// TextStyle describes an overlay text run.
type TextStyle struct {
	Size    float64
	Opacity float64
	Color   Color
}

// helvetica holds the standard Helvetica advance widths for printable
// ASCII, in 1/1000 em.
var helvetica = [95]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278, // ' '..'/'
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, // '0'..'9'
	278, 278, 584, 584, 584, 556, 1015, // ':'..'@'
	667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, // 'A'..'M'
	722, 778, 667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, // 'N'..'Z'
	278, 278, 278, 469, 556, 333, // '['..'`'
	556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, // 'a'..'m'
	556, 556, 556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, // 'n'..'z'
	334, 260, 334, 584, // '{'..'~'
}

// TextWidth estimates the width of s set in Helvetica at size points.
func TextWidth(s string, size float64) float64 {
	units := 0
	for _, b := range winAnsi(s) {
		if b >= 32 && b <= 126 {
			units += helvetica[b-32]
		} else {
			units += 500
		}
	}
	return float64(units) * size / 1000
}

// winAnsi converts s to Windows-1252, replacing what the code page lacks.
func winAnsi(s string) []byte {
	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return []byte(strings.Map(func(r rune) rune {
			if r < 128 {
				return r
			}
			return '?'
		}, s))
	}
	return out
}

// literal renders b as a PDF string literal.
func literal(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, c := range b {
		switch c {
		case '\\', '(', ')':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\r':
			sb.WriteString(`\r`)
		case '\n':
			sb.WriteString(`\n`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// DrawText draws s with its baseline starting at x, y in default user
// space. Existing content is kept and wrapped so its graphics state cannot
// leak into the overlay.
func (p *Page) DrawText(s string, x, y float64, st TextStyle) error {
	if s == "" {
		return nil
	}
	if st.Size <= 0 {
		return fmt.Errorf("font size %g", st.Size)
	}
	font, gs, err := p.overlayResources(st.Opacity)
	if err != nil {
		return err
	}
	ox, oy := p.Origin()
	overlay := fmt.Sprintf("q /%s gs %s %s %s rg BT /%s %s Tf %s %s Td %s Tj ET Q\n",
		gs, num(st.Color.R), num(st.Color.G), num(st.Color.B),
		font, num(st.Size), num(ox+x), num(oy+y), literal(winAnsi(s)))
	return p.rewrite([]byte("q\n"), []byte("\nQ\n"), []byte(overlay))
}

// overlayResources registers the overlay font and an opacity state in the
// page resources and returns their names.
func (p *Page) overlayResources(opacity float64) (string, string, error) {
	ctx := p.run.ctx
	if p.run.font == nil {
		d := types.Dict{
			"Type":     types.Name("Font"),
			"Subtype":  types.Name("Type1"),
			"BaseFont": types.Name("Helvetica"),
			"Encoding": types.Name("WinAnsiEncoding"),
		}
		ref, err := ctx.IndRefForNewObject(d)
		if err != nil {
			return "", "", err
		}
		p.run.font = ref
	}

	key := strconv.FormatFloat(opacity, 'f', 3, 64)
	gsRef, ok := p.run.states[key]
	if !ok {
		d := types.Dict{
			"Type": types.Name("ExtGState"),
			"ca":   types.Float(opacity),
			"CA":   types.Float(opacity),
		}
		ref, err := ctx.IndRefForNewObject(d)
		if err != nil {
			return "", "", err
		}
		gsRef = *ref
		p.run.states[key] = gsRef
	}
	gsName := gsPrefix + strings.ReplaceAll(key, ".", "_")

	if _, ok := p.dict.Find("Resources"); !ok {
		// pull inherited resources down so the page keeps them
		if _, _, inh, err := ctx.PageDict(p.nr, false); err == nil && inh != nil && inh.Resources != nil {
			p.dict["Resources"] = inh.Resources.Clone()
		}
	}
	res, err := p.ownedDict(p.dict, "Resources")
	if err != nil {
		return "", "", err
	}
	fonts, err := p.ownedDict(res, "Font")
	if err != nil {
		return "", "", err
	}
	fonts[fontName] = *p.run.font
	states, err := p.ownedDict(res, "ExtGState")
	if err != nil {
		return "", "", err
	}
	states[gsName] = gsRef
	return fontName, gsName, nil
}

// ownedDict returns parent[key] as a direct dictionary private to this
// page, cloning it first when it is shared through an indirect reference.
func (p *Page) ownedDict(parent types.Dict, key string) (types.Dict, error) {
	obj, ok := parent.Find(key)
	if !ok || obj == nil {
		d := types.Dict{}
		parent[key] = d
		return d, nil
	}
	if d, ok := obj.(types.Dict); ok {
		return d, nil
	}
	d, err := p.run.ctx.DereferenceDict(obj)
	if err != nil {
		return nil, fmt.Errorf("resolve /%s: %w", key, err)
	}
	if d == nil {
		d = types.Dict{}
	} else {
		d = d.Clone().(types.Dict)
	}
	parent[key] = d
	return d, nil
}
