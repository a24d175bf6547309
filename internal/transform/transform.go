// Package transform holds the page-local mutations applied to copied pages
// before the output document is written.
package transform

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/operation"
	"github.com/local/pdftoolkit/internal/pdfdoc"
)

const (
	pointsPerMM   = 2.834645669
	pointsPerInch = 72

	watermarkMargin = 50
	numberMargin    = 30
)

// ToPoints converts v in unit to points. Unknown units count as points.
func ToPoints(v float64, unit operation.Unit) float64 {
	switch unit {
	case operation.UnitMillimetre:
		return v * pointsPerMM
	case operation.UnitInch:
		return v * pointsPerInch
	}
	return v
}

// Rotate sets the absolute page rotation.
func Rotate(p *pdfdoc.Page, angle int) {
	p.SetRotation(angle)
}

// Crop removes the margins from p. When the remaining area would not be
// positive the page is left as it is and Crop reports false.
func Crop(p *pdfdoc.Page, m operation.Margins) (bool, error) {
	top := ToPoints(m.Top, m.Unit)
	right := ToPoints(m.Right, m.Unit)
	bottom := ToPoints(m.Bottom, m.Unit)
	left := ToPoints(m.Left, m.Unit)

	w := p.Width() - left - right
	h := p.Height() - top - bottom
	if w <= 0 || h <= 0 {
		log.Debug().Int("page", p.Index()+1).Float64("width", w).Float64("height", h).Msg("crop skipped")
		return false, nil
	}
	ox, oy := p.Origin()
	if err := p.Translate(-(ox + left), -(oy + bottom)); err != nil {
		return false, err
	}
	p.Resize(w, h)
	return true, nil
}

// Scale shrinks or grows the page and its content uniformly by f.
func Scale(p *pdfdoc.Page, f float64) error {
	if f == 1 || f <= 0 {
		return nil
	}
	w, h := p.Width()*f, p.Height()*f
	ox, oy := p.Origin()
	if err := p.Concat(f, 0, 0, f, -ox*f, -oy*f); err != nil {
		return err
	}
	p.Resize(w, h)
	return nil
}

// Watermark draws the watermark text. "center" centres it; positions
// starting with "top" anchor it top left, anything else bottom left.
func Watermark(p *pdfdoc.Page, o *operation.Watermark) error {
	size := o.FontSize
	tw := pdfdoc.TextWidth(o.Text, size)
	w, h := p.Width(), p.Height()

	var x, y float64
	pos := strings.ToLower(o.Position)
	switch {
	case pos == "center":
		x, y = (w-tw)/2, (h-size)/2
	case strings.HasPrefix(pos, "top"):
		x, y = watermarkMargin, h-watermarkMargin-size
	default:
		x, y = watermarkMargin, watermarkMargin
	}
	opacity := operation.DefaultWatermarkOpacity
	if o.Opacity != nil {
		opacity = *o.Opacity
	}
	return p.DrawText(o.Text, x, y, pdfdoc.TextStyle{Size: size, Opacity: opacity, Color: pdfdoc.Gray})
}

// PageNumber draws startNumber+index at one of six anchors, bottom-center
// when the position is not recognised. index is the page position in the
// output document.
func PageNumber(p *pdfdoc.Page, index int, o *operation.PageNumbers) error {
	text := strconv.Itoa(o.StartNumber + index)
	size := o.FontSize
	tw := pdfdoc.TextWidth(text, size)
	w, h := p.Width(), p.Height()

	vertical, horizontal := "bottom", "center"
	if v, hz, ok := strings.Cut(strings.ToLower(o.Position), "-"); ok {
		if (v == "top" || v == "bottom") && (hz == "left" || hz == "center" || hz == "right") {
			vertical, horizontal = v, hz
		}
	}

	y := float64(numberMargin)
	if vertical == "top" {
		y = h - numberMargin - size
	}
	var x float64
	switch horizontal {
	case "left":
		x = numberMargin
	case "right":
		x = w - numberMargin - tw
	default:
		x = (w - tw) / 2
	}
	return p.DrawText(text, x, y, pdfdoc.TextStyle{Size: size, Opacity: 1, Color: pdfdoc.Color{}})
}
