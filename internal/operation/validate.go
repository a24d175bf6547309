package operation

import (
	"strings"

	"github.com/local/pdftoolkit/internal/pdferr"
)

const (
	DefaultWatermarkOpacity  = 0.3
	DefaultWatermarkFontSize = 48
	DefaultNumberFontSize    = 12
)

func invalid(format string, args ...any) error {
	return pdferr.Validation(pdferr.CodeInvalidOptions, format, args...)
}

func (*Merge) validate() error { return nil }

func (s *Split) validate() error {
	if s.PageRange != nil && s.EveryPages != nil {
		return invalid("split takes either pageRange or everyPages, not both")
	}
	return nil
}

func (c *Compress) validate() error {
	c.Level = Level(strings.ToLower(string(c.Level)))
	switch c.Level {
	case LevelLow, LevelMedium, LevelHigh:
	default:
		c.Level = LevelMedium
	}
	return nil
}

func (e *ExtractPages) validate() error {
	if len(e.Pages) == 0 {
		return pdferr.Validation(pdferr.CodeEmptySelection, "no pages given")
	}
	return nil
}

// validate accepts an empty list, which keeps every page.
func (*RemovePages) validate() error { return nil }

func (r *Rotate) validate() error {
	if r.Angle%90 != 0 {
		return invalid("rotation %d is not a multiple of 90", r.Angle)
	}
	return nil
}

func (p *Protect) validate() error {
	if p.Password == "" {
		return invalid("password is required")
	}
	if p.OwnerPassword == "" {
		p.OwnerPassword = p.Password
	}
	return nil
}

func (u *Unlock) validate() error {
	if u.Password == "" {
		return invalid("password is required")
	}
	return nil
}

func (w *Watermark) validate() error {
	if strings.TrimSpace(w.Text) == "" {
		return invalid("watermark text is required")
	}
	if w.Opacity == nil {
		o := DefaultWatermarkOpacity
		w.Opacity = &o
	}
	if *w.Opacity < 0 || *w.Opacity > 1 {
		return invalid("opacity %g outside [0, 1]", *w.Opacity)
	}
	if w.FontSize <= 0 {
		w.FontSize = DefaultWatermarkFontSize
	}
	if w.Position == "" {
		w.Position = "center"
	}
	return nil
}

func (p *PageNumbers) validate() error {
	if p.FontSize <= 0 {
		p.FontSize = DefaultNumberFontSize
	}
	if p.StartNumber == 0 {
		p.StartNumber = 1
	}
	if p.Position == "" {
		p.Position = "bottom-center"
	}
	return nil
}

func (c *Crop) validate() error {
	m := &c.Margins
	m.Unit = Unit(strings.ToLower(string(m.Unit)))
	switch m.Unit {
	case "":
		m.Unit = UnitPoint
	case UnitPoint, UnitMillimetre, UnitInch:
	default:
		return invalid("unknown crop unit %q", m.Unit)
	}
	if m.Top < 0 || m.Right < 0 || m.Bottom < 0 || m.Left < 0 {
		return invalid("crop margins must not be negative")
	}
	return nil
}

func (o *Organize) validate() error {
	if len(o.PageOrder) == 0 {
		return pdferr.Validation(pdferr.CodeEmptySelection, "empty page order")
	}
	return nil
}
