// Package verify re-opens written documents with an independent reader.
package verify

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// Opener opens document bytes and reports their page count.
type Opener interface {
	PageCount(data []byte) (int, error)
}

// FitzOpener opens documents with MuPDF through go-fitz.
type FitzOpener struct{}

func (FitzOpener) PageCount(data []byte) (int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// Checker confirms a document opens and has the expected page count.
type Checker struct {
	opener Opener
}

// New returns a Checker backed by MuPDF.
func New() *Checker { return &Checker{opener: FitzOpener{}} }

// WithOpener returns a Checker using o.
func WithOpener(o Opener) *Checker { return &Checker{opener: o} }

func (c *Checker) Verify(data []byte, pages int) error {
	n, err := c.opener.PageCount(data)
	if err != nil {
		return err
	}
	if n != pages {
		return fmt.Errorf("reader sees %d pages, want %d", n, pages)
	}
	log.Debug().Int("pages", n).Msg("output verified")
	return nil
}
