package pdfdoc

import (
	"bytes"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/pdferr"
)

// DefaultBatchSize is the page batch used by compatibility saves.
const DefaultBatchSize = 100

// SaveOptions controls serialization.
type SaveOptions struct {
	// ObjectStreams packs objects into compressed object streams with a
	// cross-reference stream. Off means a classic xref table that older
	// readers accept.
	ObjectStreams bool
	// BatchSize is the number of pages processed between yield points by
	// callers transforming large documents.
	BatchSize int
}

// CompatibilitySave returns options favouring broad reader support.
func CompatibilitySave() SaveOptions {
	return SaveOptions{ObjectStreams: false, BatchSize: DefaultBatchSize}
}

// Serialize writes the document and retires it. Page handles and further
// calls fail with ErrSerialized afterwards. Document level scripts and
// page actions are never written.
func (d *Document) Serialize(opts SaveOptions) ([]byte, error) {
	if d.done {
		return nil, ErrSerialized
	}
	if d.PageCount() == 0 {
		return nil, pdferr.Output(pdferr.CodeEmptyOutput, "document has no pages")
	}
	d.done = true

	ctx, err := d.flatten()
	if err != nil {
		return nil, err
	}
	if err := sanitize(ctx); err != nil {
		return nil, err
	}
	if err := writeInfo(ctx, d.meta); err != nil {
		return nil, err
	}
	if ctx.Configuration == nil {
		ctx.Configuration = model.NewDefaultConfiguration()
	}
	ctx.Configuration.WriteObjectStream = opts.ObjectStreams
	ctx.Configuration.WriteXRefStream = opts.ObjectStreams

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flatten returns a single context holding every page, concatenating runs
// with a raw merge when there is more than one.
func (d *Document) flatten() (*model.Context, error) {
	if len(d.runs) == 1 {
		return d.runs[0].ctx, nil
	}
	readers := make([]io.ReadSeeker, 0, len(d.runs))
	for _, r := range d.runs {
		var seg bytes.Buffer
		if err := api.WriteContext(r.ctx, &seg); err != nil {
			return nil, err
		}
		readers = append(readers, bytes.NewReader(seg.Bytes()))
	}
	log.Debug().Int("runs", len(readers)).Msg("merging page runs")

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	var merged bytes.Buffer
	if err := api.MergeRaw(readers, &merged, false, conf); err != nil {
		return nil, err
	}
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(merged.Bytes()), conf)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// sanitize drops catalog actions, the JavaScript name tree and page
// additional actions.
func sanitize(ctx *model.Context) error {
	root, err := ctx.Catalog()
	if err != nil {
		return err
	}
	root.Delete("OpenAction")
	root.Delete("AA")
	// the writer rebinds /Names from the cached trees
	delete(ctx.Names, "JavaScript")
	if obj, ok := root.Find("Names"); ok {
		names, err := ctx.DereferenceDict(obj)
		if err != nil {
			return err
		}
		if names != nil {
			names.Delete("JavaScript")
		}
	}
	for nr := 1; nr <= ctx.PageCount; nr++ {
		page, _, _, err := ctx.PageDict(nr, false)
		if err != nil {
			return err
		}
		if page != nil {
			page.Delete("AA")
		}
	}
	return nil
}

func writeInfo(ctx *model.Context, m Metadata) error {
	info := types.Dict{}
	for _, kv := range []struct{ key, val string }{
		{"Title", m.Title},
		{"Author", m.Author},
		{"Subject", m.Subject},
		{"Keywords", m.Keywords},
		{"Creator", m.Creator},
		{"Producer", m.Producer},
	} {
		if kv.val != "" {
			info[kv.key] = types.StringLiteral(escape(winAnsi(kv.val)))
		}
	}
	ref, err := ctx.IndRefForNewObject(info)
	if err != nil {
		return err
	}
	ctx.Info = ref
	return nil
}

// escape returns the body of a string literal, without the parentheses.
func escape(b []byte) string {
	s := literal(b)
	return s[1 : len(s)-1]
}
