// Package assembler runs the page pipeline for every operation: load the
// input, check the options against it, select and copy pages into a fresh
// document, transform them, write the result and check it.
package assembler

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/operation"
	"github.com/local/pdftoolkit/internal/pdfdoc"
	"github.com/local/pdftoolkit/internal/pdferr"
	"github.com/local/pdftoolkit/internal/selector"
	"github.com/local/pdftoolkit/internal/transform"
)

var magic = []byte("%PDF")

// Limits are the size and page budgets enforced on every request.
type Limits struct {
	MaxFileBytes   int64
	MaxMergePages  int
	MaxOutputBytes int64
}

// DefaultLimits returns 50 MiB per file, 1000 merged pages and 100 MiB of
// output.
func DefaultLimits() Limits {
	return Limits{
		MaxFileBytes:   50 << 20,
		MaxMergePages:  1000,
		MaxOutputBytes: 100 << 20,
	}
}

// Verifier independently opens a written document and confirms its page
// count.
type Verifier interface {
	Verify(data []byte, pages int) error
}

// Input is one uploaded document.
type Input struct {
	Name string
	Data []byte
}

// Request is one operation over its inputs. Merge takes every input, the
// other operations take the first non-empty one.
type Request struct {
	Op     operation.Operation
	Inputs []Input
}

// Result is a written document.
type Result struct {
	Data       []byte
	Pages      int
	InputBytes int64
	// Ratio is the size reduction achieved by compress.
	Ratio float64
	// Warning is a soft note; the operation still succeeded.
	Warning string
}

// Assembler is safe for concurrent use; each call works on its own
// documents.
type Assembler struct {
	limits   Limits
	verifier Verifier
	creator  string
}

type Option func(*Assembler)

// WithVerifier checks every result with v before returning it.
func WithVerifier(v Verifier) Option {
	return func(a *Assembler) { a.verifier = v }
}

// WithCreator sets the creator written into result metadata.
func WithCreator(name string) Option {
	return func(a *Assembler) { a.creator = name }
}

func New(limits Limits, opts ...Option) *Assembler {
	a := &Assembler{limits: limits, creator: "pdftoolkit"}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Limits returns the budgets in force.
func (a *Assembler) Limits() Limits { return a.limits }

// Process runs req.Op. Options must already be parsed; they are validated
// again here so records built in code get their defaults too.
func (a *Assembler) Process(ctx context.Context, req Request) (*Result, error) {
	if err := operation.Validate(req.Op); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	var (
		res *Result
		err error
	)
	switch op := req.Op.(type) {
	case *operation.Merge:
		res, err = a.Merge(ctx, req.Inputs)
	default:
		var in Input
		in, err = single(req.Inputs)
		if err != nil {
			break
		}
		switch op := op.(type) {
		case *operation.Compress:
			res, err = a.Compress(ctx, in, op.Level)
		case *operation.Protect:
			res, err = a.Protect(ctx, in, op)
		case *operation.Unlock:
			res, err = a.Unlock(ctx, in, op)
		default:
			res, err = a.Assemble(ctx, in, op)
		}
	}
	if err == nil {
		err = a.verify(res)
	}
	if err != nil {
		log.Debug().Err(err).Str("op", string(req.Op.Tag())).Msg("operation failed")
		return nil, err
	}
	log.Info().
		Str("op", string(req.Op.Tag())).
		Int("pages", res.Pages).
		Int64("in_bytes", res.InputBytes).
		Int("out_bytes", len(res.Data)).
		Dur("took", time.Since(start)).
		Msg("operation done")
	return res, nil
}

func single(inputs []Input) (Input, error) {
	for _, in := range inputs {
		if len(in.Data) > 0 {
			return in, nil
		}
	}
	return Input{}, pdferr.Validation(pdferr.CodeNoValidFiles, "no file uploaded")
}

// checkInput enforces the per-file cap and the header magic.
func (a *Assembler) checkInput(in Input) error {
	if a.limits.MaxFileBytes > 0 && int64(len(in.Data)) > a.limits.MaxFileBytes {
		return pdferr.Validation(pdferr.CodeFileTooLarge, "%s is %d bytes, limit %d", label(in), len(in.Data), a.limits.MaxFileBytes)
	}
	if !bytes.HasPrefix(in.Data, magic) {
		return pdferr.Validation(pdferr.CodeInvalidFormat, "%s is not a PDF", label(in))
	}
	return nil
}

func label(in Input) string {
	if in.Name == "" {
		return "input"
	}
	return in.Name
}

// load checks and parses one input and rejects documents without pages.
func (a *Assembler) load(in Input, opts ...pdfdoc.LoadOption) (*pdfdoc.Document, error) {
	if err := a.checkInput(in); err != nil {
		return nil, err
	}
	doc, err := pdfdoc.Load(in.Data, append([]pdfdoc.LoadOption{pdfdoc.Named(in.Name)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if doc.PageCount() == 0 {
		return nil, pdferr.Validation(pdferr.CodeEmptyDocument, "%s has no pages", label(in))
	}
	log.Debug().Str("file", in.Name).Int("pages", doc.PageCount()).Msg("loaded")
	return doc, nil
}

// Assemble runs a single-document operation that selects and transforms
// pages.
func (a *Assembler) Assemble(ctx context.Context, in Input, op operation.Operation) (*Result, error) {
	src, err := a.load(in)
	if err != nil {
		return nil, err
	}
	indices, err := selector.Select(op, src.PageCount())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("op", string(op.Tag())).Int("selected", len(indices)).Msg("selected")

	out, err := copyInto(src, indices)
	if err != nil {
		return nil, err
	}
	save := pdfdoc.CompatibilitySave()
	if err := a.transform(ctx, out, op, indices, save.BatchSize); err != nil {
		return nil, err
	}
	return a.finish(out, op.Tag(), int64(len(in.Data)), save)
}

func copyInto(src *pdfdoc.Document, indices []int) (*pdfdoc.Document, error) {
	pages, err := src.CopyPages(indices)
	if err != nil {
		return nil, err
	}
	out := pdfdoc.New()
	if err := out.AddPages(pages); err != nil {
		return nil, err
	}
	return out, nil
}

// transform applies op to every page of out. origins holds the source
// index of each output page.
func (a *Assembler) transform(ctx context.Context, out *pdfdoc.Document, op operation.Operation, origins []int, batch int) error {
	var rotate map[int]bool
	if r, ok := op.(*operation.Rotate); ok && len(r.Pages) > 0 {
		rotate = make(map[int]bool, len(r.Pages))
		for _, n := range r.Pages {
			rotate[n] = true
		}
	}

	skipped := 0
	err := eachPage(ctx, out, batch, func(i int, p *pdfdoc.Page) error {
		switch o := op.(type) {
		case *operation.Rotate:
			if rotate == nil || rotate[origins[i]+1] {
				transform.Rotate(p, o.Angle)
			}
		case *operation.Crop:
			ok, err := transform.Crop(p, o.Margins)
			if err != nil {
				return err
			}
			if !ok {
				skipped++
			}
		case *operation.Watermark:
			return transform.Watermark(p, o)
		case *operation.PageNumbers:
			return transform.PageNumber(p, i, o)
		}
		return nil
	})
	if skipped > 0 {
		log.Info().Int("pages", skipped).Msg("crop left pages unchanged, margins exceed page size")
	}
	return err
}

// eachPage calls fn for every page, yielding and checking ctx after every
// batch pages.
func eachPage(ctx context.Context, doc *pdfdoc.Document, batch int, fn func(int, *pdfdoc.Page) error) error {
	if batch <= 0 {
		batch = pdfdoc.DefaultBatchSize
	}
	for i := 0; i < doc.PageCount(); i++ {
		if i > 0 && i%batch == 0 {
			runtime.Gosched()
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		p, err := doc.Page(i)
		if err != nil {
			return err
		}
		if err := fn(i, p); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
	}
	return nil
}

// finish stamps metadata, writes out and checks the written bytes.
func (a *Assembler) finish(out *pdfdoc.Document, tag operation.Tag, inBytes int64, save pdfdoc.SaveOptions) (*Result, error) {
	pages := out.PageCount()
	out.SetMetadata(pdfdoc.Metadata{
		Title:    fmt.Sprintf("%s result", tag),
		Author:   a.creator,
		Subject:  "processed document",
		Creator:  a.creator,
		Producer: a.creator,
	})
	data, err := out.Serialize(save)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("op", string(tag)).Int("bytes", len(data)).Msg("serialized")
	if err := a.checkOutput(data, pages); err != nil {
		return nil, err
	}
	return &Result{Data: data, Pages: pages, InputBytes: inBytes}, nil
}

func (a *Assembler) checkOutput(data []byte, pages int) error {
	if len(data) == 0 {
		return pdferr.Output(pdferr.CodeEmptyOutput, "writer produced no bytes")
	}
	if a.limits.MaxOutputBytes > 0 && int64(len(data)) > a.limits.MaxOutputBytes {
		return pdferr.Output(pdferr.CodeOutputTooLarge, "output is %d bytes, limit %d", len(data), a.limits.MaxOutputBytes)
	}
	return nil
}

// verify runs the optional second reader over a final result.
func (a *Assembler) verify(res *Result) error {
	if a.verifier == nil {
		return nil
	}
	if err := a.verifier.Verify(res.Data, res.Pages); err != nil {
		return pdferr.Output(pdferr.CodeUnreadableOutput, "%v", err)
	}
	return nil
}
