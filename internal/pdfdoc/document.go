// Package pdfdoc is the document handle the assembler works on. A Document
// is an ordered list of page runs, each run a pdfcpu context owning its
// pages, plus the metadata written on save.
package pdfdoc

import (
	"bytes"
	"errors"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/local/pdftoolkit/internal/pdferr"
)

// ErrSerialized is returned by operations on a document that was already
// written out.
var ErrSerialized = errors.New("pdfdoc: document already serialized")

// Metadata is the Info dictionary content.
type Metadata struct {
	Title    string
	Author   string
	Subject  string
	Keywords string
	Creator  string
	// Producer may be overwritten by the writer's own stamp.
	Producer string
}

type run struct {
	ctx *model.Context
	// overlay resources already added to this run
	font   *types.IndirectRef
	states map[string]types.IndirectRef
}

type offset struct{ x, y float64 }

// Document holds the pages of one in-flight request.
type Document struct {
	name    string
	runs    []*run
	meta    Metadata
	offsets map[int]offset
	done    bool
}

type loadOptions struct {
	name     string
	userPW   string
	ownerPW  string
	validate bool
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// Named sets the name used in parse errors, usually the upload filename.
func Named(name string) LoadOption {
	return func(o *loadOptions) { o.name = name }
}

// Password opens an encrypted document.
func Password(user, owner string) LoadOption {
	return func(o *loadOptions) {
		o.userPW = user
		o.ownerPW = owner
	}
}

func readConfig(o loadOptions) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if o.userPW != "" || o.ownerPW != "" {
		conf.UserPW = o.userPW
		conf.OwnerPW = o.ownerPW
	}
	return conf
}

// Load parses data. Anything pdfcpu cannot read and validate is a
// *pdferr.ParseError.
func Load(data []byte, opts ...LoadOption) (*Document, error) {
	o := loadOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if len(data) == 0 {
		return nil, pdferr.Parse(o.name, errors.New("empty input"))
	}
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), readConfig(o))
	if err != nil {
		return nil, pdferr.Parse(o.name, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, pdferr.Parse(o.name, err)
	}
	d := New()
	d.name = o.name
	d.meta = Metadata{
		Title:    ctx.Title,
		Author:   ctx.Author,
		Subject:  ctx.Subject,
		Keywords: ctx.Keywords,
		Creator:  ctx.Creator,
		Producer: ctx.Producer,
	}
	d.runs = []*run{newRun(ctx)}
	return d, nil
}

// New returns an empty document with zero pages.
func New() *Document {
	return &Document{offsets: map[int]offset{}}
}

func newRun(ctx *model.Context) *run {
	return &run{ctx: ctx, states: map[string]types.IndirectRef{}}
}

// Name returns the name given at load time.
func (d *Document) Name() string { return d.name }

// PageCount returns the number of pages across all runs.
func (d *Document) PageCount() int {
	n := 0
	for _, r := range d.runs {
		n += r.ctx.PageCount
	}
	return n
}

// Metadata returns the document metadata.
func (d *Document) Metadata() Metadata { return d.meta }

// SetMetadata replaces the metadata written on save.
func (d *Document) SetMetadata(m Metadata) { d.meta = m }

// locate maps a zero-based page index to its run and the 1-based page
// number inside that run.
func (d *Document) locate(i int) (*run, int, error) {
	if i < 0 {
		return nil, 0, &pdferr.IndexError{Index: i, Count: d.PageCount()}
	}
	rest := i
	for _, r := range d.runs {
		if rest < r.ctx.PageCount {
			return r, rest + 1, nil
		}
		rest -= r.ctx.PageCount
	}
	return nil, 0, &pdferr.IndexError{Index: i, Count: d.PageCount()}
}

// Pages is a detached sequence of copied pages. It belongs to no document
// until passed to AddPages.
type Pages struct {
	runs []*model.Context
}

// Len returns the number of pages held.
func (p *Pages) Len() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, ctx := range p.runs {
		n += ctx.PageCount
	}
	return n
}

// CopyPages copies the pages at the zero-based indices, in the order given.
// Repeated indices give independent copies. The copies share no objects
// with d.
func (d *Document) CopyPages(indices []int) (*Pages, error) {
	if d.done {
		return nil, ErrSerialized
	}
	total := d.PageCount()
	for _, i := range indices {
		if i < 0 || i >= total {
			return nil, &pdferr.IndexError{Index: i, Count: total}
		}
	}

	out := &Pages{}
	var (
		cur *run
		nrs []int
	)
	flush := func() error {
		if len(nrs) == 0 {
			return nil
		}
		ctx, err := pdfcpu.ExtractPages(cur.ctx, nrs, false)
		if err != nil {
			return err
		}
		if err := ctx.EnsurePageCount(); err != nil {
			return err
		}
		fixStreams(ctx)
		out.runs = append(out.runs, ctx)
		nrs = nil
		return nil
	}
	for _, i := range indices {
		r, nr, _ := d.locate(i)
		if r != cur {
			if err := flush(); err != nil {
				return nil, err
			}
			cur = r
		}
		nrs = append(nrs, nr)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// AddPages appends p to d. p is emptied and must not be reused.
func (d *Document) AddPages(p *Pages) error {
	if d.done {
		return ErrSerialized
	}
	if p == nil {
		return nil
	}
	for _, ctx := range p.runs {
		if ctx.PageCount > 0 {
			d.runs = append(d.runs, newRun(ctx))
		}
	}
	p.runs = nil
	return nil
}

// Page returns a handle on the zero-based page i.
func (d *Document) Page(i int) (*Page, error) {
	if d.done {
		return nil, ErrSerialized
	}
	r, nr, err := d.locate(i)
	if err != nil {
		return nil, err
	}
	dict, _, _, err := r.ctx.PageDict(nr, false)
	if err != nil {
		return nil, err
	}
	if dict == nil {
		return nil, &pdferr.IndexError{Index: i, Count: d.PageCount()}
	}
	return &Page{doc: d, run: r, nr: nr, index: i, dict: dict}, nil
}

// fixStreams resets the empty filter lists page migration leaves on
// unfiltered streams. Decoding treats an empty, non-nil list as a filter
// chain and reads from no source.
func fixStreams(ctx *model.Context) {
	for _, e := range ctx.Table {
		if e == nil || e.Free {
			continue
		}
		sd, ok := e.Object.(types.StreamDict)
		if ok && sd.FilterPipeline != nil && len(sd.FilterPipeline) == 0 {
			sd.FilterPipeline = nil
			e.Object = sd
		}
	}
}
