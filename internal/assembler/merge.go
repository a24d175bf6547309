package assembler

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/operation"
	"github.com/local/pdftoolkit/internal/pdfdoc"
	"github.com/local/pdftoolkit/internal/pdferr"
	"github.com/local/pdftoolkit/internal/selector"
)

// Merge concatenates every page of the inputs in order. Zero-length
// inputs are skipped as empty form fields. The page budget is checked
// before each file's pages are copied and any failure aborts the merge.
func (a *Assembler) Merge(ctx context.Context, inputs []Input) (*Result, error) {
	out := pdfdoc.New()
	var (
		total   int
		used    int
		inBytes int64
	)
	for i, in := range inputs {
		if len(in.Data) == 0 {
			log.Debug().Int("index", i).Str("file", in.Name).Msg("skipping empty upload")
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := a.load(in)
		if err != nil {
			return nil, err
		}
		n := doc.PageCount()
		if a.limits.MaxMergePages > 0 && total+n > a.limits.MaxMergePages {
			return nil, pdferr.Validation(pdferr.CodePageBudgetExceeded,
				"%s brings the merge to %d pages, limit %d", label(in), total+n, a.limits.MaxMergePages)
		}
		pages, err := doc.CopyPages(selector.Identity(n))
		if err != nil {
			return nil, err
		}
		if err := out.AddPages(pages); err != nil {
			return nil, err
		}
		total += n
		used++
		inBytes += int64(len(in.Data))
	}
	if used == 0 {
		return nil, pdferr.Validation(pdferr.CodeNoValidFiles, "no usable files among %d uploads", len(inputs))
	}
	log.Debug().Int("files", used).Int("pages", total).Msg("merge assembled")
	return a.finish(out, operation.TagMerge, inBytes, pdfdoc.CompatibilitySave())
}
