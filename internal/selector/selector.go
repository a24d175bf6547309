// Package selector maps an operation and a page count onto the ordered,
// zero-based page indices that go into the output document.
package selector

import (
	"github.com/local/pdftoolkit/internal/operation"
	"github.com/local/pdftoolkit/internal/pdferr"
)

// Select returns the page indices op keeps from a document of total pages.
// Transform-only operations select the whole document.
func Select(op operation.Operation, total int) ([]int, error) {
	switch o := op.(type) {
	case *operation.Split:
		switch {
		case o.PageRange != nil:
			return Range(o.PageRange.Start, o.PageRange.End, total)
		case o.EveryPages != nil:
			return Every(*o.EveryPages, total), nil
		}
		return Identity(total), nil
	case *operation.ExtractPages:
		return Explicit(o.Pages, total)
	case *operation.Organize:
		return Explicit(o.PageOrder, total)
	case *operation.RemovePages:
		return Exclude(o.PagesToRemove, total)
	case nil:
		return nil, pdferr.Validation(pdferr.CodeInvalidOptions, "missing operation")
	}
	return Identity(total), nil
}

// Identity returns [0, total).
func Identity(total int) []int {
	out := make([]int, 0, max(total, 0))
	for i := 0; i < total; i++ {
		out = append(out, i)
	}
	return out
}

// Range returns the contiguous run for the 1-based inclusive range, after
// clamping start up to 1 and end down to total.
func Range(start, end, total int) ([]int, error) {
	start = max(1, start)
	end = min(total, end)
	if start > end {
		return nil, pdferr.Validation(pdferr.CodeRange, "start %d is after end %d", start, end)
	}
	out := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		out = append(out, p-1)
	}
	return out, nil
}

// Every samples one page out of every n, starting with the first:
// 0, n, 2n, ... This is a stride sample, not a chunking.
func Every(n, total int) []int {
	n = max(1, n)
	out := make([]int, 0, (max(total, 0)+n-1)/n)
	for i := 0; i < total; i += n {
		out = append(out, i)
	}
	return out
}

// Explicit keeps the caller's 1-based pages that exist in the document, in
// the order given. Repeated pages are kept.
func Explicit(pages []int, total int) ([]int, error) {
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if p >= 1 && p <= total {
			out = append(out, p-1)
		}
	}
	if len(out) == 0 {
		return nil, pdferr.Validation(pdferr.CodeEmptySelection, "none of %d requested pages exist in a %d page document", len(pages), total)
	}
	return out, nil
}

// Exclude returns every page not listed in remove. Out-of-range entries are
// ignored, so an empty list keeps the whole document. Removing every page is
// rejected.
func Exclude(remove []int, total int) ([]int, error) {
	drop := make(map[int]struct{}, len(remove))
	for _, p := range remove {
		if p >= 1 && p <= total {
			drop[p] = struct{}{}
		}
	}
	out := make([]int, 0, total)
	for p := 1; p <= total; p++ {
		if _, ok := drop[p]; !ok {
			out = append(out, p-1)
		}
	}
	if len(out) == 0 {
		return nil, pdferr.Validation(pdferr.CodeAllPagesRemoved, "removing %d pages would leave the document empty", len(drop))
	}
	return out, nil
}
