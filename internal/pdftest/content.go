package pdftest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Content returns the decoded content of the 1-based page of a saved file.
// A page without content reads as "".
func Content(t testing.TB, data []byte, page int) string {
	t.Helper()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		t.Fatal(err)
	}
	d, _, _, err := ctx.PageDict(page, false)
	if err != nil {
		t.Fatalf("page %d: %v", page, err)
	}
	b, err := ctx.PageContent(d)
	if err != nil && !errors.Is(err, model.ErrNoContent) {
		t.Fatalf("content of page %d: %v", page, err)
	}
	return string(b)
}
