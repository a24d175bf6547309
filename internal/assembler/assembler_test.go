package assembler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/local/pdftoolkit/internal/operation"
	"github.com/local/pdftoolkit/internal/pdfdoc"
	"github.com/local/pdftoolkit/internal/pdferr"
	"github.com/local/pdftoolkit/internal/pdftest"
)

var five = []pdftest.Size{{W: 101, H: 201}, {W: 102, H: 202}, {W: 103, H: 203}, {W: 104, H: 204}, {W: 105, H: 205}}

type pageInfo struct {
	W, H     float64
	Rotation int
}

func inspect(t *testing.T, data []byte) []pageInfo {
	t.Helper()
	d, err := pdfdoc.Load(data)
	if err != nil {
		t.Fatalf("reload output: %v", err)
	}
	var out []pageInfo
	for i := 0; i < d.PageCount(); i++ {
		p, err := d.Page(i)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, pageInfo{W: p.Width(), H: p.Height(), Rotation: p.Rotation()})
	}
	return out
}

func infos(sizes ...pdftest.Size) []pageInfo {
	out := make([]pageInfo, len(sizes))
	for i, s := range sizes {
		out[i] = pageInfo{W: s.W, H: s.H}
	}
	return out
}

func run(t *testing.T, a *Assembler, tag operation.Tag, raw string, inputs ...Input) (*Result, error) {
	t.Helper()
	op, err := operation.Parse(tag, []byte(raw))
	if err != nil {
		t.Fatalf("Parse(%s): %v", tag, err)
	}
	return a.Process(context.Background(), Request{Op: op, Inputs: inputs})
}

func fixture(opts ...pdftest.Option) Input {
	return Input{Name: "in.pdf", Data: pdftest.Build(opts...)}
}

func TestSelectingOperations(t *testing.T) {
	a := New(DefaultLimits())
	in := fixture(pdftest.Sizes(five...))
	tests := []struct {
		tag  operation.Tag
		raw  string
		want []pageInfo
	}{
		{operation.TagExtractPages, `{"pages":[2,5,99]}`, infos(five[1], five[4])},
		{operation.TagSplit, `{"everyPages":2}`, infos(five[0], five[2], five[4])},
		{operation.TagSplit, `{"pageRange":{"start":2,"end":3}}`, infos(five[1], five[2])},
		{operation.TagRemovePages, `{"pagesToRemove":[1,3]}`, infos(five[1], five[3], five[4])},
		{operation.TagRemovePages, `{"pagesToRemove":[]}`, infos(five...)},
		{operation.TagOrganize, `{"pageOrder":[5,4,3,2,1]}`, infos(five[4], five[3], five[2], five[1], five[0])},
	}
	for _, tt := range tests {
		t.Run(string(tt.tag)+tt.raw, func(t *testing.T) {
			res, err := run(t, a, tt.tag, tt.raw, in)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			got := inspect(t, res.Data)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("pages (-want +got):\n%s", diff)
			}
			if res.Pages != len(got) || res.Pages > len(five) {
				t.Errorf("Result.Pages = %d, output has %d", res.Pages, len(got))
			}
		})
	}
}

func TestTransformKeepsPageCount(t *testing.T) {
	a := New(DefaultLimits())
	in := fixture(pdftest.Pages(4))
	for _, c := range []struct {
		tag operation.Tag
		raw string
	}{
		{operation.TagRotate, `{"angle":180}`},
		{operation.TagCrop, `{"crop":{"top":1,"right":1,"bottom":1,"left":1,"unit":"in"}}`},
		{operation.TagWatermark, `{"text":"DRAFT","position":"center"}`},
		{operation.TagPageNumbers, `{"position":"top-right","startNumber":3}`},
	} {
		res, err := run(t, a, c.tag, c.raw, in)
		if err != nil {
			t.Fatalf("%s: %v", c.tag, err)
		}
		if n := len(inspect(t, res.Data)); n != 4 {
			t.Errorf("%s produced %d pages, want 4", c.tag, n)
		}
	}
}

func TestTransformedOutput(t *testing.T) {
	a := New(DefaultLimits())
	in := fixture(pdftest.Pages(3))

	res, err := run(t, a, operation.TagCrop, `{"crop":{"top":10,"right":10,"bottom":10,"left":10,"unit":"pt"}}`, in)
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	want := []pageInfo{{W: 592, H: 772}, {W: 592, H: 772}, {W: 592, H: 772}}
	if diff := cmp.Diff(want, inspect(t, res.Data)); diff != "" {
		t.Errorf("cropped pages (-want +got):\n%s", diff)
	}
	for i := 1; i <= 3; i++ {
		c := pdftest.Content(t, res.Data, i)
		if !strings.Contains(c, "1 0 0 1 -10 -10 cm") || !strings.Contains(c, fmt.Sprintf("(Page %d) Tj", i)) {
			t.Errorf("cropped page %d content:\n%s", i, c)
		}
	}

	res, err = run(t, a, operation.TagPageNumbers, `{"position":"bottom-left","startNumber":3}`, in)
	if err != nil {
		t.Fatalf("page numbers: %v", err)
	}
	for i := 1; i <= 3; i++ {
		want := fmt.Sprintf("30 30 Td (%d) Tj", i+2)
		if c := pdftest.Content(t, res.Data, i); !strings.Contains(c, want) {
			t.Errorf("page %d lacks %q:\n%s", i, want, c)
		}
	}

	res, err = run(t, a, operation.TagWatermark, `{"text":"DRAFT","opacity":0}`, in)
	if err != nil {
		t.Fatalf("watermark: %v", err)
	}
	for i := 1; i <= 3; i++ {
		c := pdftest.Content(t, res.Data, i)
		if !strings.Contains(c, "/PTKGS0_000 gs") || !strings.Contains(c, "(DRAFT) Tj") {
			t.Errorf("page %d watermark:\n%s", i, c)
		}
	}
}

func TestRotateOnlyListedPages(t *testing.T) {
	res, err := run(t, New(DefaultLimits()), operation.TagRotate, `{"angle":90,"pages":[2,9]}`, fixture(pdftest.Pages(3)))
	if err != nil {
		t.Fatal(err)
	}
	var got []int
	for _, p := range inspect(t, res.Data) {
		got = append(got, p.Rotation)
	}
	if diff := cmp.Diff([]int{0, 90, 0}, got); diff != "" {
		t.Errorf("rotations (-want +got):\n%s", diff)
	}
}

func TestCropTooLargeLeavesPages(t *testing.T) {
	in := fixture(pdftest.Sizes(pdftest.Size{W: 200, H: 300}, pdftest.Size{W: 600, H: 800}))
	res, err := run(t, New(DefaultLimits()), operation.TagCrop, `{"crop":{"top":150,"bottom":150,"left":10,"right":10}}`, in)
	if err != nil {
		t.Fatal(err)
	}
	want := []pageInfo{{W: 200, H: 300}, {W: 580, H: 500}}
	if diff := cmp.Diff(want, inspect(t, res.Data)); diff != "" {
		t.Errorf("pages (-want +got):\n%s", diff)
	}
}

func TestAssembleErrors(t *testing.T) {
	a := New(DefaultLimits())
	tests := []struct {
		name string
		tag  operation.Tag
		raw  string
		in   Input
		want error
	}{
		{"remove all", operation.TagRemovePages, `{"pagesToRemove":[1,2,3]}`, fixture(pdftest.Pages(3)), pdferr.ErrAllPagesRemoved},
		{"range", operation.TagSplit, `{"pageRange":{"start":3,"end":1}}`, fixture(pdftest.Pages(3)), pdferr.ErrRange},
		{"nothing extracted", operation.TagExtractPages, `{"pages":[8]}`, fixture(pdftest.Pages(3)), pdferr.ErrEmptySelection},
		{"not a pdf", operation.TagRotate, `{"angle":90}`, Input{Name: "x.png", Data: []byte("\x89PNG....")}, pdferr.ErrInvalidFormat},
		{"no file", operation.TagRotate, `{"angle":90}`, Input{}, pdferr.ErrNoValidFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := run(t, a, tt.tag, tt.raw, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if res != nil {
				t.Errorf("got a result alongside the error")
			}
		})
	}
}

func TestCorruptInputIsParseError(t *testing.T) {
	_, err := run(t, New(DefaultLimits()), operation.TagRotate, `{"angle":90}`, Input{Name: "bad.pdf", Data: []byte("%PDF-1.4\ngarbage")})
	if !pdferr.IsParse(err) {
		t.Fatalf("error = %v, want ParseError", err)
	}
}

func TestFileTooLarge(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxFileBytes = 64
	_, err := run(t, New(limits), operation.TagRotate, `{"angle":90}`, fixture())
	if !errors.Is(err, pdferr.ErrFileTooLarge) {
		t.Fatalf("error = %v, want ErrFileTooLarge", err)
	}
}

func TestOutputTooLarge(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxOutputBytes = 100
	_, err := run(t, New(limits), operation.TagRotate, `{"angle":90}`, fixture())
	if !errors.Is(err, pdferr.ErrOutputTooLarge) {
		t.Fatalf("error = %v, want ErrOutputTooLarge", err)
	}
}

type verifierFunc func([]byte, int) error

func (f verifierFunc) Verify(data []byte, pages int) error { return f(data, pages) }

func TestVerifier(t *testing.T) {
	var seen int
	ok := New(DefaultLimits(), WithVerifier(verifierFunc(func(_ []byte, pages int) error {
		seen = pages
		return nil
	})))
	if _, err := run(t, ok, operation.TagSplit, `{"everyPages":2}`, fixture(pdftest.Pages(5))); err != nil {
		t.Fatal(err)
	}
	if seen != 3 {
		t.Errorf("verifier saw %d pages, want 3", seen)
	}

	bad := New(DefaultLimits(), WithVerifier(verifierFunc(func([]byte, int) error {
		return errors.New("cannot open")
	})))
	_, err := run(t, bad, operation.TagSplit, ``, fixture())
	if !errors.Is(err, pdferr.ErrUnreadableOutput) {
		t.Fatalf("error = %v, want ErrUnreadableOutput", err)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(DefaultLimits()).Process(ctx, Request{Op: &operation.Merge{}, Inputs: []Input{fixture()}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
