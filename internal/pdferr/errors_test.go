package pdferr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestSentinelsMatchByCode(t *testing.T) {
	err := fmt.Errorf("select: %w", Validation(CodeRange, "start %d > end %d", 5, 2))
	if !errors.Is(err, ErrRange) {
		t.Fatalf("errors.Is(%v, ErrRange) = false", err)
	}
	if errors.Is(err, ErrEmptySelection) {
		t.Fatalf("range error must not match ErrEmptySelection")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Message != "start 5 > end 2" {
		t.Fatalf("unexpected detail: %+v", ve)
	}
}

func TestParseDoesNotDoubleWrap(t *testing.T) {
	inner := Parse("a.pdf", errors.New("bad xref"))
	outer := Parse("b.pdf", inner)
	if outer != inner {
		t.Fatalf("Parse rewrapped an existing ParseError: %v", outer)
	}
	if got := inner.Error(); got != "parse a.pdf: bad xref" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{Validation(CodeFileTooLarge, "too big"), http.StatusRequestEntityTooLarge},
		{Validation(CodeInvalidFormat, "not a pdf"), http.StatusUnsupportedMediaType},
		{Validation(CodePageBudgetExceeded, "1001 > 1000"), http.StatusUnprocessableEntity},
		{Validation(CodeRange, "5 > 2"), http.StatusBadRequest},
		{Parse("", errors.New("eof")), http.StatusUnprocessableEntity},
		{Output(CodeOutputTooLarge, "big"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(ErrEmptyOutput); got != "empty_output" {
		t.Errorf("CodeOf(ErrEmptyOutput) = %q", got)
	}
	if got := CodeOf(Parse("", errors.New("x"))); got != "parse_error" {
		t.Errorf("CodeOf(parse) = %q", got)
	}
	if got := CodeOf(&IndexError{Index: 3, Count: 2}); got != "internal" {
		t.Errorf("CodeOf(index) = %q", got)
	}
}
