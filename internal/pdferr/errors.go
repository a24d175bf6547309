// Package pdferr defines the failure taxonomy of the page assembly core.
//
// Every failure is raised synchronously at the point of detection. Validation
// failures are always detected before any document is mutated.
package pdferr

import (
	"errors"
	"fmt"
)

// Code names the violated constraint of a ValidationError or OutputError.
type Code string

const (
	CodeRange              Code = "range"
	CodeEmptySelection     Code = "empty_selection"
	CodeAllPagesRemoved    Code = "all_pages_removed"
	CodePageBudgetExceeded Code = "page_budget_exceeded"
	CodeFileTooLarge       Code = "file_too_large"
	CodeInvalidFormat      Code = "invalid_format"
	CodeEmptyDocument      Code = "empty_document"
	CodeNoValidFiles       Code = "no_valid_files"
	CodeInvalidOptions     Code = "invalid_options"

	CodeEmptyOutput      Code = "empty_output"
	CodeOutputTooLarge   Code = "output_too_large"
	CodeUnreadableOutput Code = "unreadable_output"
)

// ParseError reports input bytes that are not a structurally valid document.
type ParseError struct {
	Name string // input label, e.g. the upload file name; may be empty
	Err  error
}

func (e *ParseError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("parse %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports caller-supplied options or inputs that violate an invariant.
type ValidationError struct {
	Code    Code
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("validation error: %s", e.Code)
	}
	return fmt.Sprintf("validation error (%s): %s", e.Code, e.Message)
}

// Is matches any ValidationError carrying the same code, so the exported
// sentinels work with errors.Is.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

// OutputError reports a post-condition failure of an assembled document.
type OutputError struct {
	Code    Code
	Message string
}

func (e *OutputError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("output error: %s", e.Code)
	}
	return fmt.Sprintf("output error (%s): %s", e.Code, e.Message)
}

func (e *OutputError) Is(target error) bool {
	t, ok := target.(*OutputError)
	return ok && t.Code == e.Code
}

// IndexError reports a page index outside [0, Count).
type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("page index %d out of range [0, %d)", e.Index, e.Count)
}

// Sentinels for errors.Is.
var (
	ErrRange              = &ValidationError{Code: CodeRange}
	ErrEmptySelection     = &ValidationError{Code: CodeEmptySelection}
	ErrAllPagesRemoved    = &ValidationError{Code: CodeAllPagesRemoved}
	ErrPageBudgetExceeded = &ValidationError{Code: CodePageBudgetExceeded}
	ErrFileTooLarge       = &ValidationError{Code: CodeFileTooLarge}
	ErrInvalidFormat      = &ValidationError{Code: CodeInvalidFormat}
	ErrEmptyDocument      = &ValidationError{Code: CodeEmptyDocument}
	ErrNoValidFiles       = &ValidationError{Code: CodeNoValidFiles}
	ErrInvalidOptions     = &ValidationError{Code: CodeInvalidOptions}

	ErrEmptyOutput      = &OutputError{Code: CodeEmptyOutput}
	ErrOutputTooLarge   = &OutputError{Code: CodeOutputTooLarge}
	ErrUnreadableOutput = &OutputError{Code: CodeUnreadableOutput}
)

// Validation returns a ValidationError with a formatted message.
func Validation(code Code, format string, args ...any) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Output returns an OutputError with a formatted message.
func Output(code Code, format string, args ...any) error {
	return &OutputError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Parse wraps err as a ParseError for the named input.
func Parse(name string, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{Name: name, Err: err}
}
