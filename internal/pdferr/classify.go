package pdferr

import (
	"errors"
	"net/http"
)

// IsValidation reports whether err belongs to the validation family.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsParse reports whether err is a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsOutput reports whether err is a post-condition failure.
func IsOutput(err error) bool {
	var oe *OutputError
	return errors.As(err, &oe)
}

// CodeOf returns the taxonomy code of err, or "parse_error" / "internal".
func CodeOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return string(ve.Code)
	}
	var oe *OutputError
	if errors.As(err, &oe) {
		return string(oe.Code)
	}
	if IsParse(err) {
		return "parse_error"
	}
	return "internal"
}

// HTTPStatus maps the taxonomy onto response codes for the HTTP layer.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		switch ve.Code {
		case CodeFileTooLarge:
			return http.StatusRequestEntityTooLarge
		case CodeInvalidFormat:
			return http.StatusUnsupportedMediaType
		case CodePageBudgetExceeded, CodeAllPagesRemoved, CodeEmptySelection, CodeEmptyDocument:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusBadRequest
		}
	}
	if IsParse(err) {
		return http.StatusUnprocessableEntity
	}
	// output failures and anything unclassified are server side
	return http.StatusInternalServerError
}
