package filetype

import (
	"testing"

	"github.com/local/pdftoolkit/internal/pdftest"
)

func TestDetectBytes(t *testing.T) {
	d := New()
	tests := []struct {
		name      string
		data      []byte
		mime      string
		supported bool
	}{
		{"doc.pdf", pdftest.Build(), "application/pdf", true},
		{"notes.pdf", []byte("just some words\n"), "text/plain; charset=utf-8", false},
		{"pic.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), "image/png", false},
	}
	for _, tt := range tests {
		info := d.DetectBytes(tt.data, tt.name)
		if info.MIMEType != tt.mime || info.Supported != tt.supported {
			t.Errorf("%s: got %s supported=%v", tt.name, info.MIMEType, info.Supported)
		}
	}
}
