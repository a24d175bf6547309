package filetype

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

const mimePDF = "application/pdf"

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	Supported   bool
	Description string
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// DetectBytes sniffs the upload content. name is only used for logging
// and the description; the content decides.
func (d *Detector) DetectBytes(data []byte, name string) *FileTypeInfo {
	mtype := mimetype.Detect(data)
	info := &FileTypeInfo{MIMEType: mtype.String(), Extension: mtype.Extension()}
	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Str("file", name).Msg("detected file type")
	d.classify(info, name)
	return info
}

// classify marks PDFs as supported and names everything else.
func (d *Detector) classify(info *FileTypeInfo, name string) {
	switch {
	case info.MIMEType == mimePDF:
		info.Supported = true
		info.Description = "PDF document"
	case strings.HasPrefix(info.MIMEType, "image/"):
		info.Description = "Image file"
	case strings.HasPrefix(info.MIMEType, "application/vnd.openxmlformats-officedocument"),
		info.MIMEType == "application/msword",
		info.MIMEType == "application/vnd.ms-excel",
		info.MIMEType == "application/vnd.ms-powerpoint":
		info.Description = "Office document"
	case strings.HasPrefix(info.MIMEType, "text/"):
		info.Description = "Plain text file"
	default:
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}
	if !info.Supported && strings.EqualFold(filepath.Ext(name), ".pdf") {
		log.Warn().Str("file", name).Str("mime", info.MIMEType).Msg("file named .pdf is not a PDF")
	}
}
