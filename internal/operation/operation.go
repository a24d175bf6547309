// Package operation models the per-tool options records as a tagged union:
// one Go type per operation tag, decoded from the JSON the browser posts.
package operation

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/local/pdftoolkit/internal/pdferr"
)

// Tag is the operation name carried by the request.
type Tag string

const (
	TagMerge        Tag = "merge"
	TagSplit        Tag = "split"
	TagCompress     Tag = "compress"
	TagExtractPages Tag = "extract-pages"
	TagRemovePages  Tag = "remove-pages"
	TagRotate       Tag = "rotate"
	TagProtect      Tag = "protect"
	TagUnlock       Tag = "unlock"
	TagWatermark    Tag = "watermark"
	TagPageNumbers  Tag = "page-numbers"
	TagCrop         Tag = "crop"
	TagOrganize     Tag = "organize"
)

// Tags lists every supported tag.
var Tags = []Tag{
	TagMerge, TagSplit, TagCompress, TagExtractPages, TagRemovePages, TagRotate,
	TagProtect, TagUnlock, TagWatermark, TagPageNumbers, TagCrop, TagOrganize,
}

// Operation is one variant of the union. Only pointer types implement it.
type Operation interface {
	Tag() Tag
	validate() error
}

// PageRange is an inclusive 1-based range.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Merge struct{}

// Split selects either a page range or a stride sample. With neither set
// the whole document is kept.
type Split struct {
	PageRange  *PageRange `json:"pageRange,omitempty"`
	EveryPages *int       `json:"everyPages,omitempty"`
}

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

type Compress struct {
	Level Level `json:"level"`
}

type ExtractPages struct {
	Pages []int `json:"pages"`
}

type RemovePages struct {
	PagesToRemove []int `json:"pagesToRemove"`
}

// Rotate sets an absolute rotation on the listed 1-based pages, or on every
// page when Pages is empty.
type Rotate struct {
	Angle int   `json:"angle"`
	Pages []int `json:"pages,omitempty"`
}

type Protect struct {
	Password      string `json:"password"`
	OwnerPassword string `json:"ownerPassword,omitempty"`
}

type Unlock struct {
	Password string `json:"password"`
}

// Watermark.Opacity is nil when the request leaves it out. An explicit 0 is kept.
type Watermark struct {
	Text     string   `json:"text"`
	Position string   `json:"position"`
	Opacity  *float64 `json:"opacity,omitempty"`
	FontSize float64  `json:"fontSize"`
}

type PageNumbers struct {
	Position    string  `json:"position"`
	FontSize    float64 `json:"fontSize"`
	StartNumber int     `json:"startNumber"`
}

// Unit is the measurement unit of crop margins.
type Unit string

const (
	UnitPoint      Unit = "pt"
	UnitMillimetre Unit = "mm"
	UnitInch       Unit = "in"
)

type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Unit   Unit    `json:"unit"`
}

type Crop struct {
	Margins Margins `json:"crop"`
}

type Organize struct {
	PageOrder []int `json:"pageOrder"`
}

func (*Merge) Tag() Tag        { return TagMerge }
func (*Split) Tag() Tag        { return TagSplit }
func (*Compress) Tag() Tag     { return TagCompress }
func (*ExtractPages) Tag() Tag { return TagExtractPages }
func (*RemovePages) Tag() Tag  { return TagRemovePages }
func (*Rotate) Tag() Tag       { return TagRotate }
func (*Protect) Tag() Tag      { return TagProtect }
func (*Unlock) Tag() Tag       { return TagUnlock }
func (*Watermark) Tag() Tag    { return TagWatermark }
func (*PageNumbers) Tag() Tag  { return TagPageNumbers }
func (*Crop) Tag() Tag         { return TagCrop }
func (*Organize) Tag() Tag     { return TagOrganize }

// New returns the zero options record for tag.
func New(tag Tag) (Operation, error) {
	switch Tag(strings.ToLower(string(tag))) {
	case TagMerge:
		return &Merge{}, nil
	case TagSplit:
		return &Split{}, nil
	case TagCompress:
		return &Compress{}, nil
	case TagExtractPages:
		return &ExtractPages{}, nil
	case TagRemovePages:
		return &RemovePages{}, nil
	case TagRotate:
		return &Rotate{}, nil
	case TagProtect:
		return &Protect{}, nil
	case TagUnlock:
		return &Unlock{}, nil
	case TagWatermark:
		return &Watermark{}, nil
	case TagPageNumbers:
		return &PageNumbers{}, nil
	case TagCrop:
		return &Crop{}, nil
	case TagOrganize:
		return &Organize{}, nil
	}
	return nil, pdferr.Validation(pdferr.CodeInvalidOptions, "unknown operation %q", tag)
}

// Parse decodes the options JSON for tag into its variant, applies defaults
// and checks the shape. Page numbers are checked later against the loaded
// document, not here.
func Parse(tag Tag, raw []byte) (Operation, error) {
	op, err := New(tag)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, op); err != nil {
			return nil, pdferr.Validation(pdferr.CodeInvalidOptions, "decode %s options: %v", op.Tag(), err)
		}
	}
	if err := op.validate(); err != nil {
		return nil, err
	}
	return op, nil
}

// Validate applies defaults and checks an options record built in code.
func Validate(op Operation) error {
	if op == nil {
		return pdferr.Validation(pdferr.CodeInvalidOptions, "missing operation")
	}
	return op.validate()
}
