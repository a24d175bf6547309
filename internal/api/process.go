package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/assembler"
	"github.com/local/pdftoolkit/internal/metrics"
	"github.com/local/pdftoolkit/internal/operation"
	"github.com/local/pdftoolkit/internal/pdferr"
	"github.com/local/pdftoolkit/internal/store"
)

// memoryLimit is how much of a multipart body stays in memory; the rest
// is staged in temp files.
const memoryLimit = 32 << 20

// filenames is the download name per operation. Every operation returns
// application/pdf.
var filenames = map[operation.Tag]string{
	operation.TagMerge:        "merged.pdf",
	operation.TagSplit:        "split.pdf",
	operation.TagCompress:     "compressed.pdf",
	operation.TagExtractPages: "extracted.pdf",
	operation.TagRemovePages:  "pages-removed.pdf",
	operation.TagRotate:       "rotated.pdf",
	operation.TagProtect:      "protected.pdf",
	operation.TagUnlock:       "unlocked.pdf",
	operation.TagWatermark:    "watermarked.pdf",
	operation.TagPageNumbers:  "numbered.pdf",
	operation.TagCrop:         "cropped.pdf",
	operation.TagOrganize:     "organized.pdf",
}

// Filename returns the download name for tag.
func Filename(tag operation.Tag) string {
	if n, ok := filenames[tag]; ok {
		return n
	}
	return "result.pdf"
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if s.deps.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, pdferr.Validation(pdferr.CodeFileTooLarge, "request exceeds %d bytes", tooBig.Limit))
			return
		}
		writeError(w, pdferr.Validation(pdferr.CodeInvalidOptions, "invalid multipart form: %v", err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn().Err(err).Msg("failed to remove staged upload")
		}
	}()

	op, err := operation.Parse(operation.Tag(r.FormValue("operation")), []byte(r.FormValue("options")))
	if err != nil {
		writeError(w, err)
		return
	}
	tag := op.Tag()

	if s.deps.Slots != nil {
		release, ok := s.deps.Slots.Allow(string(tag))
		if !ok {
			metrics.IncLimiterRejection(string(tag))
			log.Warn().Str("op", string(tag)).Msg("no free slot")
			writeProblem(w, http.StatusTooManyRequests, "busy", "server busy, retry later")
			return
		}
		defer release()
	}

	inputs, err := s.readInputs(r.MultipartForm)
	if err != nil {
		writeError(w, err)
		return
	}

	id := uuid.NewString()
	start := time.Now()
	s.setStatus(r.Context(), id, store.Status{State: store.StateProcessing, Operation: string(tag), Start: &start,
		Metadata: map[string]any{"files": len(inputs)}})

	ctx := r.Context()
	if s.deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.Timeout)
		defer cancel()
	}
	res, err := s.deps.Processor.Process(ctx, assembler.Request{Op: op, Inputs: inputs})
	end := time.Now()
	if err != nil {
		code := pdferr.CodeOf(err)
		metrics.ObserveOperation(string(tag), code, end.Sub(start))
		s.setStatus(r.Context(), id, store.Status{State: store.StateFailed, Operation: string(tag),
			Message: err.Error(), Code: code, Start: &start, End: &end})
		log.Info().Err(err).Str("id", id).Str("op", string(tag)).Str("code", code).Msg("request failed")
		writeError(w, err)
		return
	}

	metrics.ObserveOperation(string(tag), "ok", end.Sub(start))
	metrics.ObserveSizes(string(tag), res.InputBytes, len(res.Data), res.Pages)
	if tag == operation.TagCompress {
		metrics.ObserveCompression(res.Ratio, res.Warning != "")
	}

	meta := map[string]any{"files": len(inputs), "input_bytes": res.InputBytes}
	if s.deps.Results != nil {
		if err := s.deps.Results.Put(r.Context(), id, res.Data); err != nil {
			log.Error().Err(err).Str("id", id).Msg("failed to store result")
		} else {
			meta["stored"] = true
		}
	}
	s.setStatus(r.Context(), id, store.Status{State: store.StateDone, Operation: string(tag), Pages: res.Pages,
		Bytes: int64(len(res.Data)), Warning: res.Warning, Start: &start, End: &end, Metadata: meta})

	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", Filename(tag)))
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))
	h.Set("X-Result-ID", id)
	h.Set("X-Page-Count", strconv.Itoa(res.Pages))
	if res.Warning != "" {
		h.Set("X-Compression-Warning", res.Warning)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

// readInputs collects "files" parts followed by "file" parts. Empty parts
// are passed through so merge can skip them; non-empty parts must sniff
// as PDF.
func (s *Server) readInputs(form *multipart.Form) ([]assembler.Input, error) {
	var headers []*multipart.FileHeader
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["file"]...)
	if len(headers) == 0 {
		return nil, pdferr.Validation(pdferr.CodeNoValidFiles, "no file uploaded")
	}
	inputs := make([]assembler.Input, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		if len(data) > 0 {
			if info := s.deps.Detector.DetectBytes(data, fh.Filename); !info.Supported {
				return nil, pdferr.Validation(pdferr.CodeInvalidFormat, "%s is %s, not a PDF", fh.Filename, info.MIMEType)
			}
		}
		inputs = append(inputs, assembler.Input{Name: fh.Filename, Data: data})
	}
	return inputs, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) setStatus(ctx context.Context, id string, st store.Status) {
	if s.deps.Status == nil {
		return
	}
	if err := s.deps.Status.Set(ctx, id, st); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("failed to update status")
	}
}

// writeError answers with the taxonomy code and its HTTP status.
func writeError(w http.ResponseWriter, err error) {
	code := pdferr.CodeOf(err)
	status := pdferr.HTTPStatus(err)
	if errors.Is(err, context.DeadlineExceeded) {
		code, status = "timeout", http.StatusGatewayTimeout
	}
	msg := err.Error()
	if status >= http.StatusInternalServerError && code == "internal" {
		msg = "internal error"
	}
	writeProblem(w, status, code, msg)
}
