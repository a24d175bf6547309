package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/local/pdftoolkit/internal/assembler"
	"github.com/local/pdftoolkit/internal/limiter"
	"github.com/local/pdftoolkit/internal/pdftest"
	"github.com/local/pdftoolkit/internal/storage"
	"github.com/local/pdftoolkit/internal/store"
)

type memStatus struct {
	mu sync.Mutex
	m  map[string]store.Status
}

func (s *memStatus) Set(_ context.Context, id string, st store.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = st
	return nil
}

func (s *memStatus) Get(_ context.Context, id string) (store.Status, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[id]
	return st, ok, nil
}

type part struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(p.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func newServer(t *testing.T, deps Dependencies) *httptest.Server {
	t.Helper()
	if deps.Processor == nil {
		deps.Processor = assembler.New(assembler.DefaultLimits())
	}
	ts := httptest.NewServer(New(deps).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, fields map[string]string, parts ...part) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, fields, parts...)
	resp, err := http.Post(ts.URL+"/api/process", ct, body)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeProblem(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return m
}

func TestProcessRotate(t *testing.T) {
	status := &memStatus{m: map[string]store.Status{}}
	results, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ts := newServer(t, Dependencies{Status: status, Results: results})

	resp := post(t, ts, map[string]string{"operation": "rotate", "options": `{"angle":90}`},
		part{"file", "in.pdf", pdftest.Build(pdftest.Pages(3))})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, decodeProblem(t, resp))
	}
	if got := resp.Header.Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "rotated.pdf") {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := resp.Header.Get("X-Page-Count"); got != "3" {
		t.Errorf("X-Page-Count = %q", got)
	}
	id := resp.Header.Get("X-Result-ID")
	if id == "" {
		t.Fatal("missing X-Result-ID")
	}

	st, ok, _ := status.Get(context.Background(), id)
	if !ok || st.State != store.StateDone || st.Pages != 3 || st.Operation != "rotate" {
		t.Errorf("status = %+v, %v", st, ok)
	}

	st2, err := http.Get(ts.URL + "/api/status/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Body.Close()
	if st2.StatusCode != http.StatusOK {
		t.Errorf("GET status = %d", st2.StatusCode)
	}

	dl, err := http.Get(ts.URL + "/api/download/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK || dl.Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("download = %d %q", dl.StatusCode, dl.Header.Get("Content-Type"))
	}
}

func TestProcessMerge(t *testing.T) {
	ts := newServer(t, Dependencies{})
	resp := post(t, ts, map[string]string{"operation": "merge"},
		part{"files", "a.pdf", pdftest.Build(pdftest.Pages(2))},
		part{"files", "empty.pdf", nil},
		part{"files", "b.pdf", pdftest.Build(pdftest.Pages(3))})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, decodeProblem(t, resp))
	}
	if got := resp.Header.Get("X-Page-Count"); got != "5" {
		t.Errorf("X-Page-Count = %q, want 5", got)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "merged.pdf") {
		t.Errorf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}
}

func TestProcessErrors(t *testing.T) {
	ts := newServer(t, Dependencies{})
	doc := pdftest.Build(pdftest.Pages(3))
	tests := []struct {
		name   string
		fields map[string]string
		parts  []part
		status int
		code   string
	}{
		{"unknown operation", map[string]string{"operation": "ocr"}, []part{{"file", "a.pdf", doc}}, http.StatusBadRequest, "invalid_options"},
		{"bad options", map[string]string{"operation": "rotate", "options": `{"angle":45}`}, []part{{"file", "a.pdf", doc}}, http.StatusBadRequest, "invalid_options"},
		{"no file", map[string]string{"operation": "rotate", "options": `{"angle":90}`}, nil, http.StatusBadRequest, "no_valid_files"},
		{"not a pdf", map[string]string{"operation": "split"}, []part{{"file", "a.pdf", []byte("<html><body>hi</body></html>")}}, http.StatusUnsupportedMediaType, "invalid_format"},
		{"remove all", map[string]string{"operation": "remove-pages", "options": `{"pagesToRemove":[1,2,3]}`}, []part{{"file", "a.pdf", doc}}, http.StatusUnprocessableEntity, "all_pages_removed"},
		{"corrupt", map[string]string{"operation": "split"}, []part{{"file", "a.pdf", []byte("%PDF-1.4\ngarbage")}}, http.StatusUnprocessableEntity, "parse_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts, tt.fields, tt.parts...)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			m := decodeProblem(t, resp)
			if m["code"] != tt.code || m["success"] != false {
				t.Errorf("body = %v, want code %q", m, tt.code)
			}
		})
	}
}

func TestProcessBusy(t *testing.T) {
	slots := limiter.New(limiter.Options{Limits: map[string]int{"compress": 1}})
	release, ok := slots.Allow("compress")
	if !ok {
		t.Fatal("first slot refused")
	}
	defer release()
	ts := newServer(t, Dependencies{Slots: slots})
	resp := post(t, ts, map[string]string{"operation": "compress"},
		part{"file", "a.pdf", pdftest.Build(pdftest.Pages(1))})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
}

func TestUploadTooLarge(t *testing.T) {
	ts := newServer(t, Dependencies{MaxUploadBytes: 1024})
	resp := post(t, ts, map[string]string{"operation": "split"},
		part{"file", "a.pdf", bytes.Repeat([]byte("x"), 4096)})
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestLookupsWithoutBackends(t *testing.T) {
	ts := newServer(t, Dependencies{})
	for _, path := range []string{"/api/status/abc", "/api/download/abc"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, resp.StatusCode)
		}
	}
	resp, err := http.Get(ts.URL + "/ready")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /ready = %d", resp.StatusCode)
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("merge"); got != "merged.pdf" {
		t.Errorf("Filename(merge) = %q", got)
	}
	if got := Filename("other"); got != "result.pdf" {
		t.Errorf("Filename(other) = %q", got)
	}
}
