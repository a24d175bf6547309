package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog/log"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// Local writes results as files under a directory.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create result dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) path(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("invalid result id %q", id)
	}
	return filepath.Join(l.dir, id+".pdf"), nil
}

// Put writes through a temp file and renames, so readers never see a
// partial document.
func (l *Local) Put(_ context.Context, id string, data []byte) error {
	p, err := l.path(id)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(l.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return err
	}
	log.Debug().Str("path", p).Int("bytes", len(data)).Msg("result saved locally")
	return nil
}

func (l *Local) Get(_ context.Context, id string) ([]byte, error) {
	p, err := l.path(id)
	if err != nil {
		return nil, ErrNotFound
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}
