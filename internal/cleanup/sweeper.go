// Package cleanup removes staged uploads left behind by interrupted
// requests.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Prefix is the name prefix net/http uses for spilled multipart parts.
const Prefix = "multipart-"

type Sweeper struct {
	Dir    string
	MaxAge time.Duration
	Every  time.Duration
}

// New sweeps the OS temp dir.
func New(maxAge, every time.Duration) *Sweeper {
	return &Sweeper{Dir: os.TempDir(), MaxAge: maxAge, Every: every}
}

// Sweep removes matching files older than MaxAge and returns how many it
// removed.
func (s *Sweeper) Sweep(now time.Time) int {
	removed := 0
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", s.Dir).Msg("temp sweep: cannot read dir")
		return 0
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), Prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < s.MaxAge {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		log.Info().Int("files", removed).Msg("removed stale staged uploads")
	}
	return removed
}

// Run sweeps every Every until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.Every <= 0 {
		return
	}
	t := time.NewTicker(s.Every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.Sweep(now)
		}
	}
}
