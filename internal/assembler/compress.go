package assembler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/operation"
	"github.com/local/pdftoolkit/internal/pdfdoc"
	"github.com/local/pdftoolkit/internal/selector"
	"github.com/local/pdftoolkit/internal/transform"
)

// WarnBelow is the reduction under which compress reports a soft warning.
const WarnBelow = 0.02

// step is one compression attempt. StopAt is the reduction that ends the
// ladder after this step; zero means no early stop.
type step struct {
	Scale  float64
	Save   pdfdoc.SaveOptions
	StopAt float64
}

func ladder(level operation.Level) []step {
	second := 0.9
	if level == operation.LevelHigh {
		second = 0.7
	}
	compat := pdfdoc.CompatibilitySave()
	return []step{
		{Scale: 1, Save: pdfdoc.SaveOptions{ObjectStreams: true, BatchSize: 25}, StopAt: 0.10},
		{Scale: second, Save: compat, StopAt: 0.05},
		{Scale: 0.6, Save: compat, StopAt: WarnBelow},
		{Scale: 0.5, Save: compat},
	}
}

// Compress re-saves the document with packed objects, then at shrinking
// page scales, each attempt starting again from the input bytes. The
// smallest attempt wins.
func (a *Assembler) Compress(ctx context.Context, in Input, level operation.Level) (*Result, error) {
	if _, err := a.load(in); err != nil {
		return nil, err
	}
	var pages int
	best, ratio, err := runLadder(ctx, int64(len(in.Data)), ladder(level), func(ctx context.Context, s step) ([]byte, error) {
		res, err := a.scaled(ctx, in, s)
		if err != nil {
			return nil, err
		}
		pages = res.Pages
		return res.Data, nil
	})
	if err != nil {
		return nil, err
	}
	res := &Result{Data: best, Pages: pages, InputBytes: int64(len(in.Data)), Ratio: ratio}
	if ratio < WarnBelow {
		res.Warning = fmt.Sprintf("document is already compact, size reduced by %.1f%%", ratio*100)
		log.Warn().Str("file", in.Name).Float64("ratio", ratio).Msg("compression below threshold")
	}
	return res, nil
}

// scaled is one independent attempt over the original bytes.
func (a *Assembler) scaled(ctx context.Context, in Input, s step) (*Result, error) {
	src, err := a.load(in)
	if err != nil {
		return nil, err
	}
	out, err := copyInto(src, selector.Identity(src.PageCount()))
	if err != nil {
		return nil, err
	}
	if s.Scale != 1 {
		err := eachPage(ctx, out, s.Save.BatchSize, func(_ int, p *pdfdoc.Page) error {
			return transform.Scale(p, s.Scale)
		})
		if err != nil {
			return nil, err
		}
	}
	return a.finish(out, operation.TagCompress, int64(len(in.Data)), s.Save)
}

// runLadder evaluates steps in order and keeps the smallest output. An
// attempt replaces the best only when strictly smaller.
func runLadder(ctx context.Context, original int64, steps []step, attempt func(context.Context, step) ([]byte, error)) ([]byte, float64, error) {
	var (
		best  []byte
		ratio float64
	)
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		data, err := attempt(ctx, s)
		if err != nil {
			return nil, 0, err
		}
		kept := best == nil || len(data) < len(best)
		if kept {
			best = data
			ratio = reduction(original, int64(len(best)))
		}
		log.Debug().
			Int("step", i+1).
			Float64("scale", s.Scale).
			Int("bytes", len(data)).
			Bool("kept", kept).
			Float64("ratio", ratio).
			Msg("compression attempt")
		if s.StopAt > 0 && ratio >= s.StopAt {
			break
		}
	}
	return best, ratio, nil
}

func reduction(original, result int64) float64 {
	if original <= 0 {
		return 0
	}
	return float64(original-result) / float64(original)
}
