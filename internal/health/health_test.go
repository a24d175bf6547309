package health

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestSummary(t *testing.T) {
	c := New(map[string]Pinger{
		"redis": pingFunc(func(context.Context) error { return nil }),
		"s3":    pingFunc(func(context.Context) error { return errors.New("AccessDenied") }),
		"off":   nil,
	})
	got := c.Summary(context.Background())
	want := Summary{
		Ready: false,
		Checks: map[string]Status{
			"redis": {OK: true, Message: "Connected"},
			"s3":    {OK: false, Message: "AccessDenied"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryNoChecks(t *testing.T) {
	if s := New(nil).Summary(context.Background()); !s.Ready {
		t.Error("no checks should be ready")
	}
}
