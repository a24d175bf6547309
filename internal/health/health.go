// Package health reports on the external dependencies the service uses.
package health

import (
	"context"
	"errors"
	"time"
)

// Pinger is anything with a reachability check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles the subsystem statuses. Disabled subsystems are
// omitted.
type Summary struct {
	Ready  bool              `json:"ready"`
	Checks map[string]Status `json:"checks"`
}

type Checker struct {
	checks map[string]Pinger
	limit  time.Duration
}

// New builds a Checker over the named dependencies. Nil entries are
// skipped.
func New(checks map[string]Pinger) *Checker {
	c := &Checker{checks: map[string]Pinger{}, limit: 3 * time.Second}
	for name, p := range checks {
		if p != nil {
			c.checks[name] = p
		}
	}
	return c
}

// Summary runs every check with a per-check timeout.
func (c *Checker) Summary(ctx context.Context) Summary {
	s := Summary{Ready: true, Checks: make(map[string]Status, len(c.checks))}
	for name, p := range c.checks {
		st := c.run(ctx, p)
		if !st.OK {
			s.Ready = false
		}
		s.Checks[name] = st
	}
	return s
}

func (c *Checker) run(ctx context.Context, p Pinger) Status {
	ctx, cancel := context.WithTimeout(ctx, c.limit)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func trimError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 160 {
		return msg[:160] + "..."
	}
	return msg
}
