package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Job states.
const (
	StateProcessing = "processing"
	StateDone       = "done"
	StateFailed     = "failed"
)

type Status struct {
	State     string         `json:"status"`
	Operation string         `json:"operation"`
	Message   string         `json:"message,omitempty"`
	Code      string         `json:"code,omitempty"`
	Pages     int            `json:"pages,omitempty"`
	Bytes     int64          `json:"bytes,omitempty"`
	Warning   string         `json:"warning,omitempty"`
	Start     *time.Time     `json:"start_time,omitempty"`
	End       *time.Time     `json:"end_time,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type RedisStatus struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

// NewRedisStatus keeps job status hashes for ttl after their last update.
func NewRedisStatus(c *redis.Client, ttl time.Duration) *RedisStatus {
	return &RedisStatus{client: c, keyNS: "job", ttl: ttl}
}

func (s *RedisStatus) key(jobID string) string { return fmt.Sprintf("%s:%s:status", s.keyNS, jobID) }

func (s *RedisStatus) Set(ctx context.Context, jobID string, st Status) error {
	k := s.key(jobID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, k, toHash(st))
	if s.ttl > 0 {
		pipe.Expire(ctx, k, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStatus) Get(ctx context.Context, jobID string) (Status, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(jobID)).Result()
	if err != nil {
		return Status{}, false, err
	}
	if len(res) == 0 {
		return Status{}, false, nil
	}
	return fromHash(res), true, nil
}

func (s *RedisStatus) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func toHash(st Status) map[string]any {
	m := map[string]any{
		"status":    st.State,
		"operation": st.Operation,
		"message":   st.Message,
		"code":      st.Code,
		"pages":     st.Pages,
		"bytes":     st.Bytes,
		"warning":   st.Warning,
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}
	if st.Metadata != nil {
		b, _ := json.Marshal(st.Metadata)
		m["metadata"] = string(b)
	}
	return m
}

func fromHash(res map[string]string) Status {
	st := Status{
		State:     res["status"],
		Operation: res["operation"],
		Message:   res["message"],
		Code:      res["code"],
		Warning:   res["warning"],
	}
	// bad numbers read as zero
	st.Pages, _ = strconv.Atoi(res["pages"])
	st.Bytes, _ = strconv.ParseInt(res["bytes"], 10, 64)
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	if v := res["metadata"]; v != "" {
		_ = json.Unmarshal([]byte(v), &st.Metadata)
	}
	return st
}
