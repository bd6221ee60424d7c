package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "OK"
	SpanStatusError SpanStatus = "ERROR"
)

// Span times one pipeline stage. A span started under another records it as
// parent, and every span of a run shares the run id as its trace id.
type Span struct {
	TraceID   string
	SpanID    string
	ParentID  string
	Operation string
	StartTime time.Time
	Duration  time.Duration
	Tags      map[string]string
	Status    SpanStatus
	Error     string

	timeline *Timeline
	finished bool
}

type spanKey struct{}

func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	span := &Span{
		TraceID:   GetRunID(ctx),
		SpanID:    uuid.NewString()[:8],
		Operation: operation,
		StartTime: time.Now(),
		Status:    SpanStatusOK,
		Tags:      make(map[string]string),
		timeline:  timelineFrom(ctx),
	}
	if parent := GetSpan(ctx); parent != nil {
		span.ParentID = parent.SpanID
		span.TraceID = parent.TraceID
	}
	if span.TraceID == "" {
		span.TraceID = uuid.NewString()
	}
	return context.WithValue(ctx, spanKey{}, span), span
}

func GetSpan(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanKey{}).(*Span); ok {
		return span
	}
	return nil
}

// Finish records the duration once and reports the span to the run's
// timeline, if any. Later calls do nothing.
func (s *Span) Finish() {
	if s.finished {
		return
	}
	s.finished = true
	s.Duration = time.Since(s.StartTime)
	if s.timeline != nil {
		s.timeline.add(s)
	}
}

// FinishAndLog finishes the span and writes one stage record to logger.
func (s *Span) FinishAndLog(logger *slog.Logger) {
	s.Finish()

	attrs := make([]any, 0, 8+2*len(s.Tags))
	attrs = append(attrs, "stage", s.Operation, "duration", s.Duration, "status", s.Status)
	if s.ParentID != "" {
		attrs = append(attrs, "parent", s.ParentID)
	}
	for k, v := range s.Tags {
		attrs = append(attrs, k, v)
	}

	if s.Status == SpanStatusError {
		logger.Error("stage failed", append(attrs, "error", s.Error)...)
		return
	}
	logger.Info("stage completed", attrs...)
}

func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

func (s *Span) SetError(err error) {
	s.Status = SpanStatusError
	if err != nil {
		s.Error = err.Error()
	}
}

// StageTiming is the finished record of one span.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Parent   string        `json:"parent,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Status   SpanStatus    `json:"status"`
}

// Timeline collects the spans finished under a context, in finish order.
// It is safe for concurrent use.
type Timeline struct {
	mu     sync.Mutex
	stages []StageTiming
	names  map[string]string
}

type timelineKey struct{}

// WithTimeline attaches a fresh timeline to ctx.
func WithTimeline(ctx context.Context) (context.Context, *Timeline) {
	tl := &Timeline{names: make(map[string]string)}
	return context.WithValue(ctx, timelineKey{}, tl), tl
}

func timelineFrom(ctx context.Context) *Timeline {
	tl, _ := ctx.Value(timelineKey{}).(*Timeline)
	return tl
}

func (t *Timeline) add(s *Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names[s.SpanID] = s.Operation
	t.stages = append(t.stages, StageTiming{
		Stage:    s.Operation,
		Parent:   s.ParentID,
		Duration: s.Duration,
		Status:   s.Status,
	})
}

// Stages returns the finished spans with parent ids resolved to stage names.
func (t *Timeline) Stages() []StageTiming {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StageTiming, len(t.stages))
	for i, st := range t.stages {
		if name, ok := t.names[st.Parent]; ok {
			st.Parent = name
		}
		out[i] = st
	}
	return out
}
