package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogSink writes every event as a structured log line.
type LogSink struct {
	logger zerolog.Logger
	level  zerolog.Level
}

// NewLogSink logs events at info level.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger, level: zerolog.InfoLevel}
}

// WithLevel returns a copy of the sink logging at level.
func (s *LogSink) WithLevel(level zerolog.Level) *LogSink {
	cp := *s
	cp.level = level
	return &cp
}

func (s *LogSink) Publish(ctx context.Context, event Event) error {
	s.logger.WithLevel(s.level).
		Str("event_id", event.ID).
		Str("topic", event.Topic()).
		Str("model", event.Model).
		Strs("ids", event.IDs).
		Str("op", string(event.Op)).
		Str("tenant", event.Tenant).
		Str("actor", event.Actor).
		Time("at", event.At).
		Msg("change event")
	return nil
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent publishes record the event and return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Topics returns the topic of every recorded event.
func (r *Recorder) Topics() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Topic()
	}
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
