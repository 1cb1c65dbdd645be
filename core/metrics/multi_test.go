package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	transitions int
	requests    int
	runs        int
	err         error
}

func (r *recordSink) RecordTransition(TransitionRecord) error {
	r.transitions++
	return r.err
}

func (r *recordSink) RecordRequest(RequestRecord) error {
	r.requests++
	return r.err
}

func (r *recordSink) RecordRun(RunRecord) error {
	r.runs++
	return r.err
}

// transitionOnly implements MetricsSink and nothing else.
type transitionOnly struct{ count int }

func (t *transitionOnly) RecordTransition(TransitionRecord) error {
	t.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &transitionOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordTransition(TransitionRecord{}); err != nil {
		t.Fatalf("record transition: %v", err)
	}
	if err := m.RecordRequest(RequestRecord{}); err != nil {
		t.Fatalf("record request: %v", err)
	}
	if err := m.RecordRun(RunRecord{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if s1.transitions != 1 || s2.requests != 1 || s2.runs != 1 || s3.count != 1 {
		t.Fatalf("records not forwarded")
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := &recordSink{err: boom}
	ok := &recordSink{}
	m := NewMultiSink(failing, ok)
	err := m.RecordTransition(TransitionRecord{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if ok.transitions != 1 {
		t.Fatal("second sink skipped after failure")
	}
}
