package logistics

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEventsFireInOrder(t *testing.T) {
	trail := &Trail{RequestID: uuid.New()}
	now := time.Now().UTC()

	if err := trail.Record(EventPickedUp, now, nil); !errors.Is(err, ErrSequenceViolation) {
		t.Fatalf("PICKED_UP before RECEIVED should violate sequence, got %v", err)
	}
	if err := trail.Record(EventReceived, now, nil); err != nil {
		t.Fatal(err)
	}
	if err := trail.Record(EventReceived, now.Add(time.Minute), nil); !errors.Is(err, ErrAlreadyRecorded) {
		t.Fatalf("repeat RECEIVED should be rejected, got %v", err)
	}
	if err := trail.Record(EventWorkStarted, now.Add(time.Hour), nil); !errors.Is(err, ErrSequenceViolation) {
		t.Fatalf("skipping PICKED_UP should violate sequence, got %v", err)
	}
	for i, e := range []Event{EventPickedUp, EventWorkStarted, EventReadyForReturn, EventReturned} {
		if err := trail.Record(e, now.Add(time.Duration(i+1)*time.Hour), nil); err != nil {
			t.Fatalf("recording %s: %v", e, err)
		}
	}
}

func TestTimestampMustNotPrecedePredecessor(t *testing.T) {
	trail := &Trail{RequestID: uuid.New()}
	now := time.Now().UTC()

	if err := trail.Record(EventReceived, now, nil); err != nil {
		t.Fatal(err)
	}
	if err := trail.Record(EventPickedUp, now.Add(-time.Minute), nil); !errors.Is(err, ErrSequenceViolation) {
		t.Fatalf("timestamp before predecessor should violate sequence, got %v", err)
	}
	// Equal timestamps are legal: the property is non-decreasing.
	if err := trail.Record(EventPickedUp, now, nil); err != nil {
		t.Fatalf("equal timestamp should be accepted: %v", err)
	}
}

func TestStageDerivation(t *testing.T) {
	trail := &Trail{RequestID: uuid.New()}
	now := time.Now().UTC()

	if got := trail.Stage(false); got != StageNone {
		t.Fatalf("expected NONE, got %s", got)
	}
	if got := trail.Stage(true); got != StagePlanned {
		t.Fatalf("expected PLANNED, got %s", got)
	}
	steps := []struct {
		event Event
		want  Stage
	}{
		{EventReceived, StageReceived},
		{EventPickedUp, StagePickedUp},
		{EventWorkStarted, StageWorkStarted},
		{EventReadyForReturn, StageReadyForReturn},
		{EventReturned, StageReturned},
	}
	for i, s := range steps {
		if err := trail.Record(s.event, now.Add(time.Duration(i)*time.Hour), nil); err != nil {
			t.Fatal(err)
		}
		if got := trail.Stage(true); got != s.want {
			t.Fatalf("after %s expected stage %s, got %s", s.event, s.want, got)
		}
	}
}

func TestFrozenOnceReceived(t *testing.T) {
	trail := &Trail{RequestID: uuid.New()}
	if trail.Frozen() {
		t.Fatal("empty trail must not be frozen")
	}
	if err := trail.Record(EventReceived, time.Now().UTC(), nil); err != nil {
		t.Fatal(err)
	}
	if !trail.Frozen() {
		t.Fatal("trail must freeze the plan once RECEIVED fires")
	}
}

func TestRecordKeepsPerEventNote(t *testing.T) {
	trail := &Trail{RequestID: uuid.New()}
	note := "left at dock 3"
	if err := trail.Record(EventReceived, time.Now().UTC(), &note); err != nil {
		t.Fatal(err)
	}
	if trail.Notes[string(EventReceived)] != note {
		t.Fatalf("expected note to be kept, got %v", trail.Notes)
	}
}

func TestParseEvent(t *testing.T) {
	if _, err := ParseEvent("RECEIVED"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseEvent("DELIVERED"); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
}
