package logistics

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Stage represents the physical handling stage of a request.
type Stage string

const (
	StageNone           Stage = "NONE"
	StagePlanned        Stage = "PLANNED"
	StageReceived       Stage = "RECEIVED"
	StagePickedUp       Stage = "PICKED_UP"
	StageWorkStarted    Stage = "WORK_STARTED"
	StageReadyForReturn Stage = "READY_FOR_RETURN"
	StageReturned       Stage = "RETURNED"
)

// Event is one of the five one-time, ordered handling milestones.
type Event string

const (
	EventReceived       Event = "RECEIVED"
	EventPickedUp       Event = "PICKED_UP"
	EventWorkStarted    Event = "WORK_STARTED"
	EventReadyForReturn Event = "READY_FOR_RETURN"
	EventReturned       Event = "RETURNED"
)

var (
	ErrSequenceViolation = errors.New("logistics event fired out of sequence")
	ErrAlreadyRecorded   = errors.New("logistics event already recorded")
	ErrPlanFrozen        = errors.New("logistics plan is frozen once the vehicle is received")
	ErrUnknownEvent      = errors.New("unknown logistics event")
)

// eventOrder is the only legal firing sequence.
var eventOrder = []Event{EventReceived, EventPickedUp, EventWorkStarted, EventReadyForReturn, EventReturned}

// Events returns the milestones in firing order.
func Events() []Event {
	out := make([]Event, len(eventOrder))
	copy(out, eventOrder)
	return out
}

// ParseEvent maps an external event name onto the closed set.
func ParseEvent(s string) (Event, error) {
	for _, e := range eventOrder {
		if string(e) == s {
			return e, nil
		}
	}
	return "", ErrUnknownEvent
}

// Plan holds pickup/return arrangements. Revisable any number of times until
// the vehicle is received, frozen afterwards.
type Plan struct {
	ID             int64      `json:"id"`
	RequestID      uuid.UUID  `json:"requestId"`
	PickupRequired bool       `json:"pickupRequired"`
	ReturnRequired bool       `json:"returnRequired"`
	PickupAddress  *string    `json:"pickupAddress,omitempty"`
	ReturnAddress  *string    `json:"returnAddress,omitempty"`
	WindowStart    *time.Time `json:"windowStart,omitempty"`
	WindowEnd      *time.Time `json:"windowEnd,omitempty"`
	ContactName    *string    `json:"contactName,omitempty"`
	ContactPhone   *string    `json:"contactPhone,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Trail records each milestone's timestamp, set at most once. Notes holds the
// optional per-event note, keyed by event name.
type Trail struct {
	ID               int64             `json:"id"`
	RequestID        uuid.UUID         `json:"requestId"`
	ReceivedAt       *time.Time        `json:"receivedAt,omitempty"`
	PickedUpAt       *time.Time        `json:"pickedUpAt,omitempty"`
	WorkStartedAt    *time.Time        `json:"workStartedAt,omitempty"`
	ReadyForReturnAt *time.Time        `json:"readyForReturnAt,omitempty"`
	ReturnedAt       *time.Time        `json:"returnedAt,omitempty"`
	Notes            map[string]string `json:"notes,omitempty"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Recorded returns the timestamp for e, or nil if it has not fired.
func (t *Trail) Recorded(e Event) *time.Time {
	switch e {
	case EventReceived:
		return t.ReceivedAt
	case EventPickedUp:
		return t.PickedUpAt
	case EventWorkStarted:
		return t.WorkStartedAt
	case EventReadyForReturn:
		return t.ReadyForReturnAt
	case EventReturned:
		return t.ReturnedAt
	}
	return nil
}

func (t *Trail) set(e Event, ts time.Time) {
	switch e {
	case EventReceived:
		t.ReceivedAt = &ts
	case EventPickedUp:
		t.PickedUpAt = &ts
	case EventWorkStarted:
		t.WorkStartedAt = &ts
	case EventReadyForReturn:
		t.ReadyForReturnAt = &ts
	case EventReturned:
		t.ReturnedAt = &ts
	}
}

// Predecessor returns the event that must fire before e, if any.
func Predecessor(e Event) (Event, bool) {
	for i, ev := range eventOrder {
		if ev == e {
			if i == 0 {
				return "", false
			}
			return eventOrder[i-1], true
		}
	}
	return "", false
}

// Stage derives the handling stage from the trail; planned reports whether a
// logistics plan exists for the request.
func (t *Trail) Stage(planned bool) Stage {
	switch {
	case t.ReturnedAt != nil:
		return StageReturned
	case t.ReadyForReturnAt != nil:
		return StageReadyForReturn
	case t.WorkStartedAt != nil:
		return StageWorkStarted
	case t.PickedUpAt != nil:
		return StagePickedUp
	case t.ReceivedAt != nil:
		return StageReceived
	case planned:
		return StagePlanned
	default:
		return StageNone
	}
}

// Frozen reports whether the plan may no longer be revised.
func (t *Trail) Frozen() bool {
	return t.ReceivedAt != nil
}

// Validate checks that e may fire now with timestamp ts. Repeats are
// rejected, not merged; timestamps must not precede the predecessor's.
func (t *Trail) Validate(e Event, ts time.Time) error {
	if t.Recorded(e) != nil {
		return ErrAlreadyRecorded
	}
	pred, ok := Predecessor(e)
	if !ok {
		return nil
	}
	predAt := t.Recorded(pred)
	if predAt == nil {
		return ErrSequenceViolation
	}
	if ts.Before(*predAt) {
		return ErrSequenceViolation
	}
	return nil
}

// Record validates and applies e at ts with an optional note.
func (t *Trail) Record(e Event, ts time.Time, note *string) error {
	if err := t.Validate(e, ts); err != nil {
		return err
	}
	t.set(e, ts)
	if note != nil && *note != "" {
		if t.Notes == nil {
			t.Notes = make(map[string]string)
		}
		t.Notes[string(e)] = *note
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}
