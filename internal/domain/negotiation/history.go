package negotiation

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind represents the kind of a negotiation history entry.
type EntryKind string

const (
	KindPropose   EntryKind = "PROPOSE"
	KindNegotiate EntryKind = "NEGOTIATE"
	KindAccept    EntryKind = "ACCEPT"
)

// HistoryEntry is one immutable record in a request's negotiation ledger.
// Sequence is assigned by the ledger itself, never by callers, so the ordered
// entries are the authoritative reconstruction of deliberation state.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	RequestID uuid.UUID `json:"requestId"`
	Sequence  int       `json:"sequence"`
	Kind      EntryKind `json:"kind"`
	Amount    *float64  `json:"amount,omitempty"`
	ActorID   uuid.UUID `json:"actorId"`
	Comments  *string   `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Replay folds an ordered ledger back into deliberation state. Used to audit
// that the cached deliberation row matches its history.
func Replay(requestID uuid.UUID, entries []*HistoryEntry) *Deliberation {
	d := NewDeliberation(requestID)
	for _, e := range entries {
		switch e.Kind {
		case KindPropose:
			if e.Amount != nil {
				_ = d.Propose(e.ActorID, *e.Amount)
			}
		case KindNegotiate:
			if e.Amount != nil {
				_ = d.Counter(e.ActorID, *e.Amount)
			}
		case KindAccept:
			_, _ = d.Accept(e.ActorID)
		}
	}
	return d
}
