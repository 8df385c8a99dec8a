package invoice

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNegotiationNotResolved = errors.New("cost deliberation must be agreed before invoicing")
	ErrAlreadyIssued          = errors.New("invoice already issued for this request")
)

// PartUsed is one line item on an invoice.
type PartUsed struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Invoice closes out a maintenance request. Created exactly once, immutable
// thereafter.
type Invoice struct {
	ID         int64      `json:"id"`
	RequestID  uuid.UUID  `json:"requestId"`
	LaborHours float64    `json:"laborHours"`
	TotalCost  float64    `json:"totalCost"`
	Parts      []PartUsed `json:"parts"`
	IssuedBy   uuid.UUID  `json:"issuedBy"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// PartsTotal sums the line items.
func (i *Invoice) PartsTotal() float64 {
	var total float64
	for _, p := range i.Parts {
		total += float64(p.Quantity) * p.UnitPrice
	}
	return total
}

// Validate checks invoice fields before persistence.
func (i *Invoice) Validate() error {
	if i.LaborHours < 0 {
		return errors.New("labor hours must not be negative")
	}
	if i.TotalCost < 0 {
		return errors.New("total cost must not be negative")
	}
	for _, p := range i.Parts {
		if strings.TrimSpace(p.Name) == "" {
			return errors.New("part name is required")
		}
		if p.Quantity <= 0 {
			return errors.New("part quantity must be positive")
		}
		if p.UnitPrice < 0 {
			return errors.New("part unit price must not be negative")
		}
	}
	return nil
}
