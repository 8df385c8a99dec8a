package vehicle

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents vehicle status.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusRetired Status = "RETIRED"
)

var ErrNotFound = errors.New("vehicle not found")

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID        int64     `json:"id"`
	VehicleID uuid.UUID `json:"vehicleId"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	Plate     string    `json:"plate"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayName renders the vehicle for snapshots and lists.
func (v *Vehicle) DisplayName() string {
	return strings.TrimSpace(v.Make + " " + v.Model + " (" + v.Plate + ")")
}

func (v *Vehicle) Validate() error {
	if strings.TrimSpace(v.Make) == "" || strings.TrimSpace(v.Model) == "" {
		return errors.New("make and model are required")
	}
	if v.Year < 1950 || v.Year > time.Now().Year()+1 {
		return errors.New("year out of range")
	}
	if strings.TrimSpace(v.Plate) == "" {
		return errors.New("plate is required")
	}
	switch v.Status {
	case StatusActive, StatusRetired:
	default:
		return errors.New("invalid vehicle status")
	}
	return nil
}
