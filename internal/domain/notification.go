package domain

import "time"

const (
	NotificationTypeReservation  = "reservation"
	NotificationTypeCancellation = "cancellation"
)

// Notification is a persisted record of a reservation event. Delivery beyond
// the websocket broadcast is external.
type Notification struct {
	ID                int       `json:"id"`
	Type              string    `json:"type"`
	Details           string    `json:"details"`
	EstablishmentID   string    `json:"establishment_id"`
	EstablishmentName string    `json:"establishment_name"`
	UserEmail         string    `json:"user_email"`
	Read              bool      `json:"read"`
	Timestamp         time.Time `json:"timestamp"`
	CreatedAt         time.Time `json:"created_at"`
}

// SlotStatusNotification is the websocket payload pushed whenever the
// aggregated occupancy of an establishment changes.
type SlotStatusNotification struct {
	Type              string     `json:"type"` // "slot_status"
	EstablishmentID   string     `json:"establishment_id,omitempty"`
	EstablishmentName string     `json:"establishment_name"`
	FloorSets         []FloorSet `json:"floor_sets"`
	Timestamp         time.Time  `json:"timestamp"`
}

// ReservationNotification is the websocket payload for commit/cancel events.
type ReservationNotification struct {
	Type              string    `json:"type"` // "reservation" | "cancellation"
	Details           string    `json:"details"`
	EstablishmentName string    `json:"establishment_name"`
	UserEmail         string    `json:"user_email"`
	SlotNumber        int       `json:"slot_number"`
	Timestamp         time.Time `json:"timestamp"`
}
