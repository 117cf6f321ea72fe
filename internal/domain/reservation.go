package domain

import (
	"fmt"
	"time"

	"gopkg.in/guregu/null.v4"
)

type ReservationState string

const (
	StateIdle      ReservationState = "idle"
	StateSelected  ReservationState = "selected"
	StateCommitted ReservationState = "committed"
	StateCancelled ReservationState = "cancelled"
)

const ReservationStatusReserved = "Reserved"

// ReservedSlot is the local mirror entry for one in-flight or committed
// reservation. FloorTitle/SlotIndex are recorded at commit time so a later
// cancel matches the exact store rows even if the layout changed since.
type ReservedSlot struct {
	SlotNumber        int     `json:"slot_number"`
	EstablishmentID   string  `json:"establishment_id"`
	EstablishmentName string  `json:"establishment_name"`
	ParkingPay        float64 `json:"parking_pay"`
	FloorTitle        string  `json:"floor_title,omitempty"`
	SlotIndex         int     `json:"slot_index"`
	Committed         bool    `json:"committed"`
}

// Reservation is the durable record in the shared store. DocKey is derived
// deterministically from floor title and zero-based slot index so a retried
// commit of the same logical slot overwrites instead of duplicating.
type Reservation struct {
	ID                int        `json:"id"`
	DocKey            string     `json:"doc_key"`
	UserEmail         string     `json:"user_email"`
	PlateNumber       string     `json:"plate_number,omitempty"`
	SlotIndex         int        `json:"slot_index"`
	SlotNumber        int        `json:"slot_number"`
	EstablishmentID   string     `json:"establishment_id"`
	EstablishmentName string     `json:"establishment_name"`
	FloorTitle        string     `json:"floor_title"`
	Status            string     `json:"status"`
	Latitude          null.Float `json:"latitude"`
	Longitude         null.Float `json:"longitude"`
	Timestamp         time.Time  `json:"timestamp"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ReservationDocKey builds the idempotent store key for a slot, e.g.
// "slot_General Parking_2" for the third slot of the General Parking floor.
func ReservationDocKey(floorTitle string, slotIndex int) string {
	return fmt.Sprintf("slot_%s_%d", floorTitle, slotIndex)
}

type SelectSlotDTO struct {
	EstablishmentID string `json:"establishment_id" binding:"required"`
	SlotNumber      int    `json:"slot_number" binding:"required,min=1"`
}

type CancelSlotDTO struct {
	EstablishmentID string `json:"establishment_id" binding:"required"`
	SlotNumber      int    `json:"slot_number" binding:"required,min=1"`
}
