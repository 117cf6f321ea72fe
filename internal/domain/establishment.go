package domain

import "time"

// FloorDescriptor is one named floor/zone and the number of slots it holds.
// It only exists nested inside an Establishment.
type FloorDescriptor struct {
	FloorName string `json:"floor_name" binding:"required"`
	SlotCount int    `json:"slot_count" binding:"required,min=0"`
}

// Establishment is a parking facility. ID is the stable reference used
// everywhere internally; Name stays a unique, renamable display attribute
// because the deployed sensor feeds are still keyed by it.
type Establishment struct {
	ID           string            `json:"id"`
	Name         string            `json:"name" binding:"required"`
	Address      string            `json:"address,omitempty"`
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	OpenTime     string            `json:"open_time,omitempty"`
	CloseTime    string            `json:"close_time,omitempty"`
	ParkingPay   float64           `json:"parking_pay"`
	TotalSlots   int               `json:"total_slots,omitempty"`
	FloorDetails []FloorDescriptor `json:"floor_details,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type EstablishmentDTO struct {
	Name         string            `json:"name" binding:"required"`
	Address      string            `json:"address"`
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	OpenTime     string            `json:"open_time"`
	CloseTime    string            `json:"close_time"`
	ParkingPay   float64           `json:"parking_pay"`
	TotalSlots   int               `json:"total_slots"`
	FloorDetails []FloorDescriptor `json:"floor_details"`
}

// EstablishmentDistance is a search hit for the nearby query, sorted by
// DistanceM ascending.
type EstablishmentDistance struct {
	Establishment
	DistanceM float64 `json:"distance_m"`
}
