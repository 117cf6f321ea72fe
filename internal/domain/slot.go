package domain

// Slot is one reservable space. It is derived from the establishment record,
// never stored: the whole floor set is recomputed on every feed update.
// SlotNumber is 1-based and globally sequential across all floors of one
// establishment, assigned by iterating floors in declaration order.
type Slot struct {
	ID         string `json:"id"`
	Floor      string `json:"floor"`
	SlotNumber int    `json:"slot_number"`
	Occupied   bool   `json:"occupied"`
}

// FloorSet groups the slots of one floor/zone.
type FloorSet struct {
	Title string `json:"title"`
	Slots []Slot `json:"slots"`
}

// GeneralParkingFloor is the pseudo-floor synthesized for establishments
// that declare only a total slot count.
const GeneralParkingFloor = "General Parking"
