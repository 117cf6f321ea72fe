package domain

// Occupancy feed statuses. Anything other than "Occupied" counts as free;
// absence in both feeds means free.
const (
	FeedStatusOccupied = "Occupied"
	FeedStatusVacant   = "Vacant"
)

// SensorStatusEvent is one message from the sensor feed (feed A, SQS).
// DocKey has the shape "slot_{floorName}_{ordinalIndex}"; the establishment
// is identified by display name because the deployed sensors predate the
// stable-ID scheme.
type SensorStatusEvent struct {
	EstablishmentName string `json:"management_name"`
	DocKey            string `json:"doc_key"`
	Status            string `json:"status"`
}

// ResStatusEvent is one message from the reservation-status feed (feed B,
// Kafka). SlotID is either a plain numeric index for a generic layout or a
// composite "{floorNameLower}_{slotNumber}" string.
type ResStatusEvent struct {
	EstablishmentName string `json:"management_name"`
	SlotID            string `json:"slot_id"`
	Status            string `json:"status"`
}
