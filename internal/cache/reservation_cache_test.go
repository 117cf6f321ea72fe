package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReservedSlots(t *testing.T) {
	raw := `[{"slot_number":5,"establishment_id":"est-cm","establishment_name":"Country Mall","parking_pay":50,"floor_title":"General Parking","slot_index":4,"committed":true}]`

	slots := DecodeReservedSlots(raw)
	require.Len(t, slots, 1)
	assert.Equal(t, 5, slots[0].SlotNumber)
	assert.Equal(t, "est-cm", slots[0].EstablishmentID)
	assert.Equal(t, "General Parking", slots[0].FloorTitle)
	assert.Equal(t, 4, slots[0].SlotIndex)
	assert.True(t, slots[0].Committed)
}

func TestDecodeReservedSlotsCorruptPayload(t *testing.T) {
	// A corrupt mirror entry reads as an empty cache, never an error.
	assert.Nil(t, DecodeReservedSlots(`{"not":"a list"}`))
	assert.Nil(t, DecodeReservedSlots(`garbage`))
	assert.Nil(t, DecodeReservedSlots(``))
}

func TestDecodeReservedSlotsEmptyList(t *testing.T) {
	assert.Empty(t, DecodeReservedSlots(`[]`))
}
