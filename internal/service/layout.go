package service

import (
	"fmt"

	"parking_reserve/internal/domain"
)

// ResolveLayout turns an establishment record into its floor/slot grid.
// Slot numbering is global across floors, iterating floors in declaration
// order, so the same snapshot always yields the same numbering. When only a
// total slot count is declared, a single "General Parking" pseudo-floor is
// synthesized. No floors and no total means the layout is unavailable,
// which is a valid empty state rather than an error.
func ResolveLayout(est *domain.Establishment) []domain.FloorSet {
	if est == nil {
		return nil
	}

	slotCounter := 0

	if len(est.FloorDetails) > 0 {
		floorSets := make([]domain.FloorSet, 0, len(est.FloorDetails))
		for _, floor := range est.FloorDetails {
			slots := make([]domain.Slot, 0, floor.SlotCount)
			for i := 0; i < floor.SlotCount; i++ {
				slotCounter++
				slots = append(slots, domain.Slot{
					ID:         fmt.Sprintf("%s-%d", floor.FloorName, i+1),
					Floor:      floor.FloorName,
					SlotNumber: slotCounter,
				})
			}
			floorSets = append(floorSets, domain.FloorSet{Title: floor.FloorName, Slots: slots})
		}
		return floorSets
	}

	if est.TotalSlots > 0 {
		slots := make([]domain.Slot, 0, est.TotalSlots)
		for i := 0; i < est.TotalSlots; i++ {
			slotCounter++
			slots = append(slots, domain.Slot{
				ID:         fmt.Sprintf("%d", i),
				Floor:      domain.GeneralParkingFloor,
				SlotNumber: slotCounter,
			})
		}
		return []domain.FloorSet{{Title: domain.GeneralParkingFloor, Slots: slots}}
	}

	return nil
}

// findSlot locates a slot by its global number. Slot numbers are unique by
// construction, so the first match is the only match.
func findSlot(floorSets []domain.FloorSet, slotNumber int) (floorTitle string, slotIndex int, slot *domain.Slot) {
	for _, set := range floorSets {
		for i := range set.Slots {
			if set.Slots[i].SlotNumber == slotNumber {
				return set.Title, i, &set.Slots[i]
			}
		}
	}
	return "", -1, nil
}
