package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

// SlotStatusBroadcaster pushes aggregated occupancy to connected clients.
// Declared here to avoid a dependency on the api package.
type SlotStatusBroadcaster interface {
	BroadcastSlotStatus(event domain.SlotStatusNotification)
}

// feedState holds the latest known contribution of each occupancy feed for
// one establishment. The feeds update independently; the most recent write
// per key wins for that feed, and the aggregate is recomputed from both
// maps on every update.
type feedState struct {
	sensor map[string]string // feed A, keyed "{floor}-{index}"
	res    map[string]string // feed B, keyed by raw slotId
}

// OccupancyService merges the two live occupancy feeds into per-slot
// occupied/free status. Feed state is keyed by establishment display name
// because the deployed sensors still report by name.
type OccupancyService struct {
	estRepo     repository.EstablishmentRepository
	broadcaster SlotStatusBroadcaster

	mu    sync.RWMutex
	feeds map[string]*feedState
}

func NewOccupancyService(estRepo repository.EstablishmentRepository, broadcaster SlotStatusBroadcaster) *OccupancyService {
	return &OccupancyService{
		estRepo:     estRepo,
		broadcaster: broadcaster,
		feeds:       make(map[string]*feedState),
	}
}

// ApplyOccupancy annotates a floor set with the occupancy reported by the
// two feeds. Pure: the input is never mutated, the whole structure is
// rebuilt so no stale per-slot patches survive interleaved feed updates.
// A slot is occupied when either feed reports "Occupied" under any key
// pattern that could refer to it.
func ApplyOccupancy(floorSets []domain.FloorSet, sensorFeed, resFeed map[string]string) []domain.FloorSet {
	if len(floorSets) == 0 {
		return nil
	}

	out := make([]domain.FloorSet, 0, len(floorSets))
	for _, floor := range floorSets {
		slots := make([]domain.Slot, 0, len(floor.Slots))
		for index, slot := range floor.Slots {
			positionalKey := fmt.Sprintf("%s-%d", floor.Title, index)
			genericKey := fmt.Sprintf("%s_%d", domain.GeneralParkingFloor, slot.SlotNumber)
			lowercaseKey := fmt.Sprintf("%s_%d", strings.ToLower(floor.Title), slot.SlotNumber)

			slot.Occupied = sensorFeed[positionalKey] == domain.FeedStatusOccupied ||
				resFeed[genericKey] == domain.FeedStatusOccupied ||
				resFeed[lowercaseKey] == domain.FeedStatusOccupied
			slots = append(slots, slot)
		}
		out = append(out, domain.FloorSet{Title: floor.Title, Slots: slots})
	}
	return out
}

// HandleSensorEvent ingests one feed-A message. DocKey has the shape
// "slot_{floor}_{index}"; anything else is dropped with a log line so a
// malformed message is not redelivered forever.
func (s *OccupancyService) HandleSensorEvent(ctx context.Context, body string) error {
	var event domain.SensorStatusEvent
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		log.Printf("OccupancyService: dropping unparseable sensor event: %v", err)
		return nil
	}
	if event.EstablishmentName == "" || event.DocKey == "" {
		log.Printf("OccupancyService: dropping sensor event with missing fields: %q", body)
		return nil
	}

	parts := strings.SplitN(event.DocKey, "_", 3)
	if len(parts) != 3 || parts[0] != "slot" {
		log.Printf("OccupancyService: dropping sensor event with unrecognized key %q", event.DocKey)
		return nil
	}
	combinedID := fmt.Sprintf("%s-%s", parts[1], parts[2])

	s.mu.Lock()
	state := s.feedStateLocked(event.EstablishmentName)
	state.sensor[combinedID] = event.Status
	s.mu.Unlock()

	return s.publishSnapshot(ctx, event.EstablishmentName)
}

// HandleResStatusEvent ingests one feed-B message, keyed by raw slotId.
func (s *OccupancyService) HandleResStatusEvent(ctx context.Context, body []byte) error {
	var event domain.ResStatusEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("OccupancyService: dropping unparseable res-status event: %v", err)
		return nil
	}
	if event.EstablishmentName == "" || event.SlotID == "" {
		log.Printf("OccupancyService: dropping res-status event with missing fields: %q", body)
		return nil
	}

	s.mu.Lock()
	state := s.feedStateLocked(event.EstablishmentName)
	state.res[event.SlotID] = event.Status
	s.mu.Unlock()

	return s.publishSnapshot(ctx, event.EstablishmentName)
}

// FloorSetsFor resolves the establishment's layout and applies the current
// feed state. An empty layout comes back as nil.
func (s *OccupancyService) FloorSetsFor(est *domain.Establishment) []domain.FloorSet {
	floorSets := ResolveLayout(est)
	if len(floorSets) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.feeds[est.Name]
	if !ok {
		return ApplyOccupancy(floorSets, nil, nil)
	}
	return ApplyOccupancy(floorSets, state.sensor, state.res)
}

func (s *OccupancyService) feedStateLocked(establishmentName string) *feedState {
	state, ok := s.feeds[establishmentName]
	if !ok {
		state = &feedState{sensor: make(map[string]string), res: make(map[string]string)}
		s.feeds[establishmentName] = state
	}
	return state
}

// publishSnapshot recomputes the full floor set and broadcasts it. A lookup
// failure keeps the last snapshot on clients (stale-but-available) instead
// of clearing slot state to unknown.
func (s *OccupancyService) publishSnapshot(ctx context.Context, establishmentName string) error {
	est, err := s.estRepo.FindByName(ctx, establishmentName)
	if err != nil {
		log.Printf("OccupancyService: could not resolve establishment %q: %v", establishmentName, err)
		return nil
	}

	floorSets := s.FloorSetsFor(est)
	if floorSets == nil {
		return nil
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastSlotStatus(domain.SlotStatusNotification{
			Type:              "slot_status",
			EstablishmentID:   est.ID,
			EstablishmentName: est.Name,
			FloorSets:         floorSets,
			Timestamp:         time.Now().UTC(),
		})
	}
	return nil
}
