package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"gopkg.in/guregu/null.v4"
)

var ErrSlotOccupied = errors.New("slot is already occupied")
var ErrReservationLimit = errors.New("only one slot may be reserved at a time")
var ErrInvalidState = errors.New("no slot selected")
var ErrNoSuchReservation = errors.New("no matching reservation")
var ErrSlotNotFound = errors.New("slot not found in layout")

// PersistenceError wraps a store I/O failure. The state machine never
// retries on its own; the caller re-attempts the same operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ReservationCache mirrors a user's reservation list. Declared here so the
// service does not depend on the redis implementation.
type ReservationCache interface {
	Load(ctx context.Context, userEmail string) []domain.ReservedSlot
	Save(ctx context.Context, userEmail string, slots []domain.ReservedSlot) error
	Clear(ctx context.Context, userEmail string) error
}

// NotificationSink receives fire-and-forget reservation events. Delivery is
// external; failures must not affect the reservation outcome.
type NotificationSink interface {
	Dispatch(ctx context.Context, n *domain.Notification)
}

// SlotIndicator drives the physical slot display, if one is wired.
type SlotIndicator interface {
	SignalReserved(ctx context.Context, establishmentName, floorTitle string, slotIndex int)
	SignalReleased(ctx context.Context, establishmentName, floorTitle string, slotIndex int)
}

// userState is one user's position in the select/confirm/cancel lifecycle.
// Selected and Committed are mutually exclusive with any other active
// reservation by the same user, regardless of establishment.
type userState struct {
	state    domain.ReservationState
	selected *domain.ReservedSlot
	reserved []domain.ReservedSlot
}

// ReservationService is the reservation state machine:
// Idle -> Selected -> Committed -> Idle. The one-active-reservation rule is
// enforced at Select, and again by the store's partial unique index at
// Confirm in case a second session slipped past the in-memory check.
type ReservationService struct {
	estRepo   repository.EstablishmentRepository
	resRepo   repository.ReservationRepository
	occupancy *OccupancyService
	cache     ReservationCache
	notifier  NotificationSink
	indicator SlotIndicator

	mu    sync.Mutex
	users map[string]*userState
}

func NewReservationService(
	estRepo repository.EstablishmentRepository,
	resRepo repository.ReservationRepository,
	occupancy *OccupancyService,
	cache ReservationCache,
	notifier NotificationSink,
	indicator SlotIndicator,
) *ReservationService {
	return &ReservationService{
		estRepo:   estRepo,
		resRepo:   resRepo,
		occupancy: occupancy,
		cache:     cache,
		notifier:  notifier,
		indicator: indicator,
		users:     make(map[string]*userState),
	}
}

// Select moves Idle -> Selected for the given slot. The UI already hides
// occupied slots, but occupancy is re-validated here against the latest
// aggregated feed state.
func (s *ReservationService) Select(ctx context.Context, userEmail, establishmentID string, slotNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.userStateLocked(ctx, userEmail)
	if st.state == domain.StateSelected || st.state == domain.StateCommitted {
		return ErrReservationLimit
	}

	est, err := s.estRepo.FindByID(ctx, establishmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return &PersistenceError{Op: "select", Err: err}
	}

	floorSets := s.occupancy.FloorSetsFor(est)
	_, _, slot := findSlot(floorSets, slotNumber)
	if slot == nil {
		return ErrSlotNotFound
	}
	if slot.Occupied {
		return ErrSlotOccupied
	}

	st.state = domain.StateSelected
	st.selected = &domain.ReservedSlot{
		SlotNumber:        slotNumber,
		EstablishmentID:   est.ID,
		EstablishmentName: est.Name,
		ParkingPay:        est.ParkingPay,
	}
	return nil
}

// Confirm moves Selected -> Committed by writing the durable record at the
// deterministic key slot_{floorTitle}_{slotIndex}. The merge-upsert makes a
// retry after an ambiguous network failure overwrite instead of duplicate.
// On store failure the state stays Selected so the caller can retry.
func (s *ReservationService) Confirm(ctx context.Context, userEmail, plateNumber string, lat, lng *float64) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.userStateLocked(ctx, userEmail)
	if st.state != domain.StateSelected || st.selected == nil {
		return nil, ErrInvalidState
	}

	est, err := s.estRepo.FindByID(ctx, st.selected.EstablishmentID)
	if err != nil {
		return nil, &PersistenceError{Op: "confirm", Err: err}
	}

	floorSets := s.occupancy.FloorSetsFor(est)
	floorTitle, slotIndex, slot := findSlot(floorSets, st.selected.SlotNumber)
	if slot == nil {
		return nil, ErrSlotNotFound
	}

	rec := &domain.Reservation{
		DocKey:            domain.ReservationDocKey(floorTitle, slotIndex),
		UserEmail:         userEmail,
		PlateNumber:       plateNumber,
		SlotIndex:         slotIndex,
		SlotNumber:        st.selected.SlotNumber,
		EstablishmentID:   est.ID,
		EstablishmentName: est.Name,
		FloorTitle:        floorTitle,
		Status:            domain.ReservationStatusReserved,
		Latitude:          null.FloatFromPtr(lat),
		Longitude:         null.FloatFromPtr(lng),
		Timestamp:         time.Now().UTC(),
	}

	rec, err = s.resRepo.Upsert(ctx, rec)
	if err != nil {
		if errors.Is(err, repository.ErrActiveReservationExists) {
			// Another session of the same account won the race.
			return nil, ErrReservationLimit
		}
		return nil, &PersistenceError{Op: "confirm", Err: err}
	}

	entry := *st.selected
	entry.FloorTitle = floorTitle
	entry.SlotIndex = slotIndex
	entry.Committed = true
	st.reserved = append(st.reserved, entry)
	st.selected = nil
	st.state = domain.StateCommitted

	s.saveMirror(ctx, userEmail, st)
	s.dispatch(ctx, domain.NotificationTypeReservation,
		fmt.Sprintf("A new reservation for slot %d has been made", entry.SlotNumber), est, userEmail)
	if s.indicator != nil {
		s.indicator.SignalReserved(ctx, est.Name, floorTitle, slotIndex)
	}
	return rec, nil
}

// Cancel releases a Selected or Committed reservation matching the slot and
// establishment. For committed reservations every store row matching
// {slotIndex, establishment, userEmail} is deleted; zero or multiple matches
// are tolerated to sweep duplicates left by older write bugs. On deletion
// failure the state is unchanged.
func (s *ReservationService) Cancel(ctx context.Context, userEmail, establishmentID string, slotNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.userStateLocked(ctx, userEmail)

	if st.state == domain.StateSelected && st.selected != nil &&
		st.selected.SlotNumber == slotNumber && st.selected.EstablishmentID == establishmentID {
		st.selected = nil
		st.state = domain.StateIdle
		return nil
	}

	entryIdx := -1
	for i, entry := range st.reserved {
		if entry.SlotNumber == slotNumber && entry.EstablishmentID == establishmentID {
			entryIdx = i
			break
		}
	}
	if entryIdx < 0 {
		return ErrNoSuchReservation
	}
	entry := st.reserved[entryIdx]

	deleted, err := s.resRepo.DeleteMatching(ctx, establishmentID, entry.SlotIndex, userEmail)
	if err != nil {
		return &PersistenceError{Op: "cancel", Err: err}
	}
	if deleted == 0 {
		log.Printf("ReservationService: cancel for %s slot %d found no store rows, clearing local state anyway", userEmail, slotNumber)
	}

	st.reserved = append(st.reserved[:entryIdx], st.reserved[entryIdx+1:]...)
	if len(st.reserved) == 0 {
		st.state = domain.StateIdle
	}

	s.saveMirror(ctx, userEmail, st)
	if est, lookupErr := s.estRepo.FindByID(ctx, establishmentID); lookupErr == nil {
		s.dispatch(ctx, domain.NotificationTypeCancellation,
			fmt.Sprintf("Reservation for slot %d has been cancelled", slotNumber), est, userEmail)
		if s.indicator != nil {
			s.indicator.SignalReleased(ctx, est.Name, entry.FloorTitle, entry.SlotIndex)
		}
	}
	return nil
}

// ActiveReservations returns the user's committed reservations, seeding the
// state from the cache mirror and the store on first touch.
func (s *ReservationService) ActiveReservations(ctx context.Context, userEmail string) []domain.ReservedSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.userStateLocked(ctx, userEmail)
	out := make([]domain.ReservedSlot, len(st.reserved))
	copy(out, st.reserved)
	return out
}

// State reports where the user currently is in the lifecycle.
func (s *ReservationService) State(ctx context.Context, userEmail string) domain.ReservationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userStateLocked(ctx, userEmail).state
}

// userStateLocked seeds a user's state on first touch: the cache mirror
// fills in immediately so a store outage does not blank the list, then the
// store answer silently supersedes it. Callers hold s.mu.
func (s *ReservationService) userStateLocked(ctx context.Context, userEmail string) *userState {
	st, ok := s.users[userEmail]
	if ok {
		return st
	}
	st = &userState{state: domain.StateIdle}

	if s.cache != nil {
		if cached := s.cache.Load(ctx, userEmail); len(cached) > 0 {
			st.reserved = cached
			st.state = domain.StateCommitted
		}
	}

	rows, err := s.resRepo.FindByUser(ctx, userEmail)
	if err != nil {
		log.Printf("ReservationService: store unavailable while seeding %s, keeping cached snapshot: %v", userEmail, err)
	} else {
		st.reserved = st.reserved[:0]
		for _, r := range rows {
			if r.Status != domain.ReservationStatusReserved {
				continue
			}
			st.reserved = append(st.reserved, domain.ReservedSlot{
				SlotNumber:        r.SlotNumber,
				EstablishmentID:   r.EstablishmentID,
				EstablishmentName: r.EstablishmentName,
				FloorTitle:        r.FloorTitle,
				SlotIndex:         r.SlotIndex,
				Committed:         true,
			})
		}
		if len(st.reserved) > 0 {
			st.state = domain.StateCommitted
		} else {
			st.state = domain.StateIdle
		}
		s.saveMirror(ctx, userEmail, st)
	}

	s.users[userEmail] = st
	return st
}

func (s *ReservationService) saveMirror(ctx context.Context, userEmail string, st *userState) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, userEmail, st.reserved); err != nil {
		log.Printf("ReservationService: error mirroring reservations for %s: %v", userEmail, err)
	}
}

func (s *ReservationService) dispatch(ctx context.Context, notifType, details string, est *domain.Establishment, userEmail string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(ctx, &domain.Notification{
		Type:              notifType,
		Details:           details,
		EstablishmentID:   est.ID,
		EstablishmentName: est.Name,
		UserEmail:         userEmail,
		Timestamp:         time.Now().UTC(),
	})
}
