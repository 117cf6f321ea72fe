package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- in-memory fakes shared by the service tests ----

type fakeEstRepo struct {
	ests map[string]*domain.Establishment // by ID
	err  error
}

func newFakeEstRepo(ests ...*domain.Establishment) *fakeEstRepo {
	r := &fakeEstRepo{ests: make(map[string]*domain.Establishment)}
	for _, est := range ests {
		r.ests[est.ID] = est
	}
	return r
}

func (r *fakeEstRepo) Create(_ context.Context, est *domain.Establishment) (*domain.Establishment, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.ests[est.ID] = est
	return est, nil
}

func (r *fakeEstRepo) FindByID(_ context.Context, id string) (*domain.Establishment, error) {
	if r.err != nil {
		return nil, r.err
	}
	est, ok := r.ests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return est, nil
}

func (r *fakeEstRepo) FindByName(_ context.Context, name string) (*domain.Establishment, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, est := range r.ests {
		if est.Name == name {
			return est, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeEstRepo) FindAll(_ context.Context) ([]domain.Establishment, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.Establishment, 0, len(r.ests))
	for _, est := range r.ests {
		out = append(out, *est)
	}
	return out, nil
}

func (r *fakeEstRepo) Update(_ context.Context, est *domain.Establishment) (*domain.Establishment, error) {
	r.ests[est.ID] = est
	return est, nil
}

func (r *fakeEstRepo) Delete(_ context.Context, id string) error {
	delete(r.ests, id)
	return nil
}

type fakeResRepo struct {
	rows           map[string]domain.Reservation // by "{estID}|{docKey}"
	nextID         int
	findErr        error
	upsertErr      error
	activeConflict bool
}

func newFakeResRepo() *fakeResRepo {
	return &fakeResRepo{rows: make(map[string]domain.Reservation)}
}

func (r *fakeResRepo) key(establishmentID, docKey string) string {
	return establishmentID + "|" + docKey
}

func (r *fakeResRepo) Upsert(_ context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	if r.activeConflict {
		return nil, repository.ErrActiveReservationExists
	}
	k := r.key(res.EstablishmentID, res.DocKey)
	stored := *res
	if existing, ok := r.rows[k]; ok {
		stored.ID = existing.ID
	} else {
		r.nextID++
		stored.ID = r.nextID
	}
	r.rows[k] = stored
	return &stored, nil
}

func (r *fakeResRepo) FindByUser(_ context.Context, userEmail string) ([]domain.Reservation, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []domain.Reservation
	for _, row := range r.rows {
		if row.UserEmail == userEmail {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeResRepo) FindMatching(_ context.Context, establishmentID string, slotIndex int, userEmail string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, row := range r.rows {
		if row.EstablishmentID == establishmentID && row.SlotIndex == slotIndex && row.UserEmail == userEmail {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeResRepo) DeleteMatching(_ context.Context, establishmentID string, slotIndex int, userEmail string) (int64, error) {
	var deleted int64
	for k, row := range r.rows {
		if row.EstablishmentID == establishmentID && row.SlotIndex == slotIndex && row.UserEmail == userEmail {
			delete(r.rows, k)
			deleted++
		}
	}
	return deleted, nil
}

type fakeReservationCache struct {
	data map[string][]domain.ReservedSlot
}

func newFakeReservationCache() *fakeReservationCache {
	return &fakeReservationCache{data: make(map[string][]domain.ReservedSlot)}
}

func (c *fakeReservationCache) Load(_ context.Context, userEmail string) []domain.ReservedSlot {
	return c.data[userEmail]
}

func (c *fakeReservationCache) Save(_ context.Context, userEmail string, slots []domain.ReservedSlot) error {
	if len(slots) == 0 {
		delete(c.data, userEmail)
		return nil
	}
	cp := make([]domain.ReservedSlot, len(slots))
	copy(cp, slots)
	c.data[userEmail] = cp
	return nil
}

func (c *fakeReservationCache) Clear(_ context.Context, userEmail string) error {
	delete(c.data, userEmail)
	return nil
}

type fakeNotifier struct {
	events []domain.Notification
}

func (n *fakeNotifier) Dispatch(_ context.Context, event *domain.Notification) {
	n.events = append(n.events, *event)
}

type fakeIndicator struct {
	reserved []string
	released []string
}

func (i *fakeIndicator) SignalReserved(_ context.Context, establishmentName, floorTitle string, slotIndex int) {
	i.reserved = append(i.reserved, fmt.Sprintf("%s/%s/%d", establishmentName, floorTitle, slotIndex))
}

func (i *fakeIndicator) SignalReleased(_ context.Context, establishmentName, floorTitle string, slotIndex int) {
	i.released = append(i.released, fmt.Sprintf("%s/%s/%d", establishmentName, floorTitle, slotIndex))
}

// ---- fixtures ----

func countryMall() *domain.Establishment {
	return &domain.Establishment{
		ID:         "est-country-mall",
		Name:       "Country Mall",
		ParkingPay: 50,
		TotalSlots: 10,
	}
}

type reservationFixture struct {
	svc       *ReservationService
	occupancy *OccupancyService
	estRepo   *fakeEstRepo
	resRepo   *fakeResRepo
	cache     *fakeReservationCache
	notifier  *fakeNotifier
	indicator *fakeIndicator
}

func newReservationFixture(t *testing.T, ests ...*domain.Establishment) *reservationFixture {
	t.Helper()
	estRepo := newFakeEstRepo(ests...)
	resRepo := newFakeResRepo()
	cacheMirror := newFakeReservationCache()
	notifier := &fakeNotifier{}
	indicator := &fakeIndicator{}
	occupancy := NewOccupancyService(estRepo, nil)
	svc := NewReservationService(estRepo, resRepo, occupancy, cacheMirror, notifier, indicator)
	return &reservationFixture{
		svc:       svc,
		occupancy: occupancy,
		estRepo:   estRepo,
		resRepo:   resRepo,
		cache:     cacheMirror,
		notifier:  notifier,
		indicator: indicator,
	}
}

// ---- tests ----

func TestSelectThenConfirm(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	require.NoError(t, f.svc.Select(ctx, "ana@example.com", "est-country-mall", 5))
	assert.Equal(t, domain.StateSelected, f.svc.State(ctx, "ana@example.com"))

	rec, err := f.svc.Confirm(ctx, "ana@example.com", "ABC-123", nil, nil)
	require.NoError(t, err)

	// Slot 5 of a generic layout is zero-based index 4.
	assert.Equal(t, "slot_General Parking_4", rec.DocKey)
	assert.Equal(t, domain.GeneralParkingFloor, rec.FloorTitle)
	assert.Equal(t, 4, rec.SlotIndex)
	assert.Equal(t, domain.ReservationStatusReserved, rec.Status)
	assert.Equal(t, "ABC-123", rec.PlateNumber)

	assert.Equal(t, domain.StateCommitted, f.svc.State(ctx, "ana@example.com"))
	active := f.svc.ActiveReservations(ctx, "ana@example.com")
	require.Len(t, active, 1)
	assert.Equal(t, 5, active[0].SlotNumber)
	assert.True(t, active[0].Committed)

	// Mirror, notification and indicator all fired.
	assert.Len(t, f.cache.data["ana@example.com"], 1)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, domain.NotificationTypeReservation, f.notifier.events[0].Type)
	assert.Equal(t, []string{"Country Mall/General Parking/4"}, f.indicator.reserved)
}

func TestSelectOccupiedSlotRejected(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	body := []byte(`{"management_name":"Country Mall","slot_id":"General Parking_4","status":"Occupied"}`)
	require.NoError(t, f.occupancy.HandleResStatusEvent(ctx, body))

	err := f.svc.Select(ctx, "ana@example.com", "est-country-mall", 4)
	assert.ErrorIs(t, err, ErrSlotOccupied)
	assert.Equal(t, domain.StateIdle, f.svc.State(ctx, "ana@example.com"))

	// A different slot is still selectable.
	require.NoError(t, f.svc.Select(ctx, "ana@example.com", "est-country-mall", 5))
}

func TestSelectUnknownSlot(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	err := f.svc.Select(ctx, "ana@example.com", "est-country-mall", 42)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSelectUnknownEstablishment(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t)

	err := f.svc.Select(ctx, "ana@example.com", "no-such-est", 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSingleReservationRule(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	require.NoError(t, f.svc.Select(ctx, "ana@example.com", "est-country-mall", 1))

	// A second selection while one is pending is refused.
	err := f.svc.Select(ctx, "ana@example.com", "est-country-mall", 2)
	assert.ErrorIs(t, err, ErrReservationLimit)

	_, err = f.svc.Confirm(ctx, "ana@example.com", "ABC-123", nil, nil)
	require.NoError(t, err)

	// And so is one while a reservation is committed.
	err = f.svc.Select(ctx, "ana@example.com", "est-country-mall", 2)
	assert.ErrorIs(t, err, ErrReservationLimit)

	// Another user is unaffected.
	require.NoError(t, f.svc.Select(ctx, "ben@example.com", "est-country-mall", 2))
}

func TestConfirmWithoutSelect(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	_, err := f.svc.Confirm(ctx, "ana@example.com", "ABC-123", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmStoreConflictMapsToLimit(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())
	f.resRepo.activeConflict = true

	require.NoError(t, f.svc.Select(ctx, "ana@example.com", "est-country-mall", 3))
	_, err := f.svc.Confirm(ctx, "ana@example.com", "ABC-123", nil, nil)
	assert.ErrorIs(t, err, ErrReservationLimit)
}

func TestConfirmPersistenceFailureKeepsSelected(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())
	f.resRepo.upsertErr = errors.New("connection refused")

	require.NoError(t, f.svc.Select(ctx, "ana@example.com", "est-country-mall", 3))

	_, err := f.svc.Confirm(ctx, "ana@example.com", "ABC-123", nil, nil)
	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "confirm", persistErr.Op)

	// The selection survives the failure, so the same call can be retried.
	assert.Equal(t, domain.StateSelected, f.svc.State(ctx, "ana@example.com"))
	f.resRepo.upsertErr = nil
	rec, err := f.svc.Confirm(ctx, "ana@example.com", "ABC-123", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "slot_General Parking_2", rec.DocKey)
}

func TestConfirmRetryOverwritesSameKey(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	require.NoError(t, f.svc.Select(ctx, "ana@example.com", "est-country-mall", 3))
	rec1, err := f.svc.Confirm(ctx, "ana@example.com", "ABC-123", nil, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, "ana@example.com", "est-country-mall", 3))
	require.NoError(t, f.svc.Select(ctx, "ben@example.com", "est-country-mall", 3))
	rec2, err := f.svc.Confirm(ctx, "ben@example.com", "XYZ-987", nil, nil)
	require.NoError(t, err)

	// Same logical slot resolves to the same deterministic key.
	assert.Equal(t, rec1.DocKey, rec2.DocKey)
	assert.Len(t, f.resRepo.rows, 1)
}

func TestCancelSelectedDiscardsWithoutStoreWrite(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	require.NoError(t, f.svc.Select(ctx, "ana@example.com", "est-country-mall", 7))
	require.NoError(t, f.svc.Cancel(ctx, "ana@example.com", "est-country-mall", 7))

	assert.Equal(t, domain.StateIdle, f.svc.State(ctx, "ana@example.com"))
	assert.Empty(t, f.resRepo.rows)
	assert.Empty(t, f.notifier.events)
}

func TestCancelCommittedReservation(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	require.NoError(t, f.svc.Select(ctx, "ana@example.com", "est-country-mall", 7))
	_, err := f.svc.Confirm(ctx, "ana@example.com", "ABC-123", nil, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, "ana@example.com", "est-country-mall", 7))

	assert.Equal(t, domain.StateIdle, f.svc.State(ctx, "ana@example.com"))
	assert.Empty(t, f.svc.ActiveReservations(ctx, "ana@example.com"))
	assert.Empty(t, f.resRepo.rows)
	assert.Empty(t, f.cache.data["ana@example.com"])

	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, domain.NotificationTypeCancellation, f.notifier.events[1].Type)
	assert.Equal(t, []string{"Country Mall/General Parking/6"}, f.indicator.released)
}

func TestCancelUnknownReservation(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	err := f.svc.Cancel(ctx, "ana@example.com", "est-country-mall", 7)
	assert.ErrorIs(t, err, ErrNoSuchReservation)
}

func TestCancelSweepsDuplicateRows(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	require.NoError(t, f.svc.Select(ctx, "ana@example.com", "est-country-mall", 7))
	_, err := f.svc.Confirm(ctx, "ana@example.com", "ABC-123", nil, nil)
	require.NoError(t, err)

	// Simulate a stray duplicate row left by an older write path.
	f.resRepo.rows["est-country-mall|legacy_dup"] = domain.Reservation{
		ID: 99, DocKey: "legacy_dup", UserEmail: "ana@example.com",
		EstablishmentID: "est-country-mall", SlotIndex: 6, SlotNumber: 7,
		Status: domain.ReservationStatusReserved,
	}

	require.NoError(t, f.svc.Cancel(ctx, "ana@example.com", "est-country-mall", 7))
	assert.Empty(t, f.resRepo.rows)
}

func TestMultiFloorConfirmRecordsFloorAndIndex(t *testing.T) {
	ctx := context.Background()
	tower := &domain.Establishment{
		ID:   "est-gv-tower",
		Name: "GV Tower",
		FloorDetails: []domain.FloorDescriptor{
			{FloorName: "A", SlotCount: 3},
			{FloorName: "B", SlotCount: 2},
		},
	}
	f := newReservationFixture(t, tower)

	require.NoError(t, f.svc.Select(ctx, "ana@example.com", "est-gv-tower", 4))
	rec, err := f.svc.Confirm(ctx, "ana@example.com", "ABC-123", nil, nil)
	require.NoError(t, err)

	// Global slot 4 is the first slot of floor B.
	assert.Equal(t, "slot_B_0", rec.DocKey)
	assert.Equal(t, "B", rec.FloorTitle)
	assert.Equal(t, 0, rec.SlotIndex)

	// Cancel matches on the recorded index, not a fresh layout resolution.
	require.NoError(t, f.svc.Cancel(ctx, "ana@example.com", "est-gv-tower", 4))
	assert.Empty(t, f.resRepo.rows)
}

func TestSeedFromStoreOnFirstTouch(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())
	f.resRepo.rows["est-country-mall|slot_General Parking_1"] = domain.Reservation{
		ID: 1, DocKey: "slot_General Parking_1", UserEmail: "ana@example.com",
		EstablishmentID: "est-country-mall", EstablishmentName: "Country Mall",
		FloorTitle: domain.GeneralParkingFloor, SlotIndex: 1, SlotNumber: 2,
		Status: domain.ReservationStatusReserved,
	}

	active := f.svc.ActiveReservations(ctx, "ana@example.com")
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].SlotNumber)
	assert.Equal(t, domain.StateCommitted, f.svc.State(ctx, "ana@example.com"))

	// The mirror got refreshed from the store answer.
	assert.Len(t, f.cache.data["ana@example.com"], 1)
}

func TestSeedKeepsCacheWhenStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())
	f.cache.data["ana@example.com"] = []domain.ReservedSlot{{
		SlotNumber: 3, EstablishmentID: "est-country-mall",
		EstablishmentName: "Country Mall", SlotIndex: 2, Committed: true,
	}}
	f.resRepo.findErr = errors.New("connection refused")

	active := f.svc.ActiveReservations(ctx, "ana@example.com")
	require.Len(t, active, 1)
	assert.Equal(t, 3, active[0].SlotNumber)
	assert.Equal(t, domain.StateCommitted, f.svc.State(ctx, "ana@example.com"))
}

func TestStoreSupersedesCacheOnSeed(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	// Cache claims a reservation the store no longer has.
	f.cache.data["ana@example.com"] = []domain.ReservedSlot{{
		SlotNumber: 3, EstablishmentID: "est-country-mall", Committed: true,
	}}

	active := f.svc.ActiveReservations(ctx, "ana@example.com")
	assert.Empty(t, active)
	assert.Equal(t, domain.StateIdle, f.svc.State(ctx, "ana@example.com"))
}

func TestEndToEndCountryMallScenario(t *testing.T) {
	ctx := context.Background()
	f := newReservationFixture(t, countryMall())

	// Feed B reports slot 4 occupied.
	body := []byte(`{"management_name":"Country Mall","slot_id":"General Parking_4","status":"Occupied"}`)
	require.NoError(t, f.occupancy.HandleResStatusEvent(ctx, body))

	assert.ErrorIs(t, f.svc.Select(ctx, "ana@example.com", "est-country-mall", 4), ErrSlotOccupied)

	require.NoError(t, f.svc.Select(ctx, "ana@example.com", "est-country-mall", 5))
	rec, err := f.svc.Confirm(ctx, "ana@example.com", "ABC-123", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "slot_General Parking_4", rec.DocKey)

	require.NoError(t, f.svc.Cancel(ctx, "ana@example.com", "est-country-mall", 5))
	assert.Equal(t, domain.StateIdle, f.svc.State(ctx, "ana@example.com"))
	assert.Empty(t, f.svc.ActiveReservations(ctx, "ana@example.com"))
}
