package service

import (
	"context"
	"math"
	"sort"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

const earthRadiusM = 6371000.0

type EstablishmentService struct {
	estRepo   repository.EstablishmentRepository
	occupancy *OccupancyService
}

func NewEstablishmentService(estRepo repository.EstablishmentRepository, occupancy *OccupancyService) *EstablishmentService {
	return &EstablishmentService{estRepo: estRepo, occupancy: occupancy}
}

func (s *EstablishmentService) Create(ctx context.Context, dto domain.EstablishmentDTO) (*domain.Establishment, error) {
	est := &domain.Establishment{
		Name:         dto.Name,
		Address:      dto.Address,
		Latitude:     dto.Latitude,
		Longitude:    dto.Longitude,
		OpenTime:     dto.OpenTime,
		CloseTime:    dto.CloseTime,
		ParkingPay:   dto.ParkingPay,
		TotalSlots:   dto.TotalSlots,
		FloorDetails: dto.FloorDetails,
	}
	return s.estRepo.Create(ctx, est)
}

func (s *EstablishmentService) GetByID(ctx context.Context, id string) (*domain.Establishment, error) {
	return s.estRepo.FindByID(ctx, id)
}

func (s *EstablishmentService) GetAll(ctx context.Context) ([]domain.Establishment, error) {
	return s.estRepo.FindAll(ctx)
}

func (s *EstablishmentService) Update(ctx context.Context, id string, dto domain.EstablishmentDTO) (*domain.Establishment, error) {
	est, err := s.estRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	est.Name = dto.Name
	est.Address = dto.Address
	est.Latitude = dto.Latitude
	est.Longitude = dto.Longitude
	est.OpenTime = dto.OpenTime
	est.CloseTime = dto.CloseTime
	est.ParkingPay = dto.ParkingPay
	est.TotalSlots = dto.TotalSlots
	est.FloorDetails = dto.FloorDetails
	return s.estRepo.Update(ctx, est)
}

func (s *EstablishmentService) Delete(ctx context.Context, id string) error {
	return s.estRepo.Delete(ctx, id)
}

// Availability returns the establishment's floor set annotated with live
// occupancy. An empty result means the layout is unavailable, which the
// caller must render as zero slots rather than an error.
func (s *EstablishmentService) Availability(ctx context.Context, id string) ([]domain.FloorSet, error) {
	est, err := s.estRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.occupancy.FloorSetsFor(est), nil
}

// Nearby lists establishments within radiusM of the given point, closest
// first.
func (s *EstablishmentService) Nearby(ctx context.Context, lat, lng, radiusM float64) ([]domain.EstablishmentDistance, error) {
	ests, err := s.estRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	var hits []domain.EstablishmentDistance
	for _, est := range ests {
		d := haversineM(lat, lng, est.Latitude, est.Longitude)
		if d <= radiusM {
			hits = append(hits, domain.EstablishmentDistance{Establishment: est, DistanceM: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].DistanceM < hits[j].DistanceM })
	return hits, nil
}

func haversineM(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
