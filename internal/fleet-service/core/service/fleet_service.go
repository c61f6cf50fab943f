package service

import (
	"context"
	"fmt"
	"time"

	"ambu-dispatch/internal/dispatch-service/core/myerrors"
	"ambu-dispatch/internal/fleet-service/core/domain/dto"
	"ambu-dispatch/internal/fleet-service/core/ports"
	"ambu-dispatch/internal/mylogger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

type FleetService struct {
	ctx       context.Context
	mylog     mylogger.Logger
	fleetRepo ports.IFleetRepo
}

func NewFleetService(ctx context.Context, mylog mylogger.Logger, fleetRepo ports.IFleetRepo) *FleetService {
	return &FleetService{
		ctx:       ctx,
		mylog:     mylog,
		fleetRepo: fleetRepo,
	}
}

func (fs *FleetService) CreateAmbulanceType(ctx context.Context, req dto.AmbulanceTypeRequestDto) (dto.AmbulanceTypeDto, error) {
	if err := validate.Struct(req); err != nil {
		return dto.AmbulanceTypeDto{}, fmt.Errorf("%w: %v", myerrors.ErrValidation, err)
	}

	t := dto.AmbulanceTypeDto{
		TypeID:     uuid.New().String(),
		Name:       *req.Name,
		BasePrice:  *req.BasePrice,
		PricePerKm: *req.PricePerKm,
	}
	if req.Description != nil {
		t.Description = *req.Description
	}

	if err := fs.fleetRepo.CreateAmbulanceType(ctx, t); err != nil {
		return dto.AmbulanceTypeDto{}, fmt.Errorf("create ambulance type: %w", err)
	}

	fs.mylog.Action("ambulance_type_created").Info("ambulance type created",
		"type_id", t.TypeID, "name", t.Name)
	return t, nil
}

func (fs *FleetService) ListAmbulanceTypes(ctx context.Context) ([]dto.AmbulanceTypeDto, error) {
	return fs.fleetRepo.ListAmbulanceTypes(ctx)
}

func (fs *FleetService) CreateAmbulance(ctx context.Context, req dto.AmbulanceRequestDto) (dto.AmbulanceDto, error) {
	if err := validate.Struct(req); err != nil {
		return dto.AmbulanceDto{}, fmt.Errorf("%w: %v", myerrors.ErrValidation, err)
	}

	a := dto.AmbulanceDto{
		AmbulanceID: uuid.New().String(),
		TypeID:      *req.TypeID,
		Status:      "unavailable",
		PlateNumber: *req.PlateNumber,
		DriverID:    req.DriverID,
		Active:      true,
	}

	if err := fs.fleetRepo.CreateAmbulance(ctx, a); err != nil {
		return dto.AmbulanceDto{}, fmt.Errorf("create ambulance: %w", err)
	}

	fs.mylog.Action("ambulance_created").Info("ambulance created",
		"ambulance_id", a.AmbulanceID, "plate_number", a.PlateNumber)
	return a, nil
}

func (fs *FleetService) UpdateAmbulance(ctx context.Context, ambulanceID string, upd dto.AmbulanceUpdateDto) error {
	if err := validate.Struct(upd); err != nil {
		return fmt.Errorf("%w: %v", myerrors.ErrValidation, err)
	}
	if upd.Status == nil && upd.DriverID == nil && upd.Active == nil {
		return fmt.Errorf("%w: nothing to update", myerrors.ErrValidation)
	}

	if err := fs.fleetRepo.UpdateAmbulance(ctx, ambulanceID, upd); err != nil {
		return err
	}

	fs.mylog.Action("ambulance_updated").Info("ambulance updated", "ambulance_id", ambulanceID)
	return nil
}

func (fs *FleetService) ListAmbulances(ctx context.Context) ([]dto.AmbulanceDto, error) {
	return fs.fleetRepo.ListAmbulances(ctx)
}

func (fs *FleetService) GetFleetOverview(ctx context.Context) (dto.FleetOverview, error) {
	metrics, err := fs.fleetRepo.GetMetrics(ctx)
	if err != nil {
		return dto.FleetOverview{}, fmt.Errorf("get metrics: %w", err)
	}
	distribution, err := fs.fleetRepo.GetFleetDistribution(ctx)
	if err != nil {
		return dto.FleetOverview{}, fmt.Errorf("get fleet distribution: %w", err)
	}

	return dto.FleetOverview{
		Timestamp:         time.Now().Format(time.RFC3339),
		Metrics:           metrics,
		FleetDistribution: distribution,
	}, nil
}

func (fs *FleetService) GetActiveBookings(ctx context.Context, page, pageSize int) (int, []dto.ActiveBooking, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return fs.fleetRepo.GetActiveBookings(ctx, page, pageSize)
}
