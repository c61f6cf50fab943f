package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ambu-dispatch/internal/dispatch-service/core/myerrors"
	"ambu-dispatch/internal/fleet-service/core/domain/dto"
	"ambu-dispatch/internal/fleet-service/core/service"
	"ambu-dispatch/internal/mylogger"
)

type FleetHandler struct {
	fleetService *service.FleetService
	mylog        mylogger.Logger
}

func NewFleetHandler(mylog mylogger.Logger, fleetService *service.FleetService) *FleetHandler {
	return &FleetHandler{
		fleetService: fleetService,
		mylog:        mylog,
	}
}

func (fh *FleetHandler) CreateAmbulanceType() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.AmbulanceTypeRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		res, err := fh.fleetService.CreateAmbulanceType(r.Context(), req)
		if err != nil {
			fh.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusCreated, res)
	}
}

func (fh *FleetHandler) ListAmbulanceTypes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := fh.fleetService.ListAmbulanceTypes(r.Context())
		if err != nil {
			fh.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]interface{}{
			"ambulance_types": types,
			"count":           len(types),
		})
	}
}

func (fh *FleetHandler) CreateAmbulance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.AmbulanceRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		res, err := fh.fleetService.CreateAmbulance(r.Context(), req)
		if err != nil {
			fh.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusCreated, res)
	}
}

func (fh *FleetHandler) UpdateAmbulance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ambulanceID := r.PathValue("ambulance_id")

		req := dto.AmbulanceUpdateDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		if err := fh.fleetService.UpdateAmbulance(r.Context(), ambulanceID, req); err != nil {
			fh.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]interface{}{
			"ambulance_id": ambulanceID,
			"updated":      true,
		})
	}
}

func (fh *FleetHandler) ListAmbulances() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ambulances, err := fh.fleetService.ListAmbulances(r.Context())
		if err != nil {
			fh.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]interface{}{
			"ambulances": ambulances,
			"count":      len(ambulances),
		})
	}
}

func (fh *FleetHandler) GetFleetOverview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		overview, err := fh.fleetService.GetFleetOverview(ctx)
		if err != nil {
			fh.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, overview)
	}
}

func (fh *FleetHandler) GetActiveBookings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

		total, bookings, err := fh.fleetService.GetActiveBookings(r.Context(), page, pageSize)
		if err != nil {
			fh.writeError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]interface{}{
			"total":    total,
			"bookings": bookings,
		})
	}
}

func (fh *FleetHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, myerrors.ErrValidation):
		JsonError(w, http.StatusBadRequest, err)
	case errors.Is(err, myerrors.ErrNotFound):
		JsonError(w, http.StatusNotFound, err)
	default:
		fh.mylog.Error("fleet request failed", err)
		JsonError(w, http.StatusInternalServerError, err)
	}
}
