package handle

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ambu-dispatch/internal/dispatch-service/core/domain/dto"
	"ambu-dispatch/internal/dispatch-service/core/ports"
	"ambu-dispatch/internal/mylogger"
)

const defaultNearbyLimit = 5

type AmbulanceHandler struct {
	dispatch ports.IDispatchService
	log      mylogger.Logger
}

func NewAmbulanceHandler(dispatch ports.IDispatchService, log mylogger.Logger) *AmbulanceHandler {
	return &AmbulanceHandler{
		dispatch: dispatch,
		log:      log,
	}
}

func (ah *AmbulanceHandler) ReportLocation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ambulanceID := r.PathValue("ambulance_id")

		req := dto.LocationReportDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}
		if req.Latitude == nil || req.Longitude == nil {
			JsonError(w, http.StatusBadRequest, fmt.Errorf("latitude and longitude are required"))
			return
		}

		if err := ah.dispatch.ReportAmbulanceLocation(r.Context(), ambulanceID, *req.Latitude, *req.Longitude); err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]interface{}{
			"ambulance_id": ambulanceID,
			"accepted":     true,
		})
	}
}

func (ah *AmbulanceHandler) Nearby() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, err := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
		if err != nil {
			JsonError(w, http.StatusBadRequest, fmt.Errorf("invalid latitude"))
			return
		}
		lon, err := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
		if err != nil {
			JsonError(w, http.StatusBadRequest, fmt.Errorf("invalid longitude"))
			return
		}

		limit := defaultNearbyLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				JsonError(w, http.StatusBadRequest, fmt.Errorf("invalid limit"))
				return
			}
		}

		res, err := ah.dispatch.FindNearbyAmbulances(r.Context(), lat, lon, limit)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]interface{}{
			"ambulances": res,
			"count":      len(res),
		})
	}
}
