package handle

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ambu-dispatch/internal/dispatch-service/core/domain/dto"
	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	"ambu-dispatch/internal/dispatch-service/core/ports"
	"ambu-dispatch/internal/mylogger"
)

type BookingHandler struct {
	dispatch ports.IDispatchService
	states   ports.IBookingStateMachine
	log      mylogger.Logger
}

func NewBookingHandler(dispatch ports.IDispatchService, states ports.IBookingStateMachine, log mylogger.Logger) *BookingHandler {
	return &BookingHandler{
		dispatch: dispatch,
		states:   states,
		log:      log,
	}
}

func (bh *BookingHandler) CreateBooking() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.BookingRequestDto{}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		// requester comes from the verified token, not the body
		if userID := r.Header.Get("X-UserId"); userID != "" {
			req.RequesterID = &userID
		}

		res, err := bh.dispatch.CreateBooking(r.Context(), req)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusCreated, res)
	}
}

func (bh *BookingHandler) GetBooking() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID := r.PathValue("booking_id")

		res, err := bh.dispatch.GetBooking(r.Context(), bookingID)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, res)
	}
}

func (bh *BookingHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID := r.PathValue("booking_id")

		req := dto.TransitionRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}
		if req.Status == nil {
			JsonError(w, http.StatusBadRequest, fmt.Errorf("status is required"))
			return
		}

		b, err := bh.states.Transition(r.Context(), bookingID, model.BookingStatus(*req.Status), req)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]interface{}{
			"booking_id": b.ID,
			"status":     string(b.Status),
			"updated_at": b.UpdatedAt,
		})
	}
}

func (bh *BookingHandler) CancelBooking() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID := r.PathValue("booking_id")

		req := dto.CancelRequestDto{}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				JsonError(w, http.StatusBadRequest, err)
				return
			}
		}

		b, err := bh.states.Transition(r.Context(), bookingID, model.BookingCancelled, dto.TransitionRequestDto{
			Message: req.Reason,
		})
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]interface{}{
			"booking_id": b.ID,
			"status":     string(b.Status),
			"updated_at": b.UpdatedAt,
		})
	}
}

func (bh *BookingHandler) AssignAmbulance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID := r.PathValue("booking_id")

		req := dto.AssignRequestDto{}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				JsonError(w, http.StatusBadRequest, err)
				return
			}
		}

		ambulanceID := ""
		if req.AmbulanceID != nil {
			ambulanceID = *req.AmbulanceID
		}

		res, err := bh.dispatch.AssignAmbulance(r.Context(), bookingID, ambulanceID)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, res)
	}
}
