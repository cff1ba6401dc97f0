package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/campus-reserve/backend/internal/api/middleware"
	"github.com/campus-reserve/backend/internal/engine"
	"github.com/campus-reserve/backend/internal/storage"
	"github.com/campus-reserve/backend/internal/storage/models"
)

// CreateReservation admits a new reservation for the authenticated caller.
//
// Laboratories are exclusive-per-day kinds registered at runtime, so they go
// through the bounded retry wrapper; everything else calls the admission
// controller directly and reports a lost race as-is.
func CreateReservation(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ResourceKind string   `json:"resource_kind"`
			Date         string   `json:"date"`
			Slots        []string `json:"slots"`
			Note         string   `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		admission := engine.AdmissionRequest{
			ResourceKind: req.ResourceKind,
			Date:         req.Date,
			OwnerID:      middleware.UserID(r.Context()),
			Slots:        req.Slots,
			Note:         req.Note,
		}

		var (
			res *models.Reservation
			err error
		)
		if models.IsLaboratory(req.ResourceKind) {
			res, err = e.AdmitWithRetry(r.Context(), admission)
		} else {
			res, err = e.Admit(r.Context(), admission)
		}
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}

// ListReservations returns the reservations for a kind and date.
func ListReservations(reservations *storage.ReservationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("kind")
		date := r.URL.Query().Get("date")
		if kind == "" || date == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "kind and date query parameters are required")
			return
		}

		list, err := reservations.ListForDate(r.Context(), kind, date)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query reservations")
			return
		}
		if list == nil {
			list = []models.Reservation{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// ListMyReservations returns the authenticated caller's reservations.
func ListMyReservations(reservations *storage.ReservationRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := reservations.ListByOwner(r.Context(), middleware.UserID(r.Context()))
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query reservations")
			return
		}
		if list == nil {
			list = []models.Reservation{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// CancelReservation cancels a reservation. Owners may cancel their own rows
// within the temporal rule; administrators may cancel any row.
func CancelReservation(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		err := e.Cancel(ctx, id, middleware.UserID(ctx), middleware.IsAdmin(ctx))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
