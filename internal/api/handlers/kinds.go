package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/campus-reserve/backend/internal/api/middleware"
	"github.com/campus-reserve/backend/internal/catalog"
	"github.com/campus-reserve/backend/internal/engine"
	"github.com/campus-reserve/backend/internal/storage"
	"github.com/campus-reserve/backend/internal/storage/models"
	"github.com/campus-reserve/backend/internal/websocket"
)

// ListKinds returns the reservable resource kinds. Admins may pass ?all=1 to
// include deactivated kinds.
func ListKinds(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var (
			kinds []models.ResourceKind
			err   error
		)
		if r.URL.Query().Get("all") == "1" && middleware.IsAdmin(ctx) {
			kinds, err = cat.ListAll(ctx)
		} else {
			kinds, err = cat.ListActive(ctx)
		}
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query resource kinds")
			return
		}
		if kinds == nil {
			kinds = []models.ResourceKind{}
		}
		writeJSON(w, http.StatusOK, kinds)
	}
}

// CreateKind registers a new resource kind, typically a laboratory.
func CreateKind(repo *storage.KindRepository, cat *catalog.Service, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req struct {
			ID             string `json:"id"`
			DisplayName    string `json:"display_name"`
			CapacityPerDay int    `json:"capacity_per_day"`
			IsSlotted      bool   `json:"is_slotted"`
			RequiresNote   bool   `json:"requires_note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		req.ID = strings.TrimSpace(req.ID)
		if req.ID == "" || req.DisplayName == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "ID and display name are required")
			return
		}
		if req.CapacityPerDay < 0 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Capacity must not be negative")
			return
		}

		if _, err := repo.GetByID(ctx, req.ID); err == nil {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "A resource kind with this ID already exists")
			return
		}

		kind := &models.ResourceKind{
			ID:             req.ID,
			DisplayName:    req.DisplayName,
			CapacityPerDay: req.CapacityPerDay,
			IsSlotted:      req.IsSlotted,
			RequiresNote:   req.RequiresNote,
			IsActive:       true,
		}
		if err := repo.Create(ctx, kind); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create resource kind")
			return
		}

		cat.Invalidate()
		websocket.NewEventBroadcaster(hub).KindChanged(websocket.ActionCreated, kind.ID)

		writeJSON(w, http.StatusCreated, kind)
	}
}

// UpdateKind changes a kind's display name, capacity, or note policy.
// Existing reservations are not re-validated against the new policy.
func UpdateKind(repo *storage.KindRepository, cat *catalog.Service, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		kind, err := repo.GetByID(ctx, id)
		if err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Resource kind not found")
			return
		}

		var req struct {
			DisplayName    *string `json:"display_name"`
			CapacityPerDay *int    `json:"capacity_per_day"`
			RequiresNote   *bool   `json:"requires_note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.DisplayName != nil {
			kind.DisplayName = *req.DisplayName
		}
		if req.CapacityPerDay != nil {
			if *req.CapacityPerDay < 0 {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Capacity must not be negative")
				return
			}
			kind.CapacityPerDay = *req.CapacityPerDay
		}
		if req.RequiresNote != nil {
			kind.RequiresNote = *req.RequiresNote
		}

		if err := repo.Update(ctx, kind); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update resource kind")
			return
		}

		cat.Invalidate()
		websocket.NewEventBroadcaster(hub).KindChanged(websocket.ActionUpdated, kind.ID)

		writeJSON(w, http.StatusOK, kind)
	}
}

// DeactivateKind blocks new admissions for a kind without touching existing
// reservations.
func DeactivateKind(repo *storage.KindRepository, cat *catalog.Service, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		ctx := r.Context()

		if err := repo.SetActive(ctx, id, false); err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Resource kind not found")
			return
		}

		cat.Invalidate()
		websocket.NewEventBroadcaster(hub).KindChanged(websocket.ActionUpdated, id)

		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteKind removes a kind and cascades over its future reservations.
func DeleteKind(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := e.DeleteKindCascade(r.Context(), id); err != nil {
			writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
