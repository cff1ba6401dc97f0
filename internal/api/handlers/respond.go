package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/campus-reserve/backend/internal/api/middleware"
	"github.com/campus-reserve/backend/internal/engine"
)

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// engineErrorStatus maps each recoverable engine outcome to an HTTP status.
// Every rejection names the specific policy violated; only storage and
// transport faults collapse into a generic 500.
var engineErrorStatus = map[engine.Code]int{
	engine.CodeResourceInactive:          http.StatusConflict,
	engine.CodeDuplicateOwnerReservation: http.StatusConflict,
	engine.CodeSlotConflict:              http.StatusConflict,
	engine.CodeMissingObservation:        http.StatusUnprocessableEntity,
	engine.CodeCapacityExceeded:          http.StatusConflict,
	engine.CodeRaceLost:                  http.StatusConflict,
	engine.CodeUnauthorized:              http.StatusForbidden,
	engine.CodeTooLateToCancel:           http.StatusConflict,
	engine.CodeNotFound:                  http.StatusNotFound,
	engine.CodeInvalidRequest:            http.StatusBadRequest,
}

// writeEngineError renders an engine outcome. Unrecognized errors are
// treated as storage/transport faults: logged, never detailed to the client.
func writeEngineError(w http.ResponseWriter, err error) {
	engineErr, ok := engine.AsError(err)
	if !ok {
		log.Printf("Engine failure: %v", err)
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "An unexpected error occurred")
		return
	}

	status, ok := engineErrorStatus[engineErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	if len(engineErr.ConflictingSlots) > 0 || engineErr.ConflictingOwner != "" {
		middleware.WriteErrorWithDetails(w, status, string(engineErr.Code), engineErr.Message, map[string]any{
			"conflicting_slots": engineErr.ConflictingSlots,
			"conflicting_owner": engineErr.ConflictingOwner,
		})
		return
	}
	middleware.WriteError(w, status, string(engineErr.Code), engineErr.Message)
}
