package handlers

import (
	"net/http"

	"github.com/campus-reserve/backend/internal/engine"
)

// Availability returns the utilization snapshot for a kind and date.
//
// The response is explicitly a stale read: clients re-query after every
// change event and before every admission attempt instead of treating a
// positive remaining count as a lock.
func Availability(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("kind")
		date := r.URL.Query().Get("date")
		if kind == "" || date == "" {
			writeEngineError(w, &engine.Error{
				Code:    engine.CodeInvalidRequest,
				Message: "kind and date query parameters are required",
			})
			return
		}

		avail, err := e.Availability(r.Context(), kind, date)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, avail)
	}
}
