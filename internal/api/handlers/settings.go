package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/campus-reserve/backend/internal/api/middleware"
	"github.com/campus-reserve/backend/internal/dateutil"
	"github.com/campus-reserve/backend/internal/storage"
)

// SettingsResponse represents settings in API responses. The grace window is
// a server policy constant, exposed read-only so clients can explain
// cancellation rules without hardcoding them.
type SettingsResponse struct {
	InstitutionTimezone      string `json:"institution_timezone"`
	DisplayName              string `json:"display_name"`
	ContactEmail             string `json:"contact_email"`
	MondayGraceExtensionDays int    `json:"monday_grace_extension_days"`
}

// GetSettings returns all settings.
func GetSettings(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rows, err := db.QueryContext(ctx, "SELECT key, value FROM settings")
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query settings")
			return
		}
		defer rows.Close()

		settings := make(map[string]string)
		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				continue
			}
			settings[key] = value
		}

		writeJSON(w, http.StatusOK, SettingsResponse{
			InstitutionTimezone:      settings["institution_timezone"],
			DisplayName:              settings["display_name"],
			ContactEmail:             settings["contact_email"],
			MondayGraceExtensionDays: dateutil.MondayGraceExtensionDays,
		})
	}
}

// UpdateSettings updates the mutable settings. The timezone takes effect on
// restart; date arithmetic mid-flight keeps the location it started with.
func UpdateSettings(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req struct {
			InstitutionTimezone string `json:"institution_timezone"`
			DisplayName         string `json:"display_name"`
			ContactEmail        string `json:"contact_email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		settings := map[string]string{
			"institution_timezone": req.InstitutionTimezone,
			"display_name":         req.DisplayName,
			"contact_email":        req.ContactEmail,
		}

		for key, value := range settings {
			if value != "" {
				_, err := db.ExecContext(ctx, `
					INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
					ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP
				`, key, value, value)
				if err != nil {
					middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update settings")
					return
				}
			}
		}

		writeJSON(w, http.StatusOK, req)
	}
}
