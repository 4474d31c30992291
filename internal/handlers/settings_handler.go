package handlers

import (
	"net/http"

	"github.com/Dias221467/habit_tracker/internal/repository"
	"github.com/Dias221467/habit_tracker/internal/services"
	"github.com/Dias221467/habit_tracker/pkg/logger"
)

// SettingsHandler serves the global notification settings and the caller's own preferences.
type SettingsHandler struct {
	Settings    *services.SettingsService
	Preferences *services.PreferenceService
}

func NewSettingsHandler(settings *services.SettingsService, prefs *services.PreferenceService) *SettingsHandler {
	return &SettingsHandler{Settings: settings, Preferences: prefs}
}

// GET /api/notification-settings
func (h *SettingsHandler) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.Get(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "", settings)
}

// PUT /api/notification-settings
func (h *SettingsHandler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var update repository.SettingsUpdate
	if err := decodeBody(r, &update); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	settings, err := h.Settings.Update(r.Context(), req, update)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logger.Log.WithField("adminID", req.ID.Hex()).Info("Notification settings updated")
	respondOK(w, "Notification settings updated", settings)
}

// GET /api/profile/notification-preferences
func (h *SettingsHandler) GetPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	summary, err := h.Preferences.Get(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "", summary)
}

// PUT /api/profile/preferences
func (h *SettingsHandler) UpdatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var patch services.PreferencesPatch
	if err := decodeBody(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	summary, err := h.Preferences.Update(r.Context(), req, patch)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "Preferences updated", summary)
}
