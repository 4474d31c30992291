package handlers

import (
	"context"
	"net/http"

	"github.com/Dias221467/habit_tracker/internal/services"
	"github.com/Dias221467/habit_tracker/pkg/logger"
	"github.com/sirupsen/logrus"
)

// NotificationHandler exposes the notification center over HTTP.
type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// POST /api/notifications/send-to-user
func (h *NotificationHandler) SendToUserHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var in services.SendToUserInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.Service.SendToUser(r.Context(), req, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logSent("single", req, result)
	respondCreated(w, "Notification sent", result)
}

// POST /api/notifications/send-to-all
func (h *NotificationHandler) SendToAllUsersHandler(w http.ResponseWriter, r *http.Request) {
	h.broadcast(w, r, "all_users", h.Service.SendToAllUsers)
}

// POST /api/notifications/send-to-admin
func (h *NotificationHandler) SendToAdminsHandler(w http.ResponseWriter, r *http.Request) {
	h.broadcast(w, r, "all_admins", h.Service.SendToAdmins)
}

// POST /api/notifications/send-system
func (h *NotificationHandler) SendSystemHandler(w http.ResponseWriter, r *http.Request) {
	h.broadcast(w, r, "system", h.Service.SendSystem)
}

// POST /api/notifications/send-to-category
func (h *NotificationHandler) SendToCategoryHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var in services.CategoryInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.Service.SendToCategory(r.Context(), req, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logSent("category", req, result)
	respondCreated(w, "Notification sent", result)
}

// POST /api/notifications/habit-reminder
func (h *NotificationHandler) HabitReminderHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var in services.HabitReminderInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := h.Service.SendHabitReminder(r.Context(), req, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logSent("self", req, result)
	respondCreated(w, "Habit reminder sent", result)
}

// GET /api/notifications
func (h *NotificationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	notifications, err := h.Service.List(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "", notifications)
}

// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	count, err := h.Service.UnreadCount(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "", map[string]int64{"count": count})
}

// GET /api/notifications/{id}
func (h *NotificationHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	notif, err := h.Service.Get(r.Context(), req, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "", notif)
}

// PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	notif, err := h.Service.MarkRead(r.Context(), req, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "Notification marked as read", notif)
}

// PUT /api/notifications/{id}/unread
func (h *NotificationHandler) MarkUnreadHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	notif, err := h.Service.MarkUnread(r.Context(), req, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "Notification marked as unread", notif)
}

// PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllReadHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	modified, err := h.Service.MarkAllRead(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "All notifications marked as read", map[string]int64{"modified": modified})
}

// DELETE /api/notifications/{id}
func (h *NotificationHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	if err := h.Service.Delete(r.Context(), req, id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, "Notification deleted", nil)
}

type broadcastFunc func(ctx context.Context, req services.Requester, in services.BroadcastInput) (*services.SendResult, error)

func (h *NotificationHandler) broadcast(w http.ResponseWriter, r *http.Request, mode string, send broadcastFunc) {
	req, ok := requesterFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var in services.BroadcastInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := send(r.Context(), req, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logSent(mode, req, result)
	respondCreated(w, "Notification sent", result)
}

func logSent(mode string, req services.Requester, result *services.SendResult) {
	logger.Log.WithFields(logrus.Fields{
		"mode":     mode,
		"senderID": req.ID.Hex(),
		"inApp":    result.InAppCount,
		"email":    result.EmailCount,
	}).Info("Notification sent")
}
