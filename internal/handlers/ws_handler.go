package handlers

import (
	"net/http"
	"slices"

	"github.com/Dias221467/habit_tracker/internal/realtime"
	jwtutil "github.com/Dias221467/habit_tracker/pkg/jwt"
	"github.com/Dias221467/habit_tracker/pkg/logger"
	"github.com/Dias221467/habit_tracker/pkg/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxInboundMessageSize = 4096

// WSHandler upgrades authenticated clients and joins them to their own room.
// The connection is push-only; inbound frames are read and discarded.
type WSHandler struct {
	Hub       *realtime.Hub
	Users     middleware.UserLookup
	JWTSecret string
	upgrader  websocket.Upgrader
}

// NewWSHandler accepts upgrades from the given origins; an empty list or "*" accepts any origin.
func NewWSHandler(hub *realtime.Hub, users middleware.UserLookup, jwtSecret string, origins []string) *WSHandler {
	h := &WSHandler{Hub: hub, Users: users, JWTSecret: jwtSecret}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(origins) == 0 || slices.Contains(origins, "*") {
				return true
			}
			return slices.Contains(origins, origin)
		},
	}
	return h
}

// GET /ws?token=
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusUnauthorized, "Missing token")
		return
	}
	claims, err := jwtutil.ValidateToken(token, h.JWTSecret)
	if err != nil {
		logger.Log.WithError(err).Warn("WebSocket auth failed")
		respondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if h.Users != nil {
		user, err := h.Users.FindByID(r.Context(), userID)
		if err != nil || user.IsDeleted {
			respondError(w, http.StatusUnauthorized, "User not found")
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		logger.Log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxInboundMessageSize)

	room := userID.Hex()
	client, err := h.Hub.Join(room, conn)
	if err != nil {
		logger.Log.WithError(err).Warn("Rejecting websocket client")
		_ = conn.Close()
		return
	}
	log := logger.Log.WithFields(logrus.Fields{"userID": room, "remote": r.RemoteAddr})
	log.Info("WebSocket connected")

	defer func() {
		h.Hub.Leave(client)
		log.Info("WebSocket disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("WebSocket read error")
			}
			return
		}
	}
}
