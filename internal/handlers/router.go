package handlers

import (
	"net/http"

	"github.com/Dias221467/habit_tracker/internal/metrics"
	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// RouterConfig collects everything the HTTP surface needs.
type RouterConfig struct {
	JWTSecret     string
	CORSOrigins   []string
	Users         middleware.UserLookup
	Notifications *NotificationHandler
	Settings      *SettingsHandler
	WS            *WSHandler
	Health        *HealthHandler
}

// NewRouter registers every route and wraps the router with CORS.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	router.HandleFunc("/api/health", cfg.Health.HealthCheck).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	router.HandleFunc("/ws", cfg.WS.ServeWS).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	api.Use(middleware.RequireActiveUser(cfg.Users))
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	n := cfg.Notifications
	api.HandleFunc("/notifications/send-to-user", n.SendToUserHandler).Methods("POST")
	api.Handle("/notifications/send-to-all", adminOnly(http.HandlerFunc(n.SendToAllUsersHandler))).Methods("POST")
	api.HandleFunc("/notifications/send-to-admin", n.SendToAdminsHandler).Methods("POST")
	api.Handle("/notifications/send-to-category", adminOnly(http.HandlerFunc(n.SendToCategoryHandler))).Methods("POST")
	api.Handle("/notifications/send-system", adminOnly(http.HandlerFunc(n.SendSystemHandler))).Methods("POST")
	api.HandleFunc("/notifications/habit-reminder", n.HabitReminderHandler).Methods("POST")

	api.HandleFunc("/notifications", n.ListHandler).Methods("GET")
	api.HandleFunc("/notifications/unread-count", n.UnreadCountHandler).Methods("GET")
	api.HandleFunc("/notifications/read-all", n.MarkAllReadHandler).Methods("PUT")
	api.HandleFunc("/notifications/{id}/read", n.MarkReadHandler).Methods("PUT")
	api.HandleFunc("/notifications/{id}/unread", n.MarkUnreadHandler).Methods("PUT")
	api.HandleFunc("/notifications/{id}", n.GetHandler).Methods("GET")
	api.HandleFunc("/notifications/{id}", n.DeleteHandler).Methods("DELETE")

	s := cfg.Settings
	api.HandleFunc("/notification-settings", s.GetSettingsHandler).Methods("GET")
	api.Handle("/notification-settings", adminOnly(http.HandlerFunc(s.UpdateSettingsHandler))).Methods("PUT")
	api.HandleFunc("/profile/notification-preferences", s.GetPreferencesHandler).Methods("GET")
	api.HandleFunc("/profile/preferences", s.UpdatePreferencesHandler).Methods("PUT")

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
	return c.Handler(router)
}
