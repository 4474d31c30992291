package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/repository"
	"github.com/Dias221467/habit_tracker/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserLookup loads the account behind a token.
type UserLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// RequireActiveUser rejects tokens whose account no longer exists or was soft-deleted.
// The role stored on the account replaces the one in the token.
func RequireActiveUser(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			userID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "User not found")
					return
				}
				logger.Log.WithError(err).WithField("userID", claims.UserID).Error("Failed to load caller")
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if user.IsDeleted {
				writeError(w, http.StatusUnauthorized, "Account is deactivated")
				return
			}

			if user.Role != claims.Role {
				updated := *claims
				updated.Role = user.Role
				r = r.WithContext(WithUser(r.Context(), &updated))
			}
			next.ServeHTTP(w, r)
		})
	}
}
