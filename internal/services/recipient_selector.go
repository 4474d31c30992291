package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dias221467/habit_tracker/internal/models"
	"github.com/Dias221467/habit_tracker/internal/preferences"
	"github.com/Dias221467/habit_tracker/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TargetMode selects how the recipients of a send are resolved.
type TargetMode string

const (
	ModeSingle    TargetMode = "single"
	ModeAllUsers  TargetMode = "all_users"
	ModeAllAdmins TargetMode = "all_admins"
	ModeCategory  TargetMode = "category"
	ModeSystem    TargetMode = "system"
	ModeSelf      TargetMode = "self"
)

// Target is a targeting mode with its parameters. ReceiverID or ReceiverEmail
// is used by ModeSingle, Category by ModeCategory.
type Target struct {
	Mode          TargetMode
	ReceiverID    primitive.ObjectID
	ReceiverEmail string
	Category      string
}

// Recipients is a resolved candidate set partitioned by channel eligibility.
// Receivers holds every candidate, whether or not it is eligible for any channel.
type Recipients struct {
	Receivers []primitive.ObjectID
	Users     []*models.User
	InApp     []*models.User
	Email     []*models.User
}

// RecipientSelector resolves targeting modes against the user and habit directories.
type RecipientSelector struct {
	users  UserDirectory
	habits HabitDirectory
}

func NewRecipientSelector(users UserDirectory, habits HabitDirectory) *RecipientSelector {
	return &RecipientSelector{users: users, habits: habits}
}

// Select resolves target for req. It enforces the role rules of each mode and never
// returns soft-deleted users.
func (s *RecipientSelector) Select(ctx context.Context, req Requester, target Target) (*Recipients, error) {
	var (
		users []*models.User
		err   error
	)

	switch target.Mode {
	case ModeSingle:
		users, err = s.single(ctx, req, target)
	case ModeAllUsers:
		if !req.IsAdmin() {
			return nil, forbidden("only admins can send broadcast notifications")
		}
		users, err = s.users.FindMany(ctx, repository.UserFilter{Role: models.RoleUser, ExcludeDeleted: true})
	case ModeAllAdmins:
		users, err = s.admins(ctx, req)
	case ModeCategory:
		users, err = s.category(ctx, req, target.Category)
	case ModeSystem:
		if !req.IsAdmin() {
			return nil, forbidden("only admins can send system notifications")
		}
		users, err = s.users.FindMany(ctx, repository.UserFilter{Role: models.RoleUser, ExcludeDeleted: true})
		if err == nil && len(users) == 0 {
			return nil, invalid("no receivers available for system notification")
		}
	case ModeSelf:
		users, err = s.self(ctx, req)
	default:
		return nil, invalid("unknown targeting mode", FieldError{Field: "mode", Message: fmt.Sprintf("%q is not a targeting mode", target.Mode)})
	}
	if err != nil {
		return nil, err
	}

	return partition(users), nil
}

func (s *RecipientSelector) single(ctx context.Context, req Requester, target Target) ([]*models.User, error) {
	email := strings.TrimSpace(target.ReceiverEmail)
	if target.ReceiverID.IsZero() && email == "" {
		return nil, invalid("receiver is required", FieldError{Field: "receiverId", Message: "receiverId or receiverEmail is required"})
	}
	if !target.ReceiverID.IsZero() && target.ReceiverID == req.ID {
		return nil, invalid("cannot send notification to yourself")
	}

	var (
		user *models.User
		err  error
	)
	if !target.ReceiverID.IsZero() {
		user, err = s.users.FindByID(ctx, target.ReceiverID)
	} else {
		user, err = s.users.FindByEmail(ctx, email)
	}
	if errors.Is(err, repository.ErrNotFound) || (err == nil && user.IsDeleted) {
		return nil, notFound("receiver not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up receiver: %w", err)
	}

	if user.ID == req.ID {
		return nil, invalid("cannot send notification to yourself")
	}
	if !req.IsAdmin() && user.Role != models.RoleAdmin {
		return nil, forbidden("users can send only to admins")
	}
	return []*models.User{user}, nil
}

func (s *RecipientSelector) admins(ctx context.Context, req Requester) ([]*models.User, error) {
	admins, err := s.users.FindMany(ctx, repository.UserFilter{Role: models.RoleAdmin, ExcludeDeleted: true})
	if err != nil {
		return nil, err
	}
	out := admins[:0]
	for _, a := range admins {
		if a.ID != req.ID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *RecipientSelector) category(ctx context.Context, req Requester, category string) ([]*models.User, error) {
	if !req.IsAdmin() {
		return nil, forbidden("only admins can send category notifications")
	}
	if category == "" {
		return nil, invalid("category is required", FieldError{Field: "category", Message: "is required"})
	}
	if !models.IsValidCategory(category) {
		return nil, invalid("invalid category", FieldError{Field: "category", Message: fmt.Sprintf("%q is not a habit category", category)})
	}

	owners, err := s.habits.OwnersByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return nil, nil
	}
	return s.users.FindMany(ctx, repository.UserFilter{IDs: owners, ExcludeDeleted: true})
}

func (s *RecipientSelector) self(ctx context.Context, req Requester) ([]*models.User, error) {
	user, err := s.users.FindByID(ctx, req.ID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && user.IsDeleted) {
		return nil, notFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return []*models.User{user}, nil
}

func partition(users []*models.User) *Recipients {
	r := &Recipients{
		Receivers: make([]primitive.ObjectID, 0, len(users)),
		Users:     make([]*models.User, 0, len(users)),
	}
	seen := make(map[primitive.ObjectID]struct{}, len(users))
	for _, u := range users {
		if u == nil || u.IsDeleted {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}

		r.Receivers = append(r.Receivers, u.ID)
		r.Users = append(r.Users, u)
		if preferences.ShouldSendInApp(u) {
			r.InApp = append(r.InApp, u)
		}
		if preferences.ShouldSendEmail(u) {
			r.Email = append(r.Email, u)
		}
	}
	return r
}
