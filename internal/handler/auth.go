package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gitjobs/gitjobs/internal/database"
	"github.com/gitjobs/gitjobs/internal/model"
	"github.com/gitjobs/gitjobs/internal/repository"
	"github.com/gitjobs/gitjobs/internal/session"
)

// sessionLifetime is how long a session started by Login stays valid.
const sessionLifetime = 24 * time.Hour

// UserStore is the user account access the handlers need.
type UserStore interface {
	Create(ctx context.Context, email, name, passwordHash string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	VerifyEmail(ctx context.Context, code uuid.UUID) error
}

// NotificationEnqueuer queues outbound notifications.
type NotificationEnqueuer interface {
	Enqueue(ctx context.Context, n model.NewNotification) error
}

// SessionCreator starts new sessions.
type SessionCreator interface {
	Create(ctx context.Context, rec model.SessionRecord) error
}

// AuthHandler serves signup, email verification, login and team invitations.
type AuthHandler struct {
	users         UserStore
	notifications NotificationEnqueuer
	sessions      SessionCreator
	baseURL       string
}

// NewAuthHandler creates a new auth handler. baseURL is the public base URL
// of the server, used to build links embedded in emails.
func NewAuthHandler(users UserStore, notifications NotificationEnqueuer, sessions SessionCreator, baseURL string) *AuthHandler {
	return &AuthHandler{
		users:         users,
		notifications: notifications,
		sessions:      sessions,
		baseURL:       strings.TrimSuffix(baseURL, "/"),
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Signup handles POST /signup: it creates the account and queues an email
// verification notification.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Name == "" {
		WriteError(w, http.StatusBadRequest, "email and name are required")
		return
	}
	if len(req.Password) < 8 {
		WriteError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("error hashing password", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, req.Name, string(hash))
	if errors.Is(err, repository.ErrEmailTaken) {
		WriteError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		slog.Error("error creating user", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// The account exists either way; a failed enqueue is logged and the
	// user can request a new verification email later.
	link := fmt.Sprintf("%s/verify-email/%s", h.baseURL, user.VerificationCode)
	if err := h.enqueue(r.Context(), model.NotificationEmailVerification, user.ID, map[string]string{"link": link}); err != nil {
		slog.Error("error enqueuing email verification", "error", err, "user_id", user.ID)
	}

	WriteJSON(w, http.StatusCreated, user)
}

// VerifyEmail handles GET /verify-email/{code}: it redeems the verification
// code mailed at signup.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	code, err := uuid.Parse(r.PathValue("code"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid verification code")
		return
	}

	err = h.users.VerifyEmail(r.Context(), code)
	if errors.Is(err, database.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "verification code not found")
		return
	}
	if err != nil {
		slog.Error("error verifying email", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "email verified"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /login: it checks the credentials and starts a session.
// Unknown emails and wrong passwords get the same answer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, database.ErrNotFound) {
		WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		slog.Error("error getting user", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	rec := model.SessionRecord{
		ID:        session.NewID(),
		Data:      map[string]any{"user_id": user.ID.String()},
		ExpiresAt: time.Now().Add(sessionLifetime),
	}
	if err := h.sessions.Create(r.Context(), rec); err != nil {
		slog.Error("error creating session", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    rec.ID,
		Path:     "/",
		Expires:  rec.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	WriteJSON(w, http.StatusOK, user)
}

type teamInvitationRequest struct {
	UserID   uuid.UUID `json:"user_id"`
	TeamName string    `json:"team_name"`
}

// InviteTeamMember handles POST /team/invitations: it queues a team
// invitation notification for the given user.
func (h *AuthHandler) InviteTeamMember(w http.ResponseWriter, r *http.Request) {
	var req teamInvitationRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == uuid.Nil || req.TeamName == "" {
		WriteError(w, http.StatusBadRequest, "user_id and team_name are required")
		return
	}

	data := map[string]string{
		"team_name": req.TeamName,
		"link":      h.baseURL + "/team/invitations",
	}
	if err := h.enqueue(r.Context(), model.NotificationTeamInvitation, req.UserID, data); err != nil {
		slog.Error("error enqueuing team invitation", "error", err, "user_id", req.UserID)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "invitation queued"})
}

func (h *AuthHandler) enqueue(ctx context.Context, kind model.NotificationKind, userID uuid.UUID, data map[string]string) error {
	templateData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return h.notifications.Enqueue(ctx, model.NewNotification{
		Kind:         kind,
		UserID:       userID,
		TemplateData: templateData,
	})
}
