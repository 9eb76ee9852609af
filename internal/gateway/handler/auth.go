package handler

import (
	"errors"
	"net/http"
	"time"

	"protoreview/internal/authpw"
	"protoreview/internal/gateway/repository/reviewer"
	"protoreview/internal/session"
)

const sessionTTL = 12 * time.Hour

// AuthHandler signs reviewers up and in, backing tokens with the session
// store.
type AuthHandler struct {
	auth     *authpw.Service
	sessions *session.RedisStore
}

func NewAuthHandler(auth *authpw.Service, sessions *session.RedisStore) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions}
}

type sessionResponse struct {
	Token      string    `json:"token"`
	ReviewerID string    `json:"reviewerId"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, rev reviewer.Reviewer, status int) {
	token := authpw.NewToken()
	expires := time.Now().Add(sessionTTL)
	err := h.sessions.Save(r.Context(), token, session.Data{
		ReviewerID: rev.ID,
		Email:      rev.Email,
		Name:       rev.Name,
		CreatedAt:  time.Now(),
	}, expires)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create session: "+err.Error())
		return
	}
	writeJSON(w, status, sessionResponse{
		Token:      token,
		ReviewerID: rev.ID,
		Email:      rev.Email,
		Name:       rev.Name,
		ExpiresAt:  expires,
	})
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	rev, err := h.auth.SignUp(req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.issue(w, r, rev, http.StatusCreated)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	rev, err := h.auth.SignIn(req.Email, req.Password)
	if errors.Is(err, authpw.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.issue(w, r, rev, http.StatusOK)
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// ChangePassword rotates the signed-in reviewer's password. Existing sessions
// stay valid; only the credential changes.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	data, err := h.sessions.Lookup(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var req struct {
		Current string `json:"current"`
		Next    string `json:"next"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.auth.ChangePassword(data.ReviewerID, req.Current, req.Next); err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "current password is wrong")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "changed"})
}

// Me resolves the bearer token to the signed-in reviewer.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	data, err := h.sessions.Lookup(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, data)
}
