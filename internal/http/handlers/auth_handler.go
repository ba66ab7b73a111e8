package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/luxsuv-accounts/internal/domain"
	"github.com/diagnosis/luxsuv-accounts/internal/http/middleware"
	"github.com/diagnosis/luxsuv-accounts/internal/http/response"
	"github.com/diagnosis/luxsuv-accounts/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	Accounts Accounts
	Verify   Verifier
	Tokens   Tokens
	// SendOnSignup issues the first code during signup.
	SendOnSignup bool
}

func NewAuthHandler(accounts Accounts, verify Verifier, tokens Tokens, sendOnSignup bool) *AuthHandler {
	return &AuthHandler{Accounts: accounts, Verify: verify, Tokens: tokens, SendOnSignup: sendOnSignup}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/signup/", h.signup)
	r.Post("/login/", h.login)
	r.Post("/login/refresh/", h.refresh)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireJWT(h.Tokens))
		r.Post("/verify/", h.verify)
		r.Get("/new-verify/", h.newVerify)
		r.Post("/logout/", h.logout)
	})
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Contact string `json:"email_phone_number"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Contact) == "" {
		response.FromError(w, r, domain.NewValidationError("email_phone_number", domain.MsgInvalidContact))
		return
	}

	acc, err := h.Accounts.Signup(r.Context(), in.Contact)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	if h.SendOnSignup {
		// Signup stands even if delivery fails; the client can call /new-verify/.
		if _, err := h.Verify.RequestNewCode(r.Context(), acc); err != nil {
			logger.WarnContext(r.Context(), "Failed to send signup code", "account_id", acc.ID, "error", err)
		}
	}

	pair, err := issueFor(h.Tokens, acc)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, authResponse{
		Success:    true,
		Message:    "account created",
		AuthStatus: acc.AuthStatus,
		Account:    h.Accounts.Summary(r.Context(), acc),
		TokenPair:  pair,
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserInput string `json:"userinput"`
		Password  string `json:"password"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.UserInput) == "" || in.Password == "" {
		response.FromError(w, r, domain.NewValidationError("userinput", "userinput and password are required"))
		return
	}

	acc, err := h.Accounts.Authenticate(r.Context(), in.UserInput, in.Password)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	pair, err := issueFor(h.Tokens, acc)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	logger.InfoContext(r.Context(), "Account logged in", "account_id", acc.ID)
	response.WriteJSON(w, http.StatusOK, authResponse{
		Success:    true,
		AuthStatus: acc.AuthStatus,
		FullName:   acc.FullName(),
		TokenPair:  pair,
	})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Refresh == "" {
		response.BadRequest(w, "refresh is required")
		return
	}

	access, err := h.Tokens.Refresh(r.Context(), in.Refresh)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request) {
	id, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	var in struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	// only accounts still waiting on their first code may verify
	current, err := h.Accounts.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if current.AuthStatus != domain.StatusNew {
		response.FromError(w, r, domain.NewValidationError("code", domain.MsgAlreadyVerified))
		return
	}

	acc, err := h.Verify.CheckCode(r.Context(), id, in.Code)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	pair, err := issueFor(h.Tokens, acc)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, authResponse{
		Success:    true,
		AuthStatus: acc.AuthStatus,
		TokenPair:  pair,
	})
}

func (h *AuthHandler) newVerify(w http.ResponseWriter, r *http.Request) {
	id, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	acc, err := h.Accounts.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	code, err := h.Verify.RequestNewCode(r.Context(), acc)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, struct {
		Success   bool      `json:"success"`
		Message   string    `json:"message"`
		ExpiresAt time.Time `json:"expires_at"`
	}{true, "verification code sent", code.ExpiresAt})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Refresh == "" {
		response.BadRequest(w, "refresh is required")
		return
	}

	if err := h.Tokens.Revoke(r.Context(), in.Refresh); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, messageResponse{Success: true, Message: "logged out"})
}
