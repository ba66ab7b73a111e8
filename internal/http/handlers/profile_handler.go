package handlers

import (
	"errors"
	"net/http"

	"github.com/diagnosis/luxsuv-accounts/internal/domain"
	"github.com/diagnosis/luxsuv-accounts/internal/http/middleware"
	"github.com/diagnosis/luxsuv-accounts/internal/http/response"
	"github.com/go-chi/chi/v5"
)

// multipart overhead allowed on top of the photo itself
const formSlack = 1 << 20

type ProfileHandler struct {
	Accounts Accounts
	Tokens   middleware.AccessParser
}

func NewProfileHandler(accounts Accounts, tokens middleware.AccessParser) *ProfileHandler {
	return &ProfileHandler{Accounts: accounts, Tokens: tokens}
}

func (h *ProfileHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireJWT(h.Tokens))
		r.Get("/me/", h.me)
		r.Put("/change-user/", h.changeUser(true))
		r.Patch("/change-user/", h.changeUser(false))
		r.Put("/change-user-photo/", h.changePhoto)
	})
}

type profileResponse struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	AuthStatus domain.AuthStatus   `json:"auth_status"`
	Account    *domain.AccountInfo `json:"account"`
}

func (h *ProfileHandler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := currentAccountID(w, r)
	if !ok {
		return
	}
	acc, err := h.Accounts.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, h.Accounts.Summary(r.Context(), acc))
}

// changeUser handles PUT (both names required) and PATCH.
func (h *ProfileHandler) changeUser(full bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := currentAccountID(w, r)
		if !ok {
			return
		}
		var upd domain.ProfileUpdate
		if !decodeJSON(w, r, &upd) {
			return
		}

		acc, err := h.Accounts.UpdateProfile(r.Context(), id, upd, full)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, profileResponse{
			Success:    true,
			Message:    "profile updated",
			AuthStatus: acc.AuthStatus,
			Account:    h.Accounts.Summary(r.Context(), acc),
		})
	}
}

func (h *ProfileHandler) changePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := currentAccountID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxPhotoSize+formSlack)
	if err := r.ParseMultipartForm(domain.MaxPhotoSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.WriteError(w, http.StatusRequestEntityTooLarge, "photo must be at most 5MB", response.CodeInvalidInput)
			return
		}
		response.BadRequest(w, "expected multipart form with a photo field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("photo")
	if err != nil {
		response.FromError(w, r, domain.NewValidationError("photo", "photo is required"))
		return
	}
	defer file.Close()

	acc, err := h.Accounts.UpdatePhoto(r.Context(), id, header.Filename, file, header.Size)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, profileResponse{
		Success:    true,
		Message:    "photo updated",
		AuthStatus: acc.AuthStatus,
		Account:    h.Accounts.Summary(r.Context(), acc),
	})
}
