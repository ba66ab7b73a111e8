package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/diagnosis/luxsuv-accounts/internal/domain"
	"github.com/diagnosis/luxsuv-accounts/internal/http/middleware"
	"github.com/diagnosis/luxsuv-accounts/internal/http/response"
	"github.com/diagnosis/luxsuv-accounts/internal/platform/auth"
)

const maxBodyBytes = 1 << 20

type Accounts interface {
	Signup(ctx context.Context, contact string) (*domain.Account, error)
	Authenticate(ctx context.Context, userinput, password string) (*domain.Account, error)
	Get(ctx context.Context, id int64) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id int64, upd domain.ProfileUpdate, full bool) (*domain.Account, error)
	UpdatePhoto(ctx context.Context, id int64, filename string, r io.Reader, size int64) (*domain.Account, error)
	Summary(ctx context.Context, acc *domain.Account) *domain.AccountInfo
}

type Verifier interface {
	RequestNewCode(ctx context.Context, acc *domain.Account) (*domain.VerificationCode, error)
	CheckCode(ctx context.Context, accountID int64, code string) (*domain.Account, error)
}

type Tokens interface {
	middleware.AccessParser
	Issue(sub int64, username, role string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Revoke(ctx context.Context, refreshToken string) error
}

type authResponse struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	AuthStatus domain.AuthStatus   `json:"auth_status"`
	FullName   string              `json:"full_name,omitempty"`
	Account    *domain.AccountInfo `json:"account,omitempty"`
	auth.TokenPair
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// decodeJSON reads a bounded JSON body into dst and writes the 400 itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large", response.CodeInvalidInput)
			return false
		}
		response.BadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func currentAccountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims := middleware.Claims(r)
	if claims == nil || claims.Sub == 0 {
		response.Unauthorized(w, "authentication required")
		return 0, false
	}
	return claims.Sub, true
}

func issueFor(tokens Tokens, acc *domain.Account) (auth.TokenPair, error) {
	return tokens.Issue(acc.ID, acc.Username, string(acc.Role))
}
