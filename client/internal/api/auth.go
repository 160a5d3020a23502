package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	sdkerrors "github.com/meetupz/meetupz/client/internal/errors"
	"github.com/meetupz/meetupz/client/internal/types"
)

// Login exchanges credentials for a bearer token and the user profile.
func Login(ctx context.Context, hc HTTPClient, baseURL string, req types.LoginRequest) (*types.LoginResponse, error) {
	const op = "login"
	if strings.TrimSpace(req.Email) == "" {
		return nil, sdkerrors.NewValidationError(op, "email", "email is required")
	}
	if req.Password == "" {
		return nil, sdkerrors.NewValidationError(op, "password", "password is required")
	}
	var out types.LoginResponse
	if err := do(ctx, hc, op, http.MethodPost, join(baseURL, "auth", "login"), req, &out); err != nil {
		var e *sdkerrors.Error
		if errors.As(err, &e) && e.Message == "" && (e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnauthorized) {
			e.Kind = sdkerrors.BackendRejection
			e.Message = "invalid credentials"
		}
		return nil, err
	}
	if strings.TrimSpace(out.Token) == "" {
		return nil, sdkerrors.NewDecodeError(op, errMissingToken)
	}
	return &out, nil
}

// Signup creates an account. It does not log the user in.
func Signup(ctx context.Context, hc HTTPClient, baseURL string, req types.SignupRequest) (*types.SignupResponse, error) {
	const op = "signup"
	switch {
	case strings.TrimSpace(req.Name) == "":
		return nil, sdkerrors.NewValidationError(op, "name", "name is required")
	case strings.TrimSpace(req.Email) == "":
		return nil, sdkerrors.NewValidationError(op, "email", "email is required")
	case req.Password == "":
		return nil, sdkerrors.NewValidationError(op, "password", "password is required")
	}
	var out types.SignupResponse
	if err := do(ctx, hc, op, http.MethodPost, join(baseURL, "auth", "signup"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type apiError string

func (e apiError) Error() string { return string(e) }

const errMissingToken = apiError("response carries no token")
