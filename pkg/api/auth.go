package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/dittorepo/internal/logger"
	"github.com/marmos91/dittorepo/pkg/identity"
)

const (
	MsgRegistered    = "User registered successfully."
	MsgLoggedIn      = "User logged in successfully."
	MsgRegisterError = "Error registering user."
	MsgLoginError    = "Error occurred."
)

// maxCredentialsBytes bounds the JSON body of the auth endpoints.
const maxCredentialsBytes = 64 << 10

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCredentialsBytes)).Decode(&req)
	return req, err
}

// register handles POST /auth/register.
func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(w, r)
	if err != nil {
		logger.Debug("Register: malformed body: %v", err)
		writeEnvelope(w, http.StatusBadRequest, failure(MsgRegisterError))
		return
	}

	account, err := h.deps.Identity.CreateAccount(r.Context(), req.Email, req.Password)
	if err != nil {
		logAuthFailure("Register", req.Email, err)
		writeEnvelope(w, http.StatusBadRequest, failure(MsgRegisterError))
		return
	}

	logger.Info("Registered account %s", account.ID)
	writeEnvelope(w, http.StatusCreated, envelope{Success: true, Message: MsgRegistered, Data: account})
}

// login handles POST /auth/login.
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(w, r)
	if err != nil {
		logger.Debug("Login: malformed body: %v", err)
		writeEnvelope(w, http.StatusBadRequest, failure(MsgLoginError))
		return
	}

	account, err := h.deps.Identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		logAuthFailure("Login", req.Email, err)
		writeEnvelope(w, http.StatusBadRequest, failure(MsgLoginError))
		return
	}

	writeEnvelope(w, http.StatusOK, envelope{Success: true, Message: MsgLoggedIn, Data: account})
}

// logAuthFailure keeps expected rejections at debug level.
func logAuthFailure(op, email string, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrAccountExists),
		errors.Is(err, identity.ErrInvalidInput):
		logger.Debug("%s of %q rejected: %v", op, email, err)
	default:
		logger.Error("%s of %q failed: %v", op, email, err)
	}
}
