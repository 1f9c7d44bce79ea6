package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"livechat/pkg/auth"
	"livechat/pkg/logger"
	"livechat/pkg/utils"
	"livechat/pkg/validation"
)

// RegisterAuth registers the unauthenticated register/login endpoints. They
// proxy to the external credential provider; the gateway leaves them open.
func RegisterAuth(r *mux.Router, d Deps) {
	h := &authHandlers{cred: d.Credentials}
	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
}

type authHandlers struct {
	cred Credentials
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (h *authHandlers) register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.ValidateRegistration(in.Username, in.Password, in.Email); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.cred.Register(r.Context(), in.Username, in.Password, in.Email); err != nil {
		writeAuthError(w, err)
		return
	}
	logger.Info("user_registered", "username", in.Username)
	_ = utils.JSONWrite(w, http.StatusCreated, map[string]string{"status": "registered"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *authHandlers) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Username == "" || in.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "username and password required")
		return
	}
	tokens, err := h.cred.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	logger.Info("user_login", "username", in.Username)
	_ = utils.JSONWrite(w, http.StatusOK, tokens)
}

func writeAuthError(w http.ResponseWriter, err error) {
	var rej *auth.Rejection
	switch {
	case errors.As(err, &rej):
		utils.JSONError(w, rej.Status, rej.Reason)
	case errors.Is(err, auth.ErrUnavailable):
		utils.JSONError(w, http.StatusServiceUnavailable, "auth unavailable")
	case errors.Is(err, auth.ErrUnauthenticated):
		utils.JSONError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		utils.JSONError(w, http.StatusInternalServerError, "auth failed")
	}
}
