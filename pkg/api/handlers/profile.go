package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"livechat/pkg/auth"
	"livechat/pkg/logger"
	"livechat/pkg/media"
	"livechat/pkg/models"
	"livechat/pkg/presence"
	"livechat/pkg/utils"
	"livechat/pkg/validation"
)

// RegisterProfile registers presence and profile image endpoints.
func RegisterProfile(r *mux.Router, d Deps) {
	h := &profileHandlers{track: d.Presence, media: d.Media, maxUpload: d.MaxUploadSize}

	// registered before {user}/status so "online-users" never matches as a username
	r.HandleFunc("/profile/online-users", h.listOnline).Methods(http.MethodGet)
	r.HandleFunc("/profile/upload", h.uploadImage).Methods(http.MethodPost)
	r.HandleFunc("/profile/{user}/status", h.setStatus).Methods(http.MethodPost)
	r.HandleFunc("/profile/{user}/status", h.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/profile/{user}/image", h.getImage).Methods(http.MethodGet)
}

type profileHandlers struct {
	track     *presence.Tracker
	media     media.Store
	maxUpload int64
}

type statusRequest struct {
	Status string `json:"status"`
}

type statusResponse struct {
	Username string        `json:"username"`
	Status   models.Status `json:"status"`
}

func (h *profileHandlers) setStatus(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	var in statusRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	st, err := validation.ValidateStatus(in.Status)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.track.SetStatus(user, st); err != nil {
		writeStoreError(w, err)
		return
	}
	logger.Info("status_set", "user", user, "status", st)
	_ = utils.JSONWrite(w, http.StatusOK, statusResponse{Username: user, Status: st})
}

func (h *profileHandlers) getStatus(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	st, err := h.track.GetStatus(user)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, statusResponse{Username: user, Status: st})
}

func (h *profileHandlers) listOnline(w http.ResponseWriter, r *http.Request) {
	users, err := h.track.ListOnline()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string][]string{"online": users})
}

func (h *profileHandlers) uploadImage(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	user := r.FormValue("username")
	if user == "" {
		user = auth.SubjectFromContext(r.Context())
	}
	if err := validation.ValidateUsername(user); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "read failed")
		return
	}
	if len(data) == 0 {
		utils.JSONError(w, http.StatusBadRequest, "empty file")
		return
	}
	url, err := h.media.Put(user, data)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	logger.Info("profile_image_uploaded", "user", user, "bytes", len(data))
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"url": url})
}

func (h *profileHandlers) getImage(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	data, err := h.media.Get(user)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "no profile image")
			return
		}
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
