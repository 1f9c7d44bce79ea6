package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"livechat/pkg/utils"
	"livechat/pkg/validation"
)

// RegisterNotifications registers the best-effort notification endpoints.
// Dispatch never blocks and never reports delivery failure to the caller.
func RegisterNotifications(r *mux.Router, d Deps) {
	h := &notificationHandlers{notifier: d.Notifier}
	r.HandleFunc("/notifications/email", h.send("email")).Methods(http.MethodPost)
	r.HandleFunc("/notifications/sms", h.send("sms")).Methods(http.MethodPost)
}

type notificationHandlers struct {
	notifier Notifier
}

type notificationRequest struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

func (h *notificationHandlers) send(channel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := validation.ValidateChannel(channel); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		var in notificationRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if in.Target == "" || in.Message == "" {
			utils.JSONError(w, http.StatusBadRequest, "target and message required")
			return
		}
		h.notifier.Dispatch(in.Target, in.Message, channel)
		_ = utils.JSONWrite(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}
