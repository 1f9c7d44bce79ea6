package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"livechat/pkg/auth"
	"livechat/pkg/logger"
	"livechat/pkg/models"
	"livechat/pkg/reactions"
	"livechat/pkg/store"
	"livechat/pkg/telemetry"
	"livechat/pkg/utils"
	"livechat/pkg/validation"
)

// RegisterChat registers the message ledger and reaction endpoints.
func RegisterChat(r *mux.Router, d Deps) {
	h := &chatHandlers{reacts: d.Reactions, notifier: d.Notifier}

	r.HandleFunc("/chat", h.postMessage).Methods(http.MethodPost)
	r.HandleFunc("/chat", h.listSince).Methods(http.MethodGet)
	r.HandleFunc("/chat/all", h.listAll).Methods(http.MethodGet)

	r.HandleFunc("/chat/{id}/reactions", h.getReactions).Methods(http.MethodGet)
	r.HandleFunc("/chat/{id}/reactions", h.addReaction).Methods(http.MethodPost)
	r.HandleFunc("/chat/{id}/reactions", h.removeReaction).Methods(http.MethodDelete)
}

type chatHandlers struct {
	reacts   *reactions.Aggregator
	notifier Notifier
}

type postMessageRequest struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

func (h *chatHandlers) postMessage(w http.ResponseWriter, r *http.Request) {
	var in postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Author == "" {
		in.Author = auth.SubjectFromContext(r.Context())
	}
	if err := validation.ValidateMessageInput(in.Author, in.Body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := store.AppendMessage(in.Author, in.Body)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			utils.JSONError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "append failed")
		return
	}
	telemetry.MessagesAppended.Inc()
	logger.Info("message_created", "id", m.ID, "author", m.Author)

	// Handed off after the write commits; never blocks the response.
	if h.notifier != nil {
		h.notifier.Dispatch(m.Author, preview(m.Body), "email")
	}
	_ = utils.JSONWrite(w, http.StatusCreated, m)
}

// preview truncates the body for the notification payload without cutting a
// UTF-8 rune in half.
func preview(body string) string {
	const max = 140
	if len(body) <= max {
		return body
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}

type messagesResponse struct {
	Messages []models.Message `json:"messages"`
}

func (h *chatHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	msgs, err := store.ListMessages()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	logger.Debug("messages_list", "count", len(msgs))
	_ = utils.JSONWrite(w, http.StatusOK, messagesResponse{Messages: msgs})
}

func (h *chatHandlers) listSince(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	msgs, err := store.ListMessagesSince(after)
	if err != nil {
		if errors.Is(err, store.ErrBadCursor) {
			utils.JSONError(w, http.StatusBadRequest, "invalid after cursor")
			return
		}
		writeStoreError(w, err)
		return
	}
	logger.Debug("messages_since", "after", after, "count", len(msgs))
	_ = utils.JSONWrite(w, http.StatusOK, messagesResponse{Messages: msgs})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		utils.JSONError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	utils.JSONError(w, http.StatusInternalServerError, err.Error())
}

type reactionRequest struct {
	Username string `json:"username"`
	Reaction string `json:"reaction"`
}

func (h *chatHandlers) addReaction(w http.ResponseWriter, r *http.Request) {
	h.mutateReaction(w, r, "add")
}

func (h *chatHandlers) removeReaction(w http.ResponseWriter, r *http.Request) {
	h.mutateReaction(w, r, "remove")
}

func (h *chatHandlers) mutateReaction(w http.ResponseWriter, r *http.Request, op string) {
	id := mux.Vars(r)["id"]
	var in reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Username == "" {
		in.Username = auth.SubjectFromContext(r.Context())
	}
	if err := validation.ValidateReactionInput(in.Username, in.Reaction); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var err error
	if op == "add" {
		err = h.reacts.Add(id, in.Username, in.Reaction)
	} else {
		err = h.reacts.Remove(id, in.Username, in.Reaction)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	telemetry.ReactionUpdates.WithLabelValues(op).Inc()
	logger.Info("reaction_"+op, "id", id, "user", in.Username, "kind", in.Reaction)

	sum, err := h.reacts.Summarize(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, sum)
}

func (h *chatHandlers) getReactions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sum, err := h.reacts.Summarize(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, sum)
}
