package api

import (
	"github.com/gorilla/mux"

	"livechat/pkg/api/handlers"
)

// Deps carries the collaborators the HTTP surface is built on. Ops endpoints
// (healthz/readyz/metrics/docs) are mounted by the app, not here.
type Deps = handlers.Deps

// NewRouter builds the /v1 router with all chat, profile, auth and
// notification endpoints registered.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterAuth(v1, d)
	handlers.RegisterChat(v1, d)
	handlers.RegisterProfile(v1, d)
	handlers.RegisterNotifications(v1, d)
	return r
}
