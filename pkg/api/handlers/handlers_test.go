package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"livechat/pkg/api"
	"livechat/pkg/auth"
	"livechat/pkg/media"
	"livechat/pkg/models"
	"livechat/pkg/presence"
	"livechat/pkg/reactions"
	"livechat/pkg/state"
	"livechat/pkg/store"
)

type fakeCredentials struct {
	registerErr error
	loginErr    error
}

func (f *fakeCredentials) Register(ctx context.Context, username, password, email string) error {
	return f.registerErr
}

func (f *fakeCredentials) Login(ctx context.Context, username, password string) (models.AuthTokens, error) {
	if f.loginErr != nil {
		return models.AuthTokens{}, f.loginErr
	}
	return models.AuthTokens{AccessToken: "at", IDToken: "it", RefreshToken: "rt", ExpiresIn: 3600}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Dispatch(target, message, channel string) {
	n.mu.Lock()
	n.events = append(n.events, fmt.Sprintf("%s|%s|%s", channel, target, message))
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type testEnv struct {
	srv      *httptest.Server
	notifier *recordingNotifier
	cred     *fakeCredentials
}

// setupEnv builds the API surface on a fresh store with in-memory state and
// an identity-stamping middleware standing in for the gateway.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	_ = store.Close()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	notifier := &recordingNotifier{}
	cred := &fakeCredentials{}
	router := api.NewRouter(api.Deps{
		Reactions:     reactions.New(state.NewMemory()),
		Presence:      presence.New(state.NewMemory()),
		Credentials:   cred,
		Notifier:      notifier,
		Media:         media.NewPebbleStore("/v1/profile"),
		MaxUploadSize: 1 << 20,
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := auth.AuthContext{Subject: "alice", Roles: auth.MapGroups("", []string{"users"})}
		router.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), ac)))
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, notifier: notifier, cred: cred}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response, v interface{}) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestPostAndPollMessages(t *testing.T) {
	env := setupEnv(t)

	// post three messages
	var posted []models.Message
	for _, body := range []string{"first", "second", "third"} {
		res := postJSON(t, env.srv.URL+"/v1/chat", map[string]string{"body": body})
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", res.StatusCode)
		}
		var m models.Message
		decodeBody(t, res, &m)
		if m.Author != "alice" {
			t.Fatalf("author should default to the authenticated subject, got %q", m.Author)
		}
		posted = append(posted, m)
	}

	// full fetch
	res, err := http.Get(env.srv.URL + "/v1/chat/all")
	if err != nil {
		t.Fatalf("GET all: %v", err)
	}
	var all struct {
		Messages []models.Message `json:"messages"`
	}
	decodeBody(t, res, &all)
	if len(all.Messages) != 3 || all.Messages[0].Body != "first" {
		t.Fatalf("unexpected ledger: %+v", all.Messages)
	}

	// incremental fetch strictly after the first message
	res, err = http.Get(env.srv.URL + "/v1/chat?after=" + posted[0].Key)
	if err != nil {
		t.Fatalf("GET since: %v", err)
	}
	var since struct {
		Messages []models.Message `json:"messages"`
	}
	decodeBody(t, res, &since)
	if len(since.Messages) != 2 || since.Messages[0].ID != posted[1].ID {
		t.Fatalf("expected [second third], got %+v", since.Messages)
	}

	// cursor at the head yields an empty batch
	res, _ = http.Get(env.srv.URL + "/v1/chat?after=" + posted[2].Key)
	var empty struct {
		Messages []models.Message `json:"messages"`
	}
	decodeBody(t, res, &empty)
	if len(empty.Messages) != 0 {
		t.Fatalf("expected empty batch at head, got %+v", empty.Messages)
	}

	// each post handed off a notification
	if env.notifier.count() != 3 {
		t.Fatalf("expected 3 notification handoffs, got %d", env.notifier.count())
	}
}

func TestPostMessageValidation(t *testing.T) {
	env := setupEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/chat", map[string]string{"body": "   "})
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank body, got %d", res.StatusCode)
	}
}

func TestMalformedCursorIs400(t *testing.T) {
	env := setupEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/chat", map[string]string{"body": "hello"})
	res.Body.Close()

	// neither a dash-less non-numeric cursor nor key-shaped garbage may be
	// mistaken for a storage fault or a valid position
	for _, cursor := range []string{"abc", "garbage-cursor-zz"} {
		res, err := http.Get(env.srv.URL + "/v1/chat?after=" + cursor)
		if err != nil {
			t.Fatalf("GET since: %v", err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("cursor %q: expected 400, got %d", cursor, res.StatusCode)
		}
	}
}

func TestReactionLifecycle(t *testing.T) {
	env := setupEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/chat", map[string]string{"body": "react to me"})
	var m models.Message
	decodeBody(t, res, &m)

	// add a reaction as user y
	res = postJSON(t, env.srv.URL+"/v1/chat/"+m.ID+"/reactions",
		map[string]string{"username": "y", "reaction": "🔥"})
	var sum map[string]models.ReactionSummary
	decodeBody(t, res, &sum)
	if sum["🔥"].Count != 1 || sum["🔥"].Users[0] != "y" {
		t.Fatalf("expected 🔥 {1 [y]}, got %+v", sum)
	}

	// duplicate add is idempotent
	res = postJSON(t, env.srv.URL+"/v1/chat/"+m.ID+"/reactions",
		map[string]string{"username": "y", "reaction": "🔥"})
	decodeBody(t, res, &sum)
	if sum["🔥"].Count != 1 {
		t.Fatalf("duplicate add changed count: %+v", sum)
	}

	// read back
	getRes, _ := http.Get(env.srv.URL + "/v1/chat/" + m.ID + "/reactions")
	decodeBody(t, getRes, &sum)
	if sum["🔥"].Count != 1 {
		t.Fatalf("get reactions: %+v", sum)
	}

	// remove
	req, _ := http.NewRequest(http.MethodDelete, env.srv.URL+"/v1/chat/"+m.ID+"/reactions",
		bytes.NewReader([]byte(`{"username":"y","reaction":"🔥"}`)))
	req.Header.Set("Content-Type", "application/json")
	delRes, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	sum = nil // json.Decode merges into a non-nil map; reset so stale entries don't survive
	decodeBody(t, delRes, &sum)
	if len(sum) != 0 {
		t.Fatalf("expected empty summary after remove, got %+v", sum)
	}

	// unknown message yields an empty map, not 404
	unkRes, _ := http.Get(env.srv.URL + "/v1/chat/msg-does-not-exist/reactions")
	sum = nil
	decodeBody(t, unkRes, &sum)
	if len(sum) != 0 {
		t.Fatalf("expected empty map for unknown message, got %+v", sum)
	}
}

func TestPresenceEndpoints(t *testing.T) {
	env := setupEnv(t)

	// unknown user defaults to offline
	res, _ := http.Get(env.srv.URL + "/v1/profile/ghost/status")
	var st struct {
		Username string `json:"username"`
		Status   string `json:"status"`
	}
	decodeBody(t, res, &st)
	if st.Status != "offline" {
		t.Fatalf("expected offline default, got %q", st.Status)
	}

	// set online
	res = postJSON(t, env.srv.URL+"/v1/profile/alice/status", map[string]string{"status": "online"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set status: %d", res.StatusCode)
	}
	res.Body.Close()

	// invalid status rejected
	res = postJSON(t, env.srv.URL+"/v1/profile/alice/status", map[string]string{"status": "away"})
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", res.StatusCode)
	}

	// online users list
	res, _ = http.Get(env.srv.URL + "/v1/profile/online-users")
	var online struct {
		Online []string `json:"online"`
	}
	decodeBody(t, res, &online)
	if len(online.Online) != 1 || online.Online[0] != "alice" {
		t.Fatalf("expected [alice], got %v", online.Online)
	}
}

func TestProfileImageUploadAndFetch(t *testing.T) {
	env := setupEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "avatar.png")
	_, _ = fw.Write([]byte("\x89PNG fake image bytes"))
	mw.Close()

	res, err := http.Post(env.srv.URL+"/v1/profile/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var up struct {
		URL string `json:"url"`
	}
	decodeBody(t, res, &up)
	if up.URL != "/v1/profile/alice/image" {
		t.Fatalf("unexpected url %q", up.URL)
	}

	imgRes, err := http.Get(env.srv.URL + up.URL)
	if err != nil {
		t.Fatalf("fetch image: %v", err)
	}
	defer imgRes.Body.Close()
	data, _ := io.ReadAll(imgRes.Body)
	if !bytes.Contains(data, []byte("fake image bytes")) {
		t.Fatalf("image round trip failed")
	}

	// missing image is 404
	missRes, _ := http.Get(env.srv.URL + "/v1/profile/nobody/image")
	missRes.Body.Close()
	if missRes.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing image, got %d", missRes.StatusCode)
	}
}

func TestAuthEndpoints(t *testing.T) {
	env := setupEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/auth/register",
		map[string]string{"username": "alice", "password": "secret1234", "email": "a@example.com"})
	res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", res.StatusCode)
	}

	res = postJSON(t, env.srv.URL+"/v1/auth/login",
		map[string]string{"username": "alice", "password": "secret1234"})
	var tok models.AuthTokens
	decodeBody(t, res, &tok)
	if tok.AccessToken != "at" || tok.ExpiresIn != 3600 {
		t.Fatalf("unexpected tokens: %+v", tok)
	}

	// provider outage surfaces as 503
	env.cred.loginErr = auth.ErrUnavailable
	res = postJSON(t, env.srv.URL+"/v1/auth/login",
		map[string]string{"username": "alice", "password": "secret1234"})
	res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on outage, got %d", res.StatusCode)
	}

	// bad credentials surface as 401
	env.cred.loginErr = auth.ErrUnauthenticated
	res = postJSON(t, env.srv.URL+"/v1/auth/login",
		map[string]string{"username": "alice", "password": "nope12345"})
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad credentials, got %d", res.StatusCode)
	}

	// provider rejection passes its status through
	env.cred.registerErr = &auth.Rejection{Status: http.StatusConflict, Reason: "username exists"}
	res = postJSON(t, env.srv.URL+"/v1/auth/register",
		map[string]string{"username": "taken", "password": "secret1234", "email": "t@example.com"})
	res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 pass-through, got %d", res.StatusCode)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	env := setupEnv(t)

	res := postJSON(t, env.srv.URL+"/v1/notifications/email",
		map[string]string{"target": "a@example.com", "message": "hi"})
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.StatusCode)
	}

	res = postJSON(t, env.srv.URL+"/v1/notifications/sms",
		map[string]string{"target": "+1555", "message": "hi"})
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.StatusCode)
	}

	if env.notifier.count() != 2 {
		t.Fatalf("expected 2 dispatches, got %d", env.notifier.count())
	}

	// missing fields rejected before handoff
	res = postJSON(t, env.srv.URL+"/v1/notifications/email", map[string]string{"target": ""})
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if env.notifier.count() != 2 {
		t.Fatalf("invalid request must not dispatch")
	}
}

func TestStorageOutageIs503(t *testing.T) {
	env := setupEnv(t)
	_ = store.Close()

	res := postJSON(t, env.srv.URL+"/v1/chat", map[string]string{"body": "hello"})
	res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when storage is down, got %d", res.StatusCode)
	}

	getRes, _ := http.Get(env.srv.URL + "/v1/chat/all")
	getRes.Body.Close()
	if getRes.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on reads too, got %d", getRes.StatusCode)
	}
}
