package flashcards_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/memora/memora-load/internal/auth"
	"github.com/memora/memora-load/internal/flashcards"
	"github.com/memora/memora-load/internal/httpclient"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   string
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) handler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		data, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.requests = append(r.requests, recordedRequest{
			Method: req.Method,
			Path:   req.URL.EscapedPath(),
			Auth:   req.Header.Get("Authorization"),
			Body:   string(data),
		})
		r.mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (r *recorder) last(t *testing.T) recordedRequest {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	return r.requests[len(r.requests)-1]
}

func newClient(t *testing.T, h http.Handler) *flashcards.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	builder, err := httpclient.NewRequestBuilder(srv.URL, "/api/v1", nil)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	return flashcards.New(httpclient.NewClient(5*time.Second), builder)
}

func TestClientRoutes(t *testing.T) {
	rec := &recorder{}
	base := newClient(t, rec.handler(http.StatusOK, `{"id":"x"}`))
	client := base.WithAuth(auth.NewStaticTokenProvider("tok"))
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func() flashcards.Response
		wantMethod string
		wantPath   string
		wantRoute  string
	}{
		{"health", func() flashcards.Response { return client.Health(ctx) }, http.MethodGet, "/api/v1/status/", flashcards.RouteStatus},
		{"create user", func() flashcards.Response { return client.CreateUser(ctx, flashcards.UserPayload{Name: "u"}) }, http.MethodPost, "/api/v1/users/", flashcards.RouteUsers},
		{"get user", func() flashcards.Response { return client.GetUser(ctx) }, http.MethodGet, "/api/v1/users/", flashcards.RouteUsers},
		{"list decks", func() flashcards.Response { return client.ListUserDecks(ctx) }, http.MethodGet, "/api/v1/users/decks/", flashcards.RouteUserDecks},
		{"create deck", func() flashcards.Response { return client.CreateDeck(ctx, flashcards.DeckPayload{Name: "d"}) }, http.MethodPost, "/api/v1/decks/", flashcards.RouteDecks},
		{"get deck", func() flashcards.Response { return client.GetDeck(ctx, "d1") }, http.MethodGet, "/api/v1/decks/d1/", flashcards.RouteDeck},
		{"create card", func() flashcards.Response {
			return client.CreateCard(ctx, "d1", flashcards.CardPayload{Type: flashcards.CardFrontBack})
		}, http.MethodPost, "/api/v1/decks/d1/cards/", flashcards.RouteCards},
		{"get card", func() flashcards.Response { return client.GetCard(ctx, "d1", "c1") }, http.MethodGet, "/api/v1/decks/d1/cards/c1/", flashcards.RouteCard},
		{"update card", func() flashcards.Response {
			return client.UpdateCard(ctx, "d1", "c1", flashcards.CardPayload{Type: flashcards.CardFront})
		}, http.MethodPut, "/api/v1/decks/d1/cards/c1/", flashcards.RouteCard},
		{"delete card", func() flashcards.Response { return client.DeleteCard(ctx, "d1", "c1") }, http.MethodDelete, "/api/v1/decks/d1/cards/c1/", flashcards.RouteCard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tt.call()
			if resp.Err != nil {
				t.Fatalf("unexpected error: %v", resp.Err)
			}
			if resp.Status != http.StatusOK {
				t.Fatalf("Status = %d, want 200", resp.Status)
			}
			if resp.Route != tt.wantRoute || resp.Method != tt.wantMethod {
				t.Fatalf("Response labelled %q, want %s %s", resp.Label(), tt.wantMethod, tt.wantRoute)
			}
			got := rec.last(t)
			if got.Method != tt.wantMethod || got.Path != tt.wantPath {
				t.Fatalf("sent %s %s, want %s %s", got.Method, got.Path, tt.wantMethod, tt.wantPath)
			}
			if got.Auth != "Bearer tok" {
				t.Fatalf("Authorization = %q, want Bearer tok", got.Auth)
			}
		})
	}
}

func TestClientWithoutAuthSendsNoHeader(t *testing.T) {
	rec := &recorder{}
	client := newClient(t, rec.handler(http.StatusOK, ""))
	if client.Authenticated() {
		t.Fatal("base client must be unauthenticated")
	}

	resp := client.WithAuth(auth.ForIdentity(nil)).Health(context.Background())
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if got := rec.last(t).Auth; got != "" {
		t.Fatalf("Authorization = %q, want empty", got)
	}
}

func TestClientEncodesPayloadAndEscapesIDs(t *testing.T) {
	rec := &recorder{}
	client := newClient(t, rec.handler(http.StatusCreated, `{"id":42}`))

	resp := client.CreateCard(context.Background(), "deck/1", flashcards.CardPayload{
		Type:  flashcards.CardFrontBack,
		Front: "What is the capital of France?",
		Back:  "Paris",
	})
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}

	got := rec.last(t)
	if got.Path != "/api/v1/decks/deck%2F1/cards/" {
		t.Fatalf("Path = %q", got.Path)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(got.Body), &payload); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if payload["type"] != "front_back" || payload["back"] != "Paris" {
		t.Fatalf("payload = %v", payload)
	}

	id, err := flashcards.ID(resp.Body)
	if err != nil || id != "42" {
		t.Fatalf("ID() = %q, %v; want 42", id, err)
	}
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	builder, err := httpclient.NewRequestBuilder(srv.URL, "", nil)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	srv.Close()

	resp := flashcards.New(httpclient.NewClient(time.Second), builder).Health(context.Background())
	if resp.Err == nil {
		t.Fatal("expected transport error against closed server")
	}
	if resp.Status != 0 {
		t.Fatalf("Status = %d, want 0", resp.Status)
	}
}

func TestClientRejectsOversizedBody(t *testing.T) {
	big := strings.Repeat("a", (1<<20)+10)
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, big)
	}))

	resp := client.Health(context.Background())
	if !errors.Is(resp.Err, flashcards.ErrBodyTooLarge) {
		t.Fatalf("Err = %v, want ErrBodyTooLarge", resp.Err)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.Status)
	}
}

func TestIDExtraction(t *testing.T) {
	tests := []struct {
		body    string
		want    string
		wantErr bool
	}{
		{`{"id":"abc"}`, "abc", false},
		{`{"id":7}`, "7", false},
		{`{"name":"deck"}`, "", true},
		{`{"id":""}`, "", true},
		{`not json`, "", true},
	}
	for _, tt := range tests {
		got, err := flashcards.ID([]byte(tt.body))
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ID(%s) = %q, %v", tt.body, got, err)
		}
	}
}
