// Package flashcards is a thin client for the Memora flashcard API. Every
// method issues exactly one request and returns the raw Response; callers
// decide how to classify it.
package flashcards

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/memora/memora-load/internal/httpclient"
	"github.com/memora/memora-load/internal/tracing"
)

// Routes relative to the configured base path. Placeholders appear only in
// the templated form used for span and metric labels.
const (
	RouteStatus    = "/status/"
	RouteUsers     = "/users/"
	RouteUserDecks = "/users/decks/"
	RouteDecks     = "/decks/"
	RouteDeck      = "/decks/{deck_id}/"
	RouteCards     = "/decks/{deck_id}/cards/"
	RouteCard      = "/decks/{deck_id}/cards/{card_id}/"
)

const maxResponseBytes = 1 << 20

// ErrBodyTooLarge is returned when a response exceeds the read limit.
var ErrBodyTooLarge = errors.New("response body too large")

// Response is the result of a single API call. Err is set only when no
// usable response was obtained.
type Response struct {
	Method  string
	Route   string
	Status  int
	Body    []byte
	Latency time.Duration
	Err     error
}

// Client issues Memora API requests. It is safe for concurrent use; per-user
// credentials are attached with WithAuth.
type Client struct {
	http      *http.Client
	builder   *httpclient.RequestBuilder
	auth      httpclient.AuthProvider
	propagate bool
}

// Option configures a Client.
type Option func(*Client)

// WithTracePropagation injects W3C trace context headers into every request.
func WithTracePropagation(enabled bool) Option {
	return func(c *Client) {
		c.propagate = enabled
	}
}

// New returns a Client sending requests built by builder through httpClient.
func New(httpClient *http.Client, builder *httpclient.RequestBuilder, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{http: httpClient, builder: builder}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithAuth returns a copy of c that authenticates with provider. A nil
// provider sends no Authorization header.
func (c *Client) WithAuth(provider httpclient.AuthProvider) *Client {
	clone := *c
	clone.auth = provider
	return &clone
}

// Authenticated reports whether requests carry credentials.
func (c *Client) Authenticated() bool {
	return c.auth != nil
}

// Health calls GET /status/.
func (c *Client) Health(ctx context.Context) Response {
	return c.do(ctx, http.MethodGet, RouteStatus, RouteStatus, nil)
}

// CreateUser calls POST /users/.
func (c *Client) CreateUser(ctx context.Context, user UserPayload) Response {
	return c.doJSON(ctx, http.MethodPost, RouteUsers, RouteUsers, user)
}

// GetUser calls GET /users/ for the authenticated account.
func (c *Client) GetUser(ctx context.Context) Response {
	return c.do(ctx, http.MethodGet, RouteUsers, RouteUsers, nil)
}

// ListUserDecks calls GET /users/decks/.
func (c *Client) ListUserDecks(ctx context.Context) Response {
	return c.do(ctx, http.MethodGet, RouteUserDecks, RouteUserDecks, nil)
}

// CreateDeck calls POST /decks/.
func (c *Client) CreateDeck(ctx context.Context, deck DeckPayload) Response {
	return c.doJSON(ctx, http.MethodPost, RouteDecks, RouteDecks, deck)
}

// GetDeck calls GET /decks/{deck_id}/.
func (c *Client) GetDeck(ctx context.Context, deckID string) Response {
	return c.do(ctx, http.MethodGet, deckPath(deckID), RouteDeck, nil)
}

// CreateCard calls POST /decks/{deck_id}/cards/.
func (c *Client) CreateCard(ctx context.Context, deckID string, card CardPayload) Response {
	return c.doJSON(ctx, http.MethodPost, deckPath(deckID)+"cards/", RouteCards, card)
}

// GetCard calls GET /decks/{deck_id}/cards/{card_id}/.
func (c *Client) GetCard(ctx context.Context, deckID, cardID string) Response {
	return c.do(ctx, http.MethodGet, cardPath(deckID, cardID), RouteCard, nil)
}

// UpdateCard calls PUT /decks/{deck_id}/cards/{card_id}/.
func (c *Client) UpdateCard(ctx context.Context, deckID, cardID string, card CardPayload) Response {
	return c.doJSON(ctx, http.MethodPut, cardPath(deckID, cardID), RouteCard, card)
}

// DeleteCard calls DELETE /decks/{deck_id}/cards/{card_id}/.
func (c *Client) DeleteCard(ctx context.Context, deckID, cardID string) Response {
	return c.do(ctx, http.MethodDelete, cardPath(deckID, cardID), RouteCard, nil)
}

func deckPath(deckID string) string {
	return "/decks/" + url.PathEscape(deckID) + "/"
}

func cardPath(deckID, cardID string) string {
	return deckPath(deckID) + "cards/" + url.PathEscape(cardID) + "/"
}

func (c *Client) doJSON(ctx context.Context, method, path, route string, payload interface{}) Response {
	body, err := httpclient.NewJSONBody(payload)
	if err != nil {
		return Response{Method: method, Route: route, Err: fmt.Errorf("encode body: %w", err)}
	}
	return c.do(ctx, method, path, route, body)
}

func (c *Client) do(ctx context.Context, method, path, route string, body httpclient.BodySource) Response {
	resp := Response{Method: method, Route: route}

	req, err := c.builder.Build(ctx, method, path, body, c.auth)
	if err != nil {
		resp.Err = err
		return resp
	}
	if c.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		resp.Latency = time.Since(start)
		resp.Err = err
		return resp
	}
	defer httpResp.Body.Close()

	resp.Status = httpResp.StatusCode
	resp.Body, resp.Err = readBody(httpResp.Body)
	resp.Latency = time.Since(start)
	return resp
}

func readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxResponseBytes {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// Label reports the route with the method, e.g. "GET /decks/{deck_id}/".
func (r Response) Label() string {
	return strings.TrimSpace(r.Method + " " + r.Route)
}
