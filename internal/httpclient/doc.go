// Package httpclient provides HTTP client utilities for driving the Memora API.
//
// The httpclient package handles HTTP request construction and execution with support for:
//   - Configurable timeouts and connection pooling
//   - Bearer token injection through an [AuthProvider]
//   - Replayable JSON request bodies
//
// # Request Building
//
// A [RequestBuilder] is rooted at the target host plus the API base path:
//
//	builder, err := httpclient.NewRequestBuilder("https://api.example.com", "/api/v1", nil)
//	if err != nil {
//		return err
//	}
//	body, _ := httpclient.NewJSONBody(map[string]string{"name": "Deck"})
//	req, err := builder.Build(ctx, http.MethodPost, "/decks/", body, provider)
//
// # HTTP Client
//
// The [NewClient] function creates an HTTP client optimized for load testing with
// configurable timeouts and connection reuse. The client is shared by all
// virtual users; the timeout is the only per-request deadline.
//
//	client := httpclient.NewClient(30 * time.Second)
//	resp, err := client.Do(req)
package httpclient
