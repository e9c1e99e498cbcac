package flashcards

import (
	"errors"
	"strings"

	"github.com/memora/memora-load/internal/extractor"
)

// Card types accepted by the API.
const (
	CardFrontBack = "front_back"
	CardFront     = "front"
	CardBack      = "back"
)

// ErrMissingID is returned when a create response carries no id.
var ErrMissingID = errors.New("response has no id")

type UserPayload struct {
	Name string `json:"name"`
}

type DeckPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CardPayload struct {
	Type  string `json:"type"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

// ID returns the "id" field of a create response. Numeric ids are returned
// in their decimal form.
func ID(body []byte) (string, error) {
	id, ok := extractor.String(body, "$.id", nil)
	if !ok || strings.TrimSpace(id) == "" {
		return "", ErrMissingID
	}
	return strings.TrimSpace(id), nil
}

// RequireID is a classify.Decoder that rejects create responses without an id.
func RequireID(body []byte) error {
	_, err := ID(body)
	return err
}
