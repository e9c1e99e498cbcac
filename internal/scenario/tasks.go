package scenario

import (
	"context"
	"math/rand"
	"net/http"

	"github.com/memora/memora-load/internal/classify"
	"github.com/memora/memora-load/internal/flashcards"
)

// BurstSize is the number of decks a write-heavy burst tries to create.
const BurstSize = 3

// Request labels as they appear in reports.
const (
	RequestCreateUser     = "Setup: Create User"
	RequestCreateInitDeck = "Setup: Create Initial Deck"
	RequestHealth         = "Health Check"
	RequestGetUser        = "GET User"
	RequestListUserDecks  = "GET User Decks"
	RequestCreateDeck     = "POST Create Deck"
	RequestGetDeck        = "GET Deck"
	RequestCreateCard     = "POST Create Card in Deck"
	RequestGetCard        = "GET Card"
	RequestUpdateCard     = "PUT Update Card"
	RequestDeleteCard     = "DELETE Card"
	RequestBurstDeck      = "WriteHeavy: Create Deck"
)

var (
	acceptOK      = classify.Accept(http.StatusOK)
	acceptCreated = classify.Accept(http.StatusCreated).Expect(flashcards.RequireID)
	acceptDecks   = classify.Accept(http.StatusOK, http.StatusNotFound)
	acceptDeleted = classify.Accept(http.StatusNoContent)
)

func setupAccount(decks int) func(ctx context.Context, s Session) {
	return func(ctx context.Context, s Session) {
		user := flashcards.UserPayload{Name: "Test User " + randomString(s.Rand(), 5)}
		resp, out := s.Call(ctx, RequestCreateUser, acceptCreated, func(ctx context.Context, c *flashcards.Client) flashcards.Response {
			return c.CreateUser(ctx, user)
		})
		if out.Class == classify.Success {
			if id, err := flashcards.ID(resp.Body); err == nil {
				s.SetAccountID(id)
			}
		}

		for i := 0; i < decks && !s.Stopped(); i++ {
			deck := flashcards.DeckPayload{Name: "Initial Deck " + randomString(s.Rand(), 5)}
			createDeck(ctx, s, RequestCreateInitDeck, deck)
		}
	}
}

// HealthCheck calls GET /status/.
func HealthCheck(ctx context.Context, s Session) classify.Outcome {
	_, out := s.Call(ctx, RequestHealth, acceptOK, func(ctx context.Context, c *flashcards.Client) flashcards.Response {
		return c.Health(ctx)
	})
	return out
}

// GetUser fetches the account created during setup.
func GetUser(ctx context.Context, s Session) classify.Outcome {
	if s.AccountID() == "" {
		return classify.Skip()
	}
	_, out := s.Call(ctx, RequestGetUser, acceptOK, func(ctx context.Context, c *flashcards.Client) flashcards.Response {
		return c.GetUser(ctx)
	})
	return out
}

// ListUserDecks lists the bearer's decks. 404 means no decks and is a
// success. The local inventory is never changed.
func ListUserDecks(ctx context.Context, s Session) classify.Outcome {
	if !s.Authenticated() {
		return classify.Skip()
	}
	_, out := s.Call(ctx, RequestListUserDecks, acceptDecks, func(ctx context.Context, c *flashcards.Client) flashcards.Response {
		return c.ListUserDecks(ctx)
	})
	return out
}

// CreateDeck creates a deck and records its id.
func CreateDeck(ctx context.Context, s Session) classify.Outcome {
	deck := flashcards.DeckPayload{
		Name:        "Deck " + randomString(s.Rand(), 5),
		Description: "A test deck created during stress testing",
	}
	return createDeck(ctx, s, RequestCreateDeck, deck)
}

func createDeck(ctx context.Context, s Session, name string, deck flashcards.DeckPayload) classify.Outcome {
	resp, out := s.Call(ctx, name, acceptCreated, func(ctx context.Context, c *flashcards.Client) flashcards.Response {
		return c.CreateDeck(ctx, deck)
	})
	// A rate-limited create carries no id, so there is nothing to record.
	if out.Class == classify.Success {
		if id, err := flashcards.ID(resp.Body); err == nil {
			s.Owned().AddDeck(id)
		}
	}
	return out
}

// GetDeck reads a random owned deck.
func GetDeck(ctx context.Context, s Session) classify.Outcome {
	deckID, ok := s.Owned().RandomDeck(s.Rand())
	if !ok {
		return classify.Skip()
	}
	_, out := s.Call(ctx, RequestGetDeck, acceptOK, func(ctx context.Context, c *flashcards.Client) flashcards.Response {
		return c.GetDeck(ctx, deckID)
	})
	return out
}

// CreateCard adds a front/back card to a random owned deck.
func CreateCard(ctx context.Context, s Session) classify.Outcome {
	deckID, ok := s.Owned().RandomDeck(s.Rand())
	if !ok {
		return classify.Skip()
	}
	card := flashcards.CardPayload{
		Type:  flashcards.CardFrontBack,
		Front: "What is the capital of France?",
		Back:  "Paris",
	}
	resp, out := s.Call(ctx, RequestCreateCard, acceptCreated, func(ctx context.Context, c *flashcards.Client) flashcards.Response {
		return c.CreateCard(ctx, deckID, card)
	})
	if out.Class == classify.Success {
		if id, err := flashcards.ID(resp.Body); err == nil {
			s.Owned().AddCard(deckID, id)
		}
	}
	return out
}

// GetCard reads a random owned card under its own deck.
func GetCard(ctx context.Context, s Session) classify.Outcome {
	deckID, cardID, ok := s.Owned().RandomCard(s.Rand())
	if !ok {
		return classify.Skip()
	}
	_, out := s.Call(ctx, RequestGetCard, acceptOK, func(ctx context.Context, c *flashcards.Client) flashcards.Response {
		return c.GetCard(ctx, deckID, cardID)
	})
	return out
}

// UpdateCard rewrites both sides of a random owned card.
func UpdateCard(ctx context.Context, s Session) classify.Outcome {
	deckID, cardID, ok := s.Owned().RandomCard(s.Rand())
	if !ok {
		return classify.Skip()
	}
	card := flashcards.CardPayload{
		Type:  flashcards.CardFrontBack,
		Front: "Updated Front " + randomString(s.Rand(), 5),
		Back:  "Updated Back " + randomString(s.Rand(), 5),
	}
	_, out := s.Call(ctx, RequestUpdateCard, acceptOK, func(ctx context.Context, c *flashcards.Client) flashcards.Response {
		return c.UpdateCard(ctx, deckID, cardID, card)
	})
	return out
}

// DeleteCard deletes a random owned card. The card is forgotten on success
// and, optimistically, when the delete was rate limited.
func DeleteCard(ctx context.Context, s Session) classify.Outcome {
	deckID, cardID, ok := s.Owned().RandomCard(s.Rand())
	if !ok {
		return classify.Skip()
	}
	_, out := s.Call(ctx, RequestDeleteCard, acceptDeleted, func(ctx context.Context, c *flashcards.Client) flashcards.Response {
		return c.DeleteCard(ctx, deckID, cardID)
	})
	if out.Applies() {
		s.Owned().RemoveCard(deckID, cardID)
	}
	return out
}

// CreateDeckBurst issues up to size create-deck requests and stops at the
// first rate-limited response or once the session is stopped. It returns the
// outcome of the last request.
func CreateDeckBurst(size int) func(ctx context.Context, s Session) classify.Outcome {
	return func(ctx context.Context, s Session) classify.Outcome {
		out := classify.Skip()
		for i := 0; i < size && !s.Stopped(); i++ {
			deck := flashcards.DeckPayload{Name: "Bulk Deck " + randomString(s.Rand(), 5)}
			out = createDeck(ctx, s, RequestBurstDeck, deck)
			if out.RateLimited() {
				break
			}
		}
		return out
	}
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rng.Intn(len(alphanumeric))]
	}
	return string(b)
}
