// Package scenario defines the behaviour classes a virtual user can follow:
// the weighted task set, think-time range and optional setup of each class.
package scenario

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/memora/memora-load/internal/classify"
	"github.com/memora/memora-load/internal/flashcards"
	"github.com/memora/memora-load/internal/inventory"
)

// Class names accepted in configuration.
const (
	NameDefault     = "default"
	NameReadOnly    = "read_only"
	NameWriteHeavy  = "write_heavy"
	NameHealthProbe = "health_probe"
)

// Request sends one API call through the session's client.
type Request func(ctx context.Context, c *flashcards.Client) flashcards.Response

// Session is the view of a virtual user that tasks operate on. It is owned
// by a single goroutine.
type Session interface {
	// Owned is the user's local approximation of the decks and cards it created.
	Owned() *inventory.Inventory
	Rand() *rand.Rand
	// Authenticated reports whether an identity is bound to the session.
	Authenticated() bool
	// AccountID is the user id returned by the setup create-user call.
	AccountID() string
	SetAccountID(id string)
	// Stopped reports whether the run has ended. Tasks that send several
	// requests check it between them.
	Stopped() bool
	// Call issues a request, classifies and records it.
	Call(ctx context.Context, name string, rule classify.Rule, send Request) (flashcards.Response, classify.Outcome)
}

// Task is one weighted action in a class.
type Task struct {
	Name   string
	Weight int
	Run    func(ctx context.Context, s Session) classify.Outcome
}

// Class is a behaviour profile.
type Class struct {
	Name          string
	SpawnWeight   int
	ThinkMin      time.Duration
	ThinkMax      time.Duration
	Authenticated bool
	Tasks         []Task
	// Setup runs once before the first think time. It may be nil.
	Setup func(ctx context.Context, s Session)
}

// RequiresIdentity reports whether spawning this class needs an identity.
func (c *Class) RequiresIdentity() bool {
	return c != nil && c.Authenticated && c.SpawnWeight > 0
}

// Default models a regular user: it creates an account and setupDecks
// decks, then exercises every route.
func Default(setupDecks int) *Class {
	return &Class{
		Name:          NameDefault,
		SpawnWeight:   1,
		ThinkMin:      time.Second,
		ThinkMax:      3 * time.Second,
		Authenticated: true,
		Setup:         setupAccount(setupDecks),
		Tasks: []Task{
			{Name: "health-check", Weight: 10, Run: HealthCheck},
			{Name: "get-user", Weight: 5, Run: GetUser},
			{Name: "list-user-decks", Weight: 5, Run: ListUserDecks},
			{Name: "create-deck", Weight: 6, Run: CreateDeck},
			{Name: "get-deck", Weight: 2, Run: GetDeck},
			{Name: "create-card", Weight: 4, Run: CreateCard},
			{Name: "get-card", Weight: 6, Run: GetCard},
			{Name: "update-card", Weight: 2, Run: UpdateCard},
			{Name: "delete-card", Weight: 1, Run: DeleteCard},
		},
	}
}

// ReadOnly polls health and the deck list.
func ReadOnly() *Class {
	return &Class{
		Name:          NameReadOnly,
		SpawnWeight:   3,
		ThinkMin:      500 * time.Millisecond,
		ThinkMax:      2 * time.Second,
		Authenticated: true,
		Tasks: []Task{
			{Name: "health-check", Weight: 10, Run: HealthCheck},
			{Name: "list-user-decks", Weight: 5, Run: ListUserDecks},
		},
	}
}

// WriteHeavy creates decks in bursts.
func WriteHeavy() *Class {
	return &Class{
		Name:          NameWriteHeavy,
		SpawnWeight:   1,
		ThinkMin:      2 * time.Second,
		ThinkMax:      5 * time.Second,
		Authenticated: true,
		Tasks: []Task{
			{Name: "create-deck-burst", Weight: 1, Run: CreateDeckBurst(BurstSize)},
		},
	}
}

// HealthProbe is an unauthenticated health poller. It is not spawned unless
// given a weight.
func HealthProbe() *Class {
	return &Class{
		Name:     NameHealthProbe,
		ThinkMin: 500 * time.Millisecond,
		ThinkMax: 2 * time.Second,
		Tasks: []Task{
			{Name: "health-check", Weight: 1, Run: HealthCheck},
		},
	}
}

// Classes returns every built-in class with its default spawn weight.
func Classes(setupDecks int) []*Class {
	return []*Class{Default(setupDecks), ReadOnly(), WriteHeavy(), HealthProbe()}
}

// Resolve returns the built-in classes with spawn weights overridden by
// weights. Names match case-insensitively. Classes missing from a non-empty
// weights map get weight 0. Unknown or repeated names are an error.
func Resolve(weights map[string]int, setupDecks int) ([]*Class, error) {
	classes := Classes(setupDecks)
	if len(weights) == 0 {
		return classes, nil
	}

	byName := make(map[string]*Class, len(classes))
	for _, c := range classes {
		byName[c.Name] = c
		c.SpawnWeight = 0
	}

	var unknown, duplicate []string
	seen := make(map[string]string, len(weights))
	for name, weight := range weights {
		key := strings.ToLower(strings.TrimSpace(name))
		c, ok := byName[key]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if prev, dup := seen[key]; dup {
			duplicate = append(duplicate, prev, name)
			continue
		}
		seen[key] = name
		c.SpawnWeight = weight
	}
	if len(duplicate) > 0 {
		sort.Strings(duplicate)
		return nil, fmt.Errorf("user class given more than once: %s", strings.Join(duplicate, ", "))
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown user class %s (known: %s, %s, %s, %s)",
			strings.Join(unknown, ", "), NameDefault, NameReadOnly, NameWriteHeavy, NameHealthProbe)
	}
	return classes, nil
}
