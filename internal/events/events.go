// Package events publishes client-side state changes (favorites, matches,
// sessions, exports) to NATS so other tools can follow along with `dm watch`.
package events

import (
	"context"
	"strings"
	"time"

	"github.com/alfredjeanlab/dogmatch/internal/model"
)

// Event topic constants
const (
	TopicAll = "dogmatch.>"

	TopicFavoriteAdded    = "dogmatch.favorites.added"
	TopicFavoriteRemoved  = "dogmatch.favorites.removed"
	TopicFavoritesCleared = "dogmatch.favorites.cleared"
	TopicMatchGenerated   = "dogmatch.match.generated"

	TopicSessionLogin   = "dogmatch.session.login"
	TopicSessionLogout  = "dogmatch.session.logout"
	TopicSessionExpired = "dogmatch.session.expired"

	TopicExportWritten = "dogmatch.export.written"
)

// Event types

type FavoriteAdded struct {
	Dog   model.Dog `json:"dog"`
	Count int       `json:"count"`
}

type FavoriteRemoved struct {
	DogID        string `json:"dog_id"`
	Count        int    `json:"count"`
	MatchCleared bool   `json:"match_cleared,omitempty"`
}

type FavoritesCleared struct {
	Removed int `json:"removed"`
}

type MatchGenerated struct {
	Dog        model.Dog `json:"dog"`
	Candidates int       `json:"candidates"`
}

type SessionLogin struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

type SessionLogout struct {
	Name        string    `json:"name,omitempty"`
	KeysRemoved int       `json:"keys_removed"`
	At          time.Time `json:"at"`
}

type SessionExpired struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

type ExportWritten struct {
	ExportID    string `json:"export_id"`
	Destination string `json:"destination"`
	Dogs        int    `json:"dogs"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Short returns the topic without the "dogmatch." prefix, for display.
func Short(topic string) string {
	return strings.TrimPrefix(topic, "dogmatch.")
}
