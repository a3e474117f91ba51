package events

import (
	"encoding/json"
	"fmt"
)

// Describe renders a received event as one human-readable line. Unknown
// topics and undecodable payloads fall back to the raw JSON.
func Describe(m Message) string {
	raw := fmt.Sprintf("%s %s", Short(m.Subject), m.Data)
	switch m.Subject {
	case TopicFavoriteAdded:
		var e FavoriteAdded
		if json.Unmarshal(m.Data, &e) != nil {
			return raw
		}
		return fmt.Sprintf("favorite added: %s (%s), %d total", e.Dog.Name, e.Dog.ID, e.Count)
	case TopicFavoriteRemoved:
		var e FavoriteRemoved
		if json.Unmarshal(m.Data, &e) != nil {
			return raw
		}
		s := fmt.Sprintf("favorite removed: %s, %d total", e.DogID, e.Count)
		if e.MatchCleared {
			s += " (match cleared)"
		}
		return s
	case TopicFavoritesCleared:
		var e FavoritesCleared
		if json.Unmarshal(m.Data, &e) != nil {
			return raw
		}
		return fmt.Sprintf("favorites cleared: %d removed", e.Removed)
	case TopicMatchGenerated:
		var e MatchGenerated
		if json.Unmarshal(m.Data, &e) != nil {
			return raw
		}
		return fmt.Sprintf("match: %s (%s) out of %d", e.Dog.Name, e.Dog.ID, e.Candidates)
	case TopicSessionLogin:
		var e SessionLogin
		if json.Unmarshal(m.Data, &e) != nil {
			return raw
		}
		return fmt.Sprintf("signed in: %s", e.Name)
	case TopicSessionLogout:
		var e SessionLogout
		if json.Unmarshal(m.Data, &e) != nil {
			return raw
		}
		return fmt.Sprintf("signed out: %s (%d keys removed)", e.Name, e.KeysRemoved)
	case TopicSessionExpired:
		var e SessionExpired
		if json.Unmarshal(m.Data, &e) != nil {
			return raw
		}
		return fmt.Sprintf("session expired: %s", e.Reason)
	case TopicExportWritten:
		var e ExportWritten
		if json.Unmarshal(m.Data, &e) != nil {
			return raw
		}
		return fmt.Sprintf("export %s: %d favorites to %s", e.ExportID, e.Dogs, e.Destination)
	}
	return raw
}
