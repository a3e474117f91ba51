// Package export writes the favorites list as JSONL: a header record, one
// record per favorited dog, then the match (if any).
package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/dogmatch/internal/model"
)

// FormatVersion is written in the header record.
const FormatVersion = "1"

// Record types.
const (
	TypeHeader = "header"
	TypeDog    = "dog"
	TypeMatch  = "match"
)

// header is the first JSONL record written by WriteJSONL.
type header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	ExportID  string    `json:"export_id"`
	Timestamp time.Time `json:"timestamp"`
	DogCount  int       `json:"dog_count"`
	HasMatch  bool      `json:"has_match"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string    `json:"type"`
	Data model.Dog `json:"data"`
}

// Snapshot is what an export contains.
type Snapshot struct {
	ExportID  string
	Timestamp time.Time
	Favorites []model.Dog
	Match     *model.Dog
}

// WriteJSONL writes snap to w.
func WriteJSONL(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   FormatVersion,
		Type:      TypeHeader,
		ExportID:  snap.ExportID,
		Timestamp: snap.Timestamp.UTC(),
		DogCount:  len(snap.Favorites),
		HasMatch:  snap.Match != nil,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, d := range snap.Favorites {
		if err := enc.Encode(record{Type: TypeDog, Data: d}); err != nil {
			return fmt.Errorf("encode dog %s: %w", d.ID, err)
		}
	}
	if snap.Match != nil {
		if err := enc.Encode(record{Type: TypeMatch, Data: *snap.Match}); err != nil {
			return fmt.Errorf("encode match: %w", err)
		}
	}
	return nil
}

// ReadJSONL parses an export written by WriteJSONL. The header must come
// first and its dog count must agree with the records that follow.
func ReadJSONL(r io.Reader) (Snapshot, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var (
		snap Snapshot
		h    header
		line int
	)
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		if line == 1 {
			if err := json.Unmarshal(raw, &h); err != nil {
				return Snapshot{}, fmt.Errorf("line 1: %w", err)
			}
			if h.Type != TypeHeader {
				return Snapshot{}, errors.New("line 1: missing header record")
			}
			if h.Version != FormatVersion {
				return Snapshot{}, fmt.Errorf("unsupported export version %q", h.Version)
			}
			snap.ExportID, snap.Timestamp = h.ExportID, h.Timestamp
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Snapshot{}, fmt.Errorf("line %d: %w", line, err)
		}
		switch rec.Type {
		case TypeDog:
			snap.Favorites = append(snap.Favorites, rec.Data)
		case TypeMatch:
			m := rec.Data
			snap.Match = &m
		default:
			return Snapshot{}, fmt.Errorf("line %d: unknown record type %q", line, rec.Type)
		}
	}
	if err := sc.Err(); err != nil {
		return Snapshot{}, err
	}
	if line == 0 {
		return Snapshot{}, errors.New("empty export")
	}
	if len(snap.Favorites) != h.DogCount {
		return Snapshot{}, fmt.Errorf("header says %d dogs, found %d", h.DogCount, len(snap.Favorites))
	}
	return snap, nil
}
