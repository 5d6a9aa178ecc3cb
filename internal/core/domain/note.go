package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// NoteID uniquely identifies a saved note
type NoteID string

// Note is a short piece of text the assistant persisted on the user's behalf.
type Note struct {
	ID        NoteID    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrNoteNotFound = errors.New("note not found")

// NewNoteID generates a compact random note ID (note-<12 hex>)
func NewNoteID() NoteID {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return NoteID("note-" + hex.EncodeToString(b))
}
