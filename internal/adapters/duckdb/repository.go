// Package duckdb implements persistent storage on an embedded DuckDB
// database.
package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/chimeralabs/chimera/internal/core/domain"
	"github.com/chimeralabs/chimera/internal/core/ports"
)

type Repository struct {
	db *sql.DB
}

var _ ports.Repository = (*Repository)(nil)

// NewRepository opens (or creates) the database at path and prepares the
// schema. An empty path gives an in-memory database.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	r := &Repository{db: db}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := r.seedPersonas(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id         VARCHAR PRIMARY KEY,
			persona_id VARCHAR,
			title      VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id              VARCHAR PRIMARY KEY,
			conversation_id VARCHAR NOT NULL,
			role            VARCHAR NOT NULL,
			content         VARCHAR NOT NULL,
			steps           VARCHAR,
			metadata        VARCHAR,
			created_at      TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS personas (
			id            VARCHAR PRIMARY KEY,
			name          VARCHAR NOT NULL,
			description   VARCHAR,
			system_prompt VARCHAR NOT NULL,
			is_builtin    BOOLEAN NOT NULL DEFAULT false,
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id         VARCHAR PRIMARY KEY,
			title      VARCHAR NOT NULL,
			content    VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key   VARCHAR PRIMARY KEY,
			value VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS traces (
			id              VARCHAR PRIMARY KEY,
			name            VARCHAR NOT NULL,
			status          VARCHAR NOT NULL,
			conversation_id VARCHAR,
			persona_id      VARCHAR,
			root_span_id    VARCHAR,
			start_time      TIMESTAMP NOT NULL,
			end_time        TIMESTAMP,
			duration_ms     BIGINT,
			span_count      INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS spans (
			id          VARCHAR PRIMARY KEY,
			trace_id    VARCHAR NOT NULL,
			parent_id   VARCHAR,
			name        VARCHAR NOT NULL,
			kind        VARCHAR NOT NULL,
			status      VARCHAR NOT NULL,
			input       VARCHAR,
			output      VARCHAR,
			error       VARCHAR,
			model       VARCHAR,
			attributes  VARCHAR,
			start_time  TIMESTAMP NOT NULL,
			end_time    TIMESTAMP,
			duration_ms BIGINT
		)`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (r *Repository) seedPersonas() error {
	for _, p := range domain.BuiltinPersonas() {
		_, err := r.db.Exec(`
			INSERT INTO personas (id, name, description, system_prompt, is_builtin, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			string(p.ID), p.Name, p.Description, p.SystemPrompt, p.IsBuiltin, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("seed persona %s: %w", p.ID, err)
		}
	}
	return nil
}

// --- Conversations ---

func (r *Repository) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	var personaID *string
	if conv.PersonaID != nil {
		s := string(*conv.PersonaID)
		personaID = &s
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, persona_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(conv.ID), personaID, conv.Title, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (r *Repository) GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, persona_id, title, created_at, updated_at
		FROM conversations WHERE id = ?`, string(id))

	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

func (r *Repository) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, persona_id, title, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []domain.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateConversationTitle(ctx context.Context, id domain.ConversationID, title string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now(), string(id),
	)
	if err != nil {
		return fmt.Errorf("update conversation title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *Repository) DeleteConversation(ctx context.Context, id domain.ConversationID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, string(id)); err != nil {
		return fmt.Errorf("delete conversation messages: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (domain.Conversation, error) {
	var conv domain.Conversation
	var id string
	var personaID *string
	if err := row.Scan(&id, &personaID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return domain.Conversation{}, err
	}
	conv.ID = domain.ConversationID(id)
	if personaID != nil {
		pid := domain.PersonaID(*personaID)
		conv.PersonaID = &pid
	}
	return conv, nil
}

// --- Messages ---

func (r *Repository) AddMessage(ctx context.Context, msg domain.Message) error {
	var stepsJSON, metaJSON []byte
	if len(msg.Steps) > 0 {
		stepsJSON, _ = json.Marshal(msg.Steps)
	}
	if len(msg.Metadata) > 0 {
		metaJSON, _ = json.Marshal(msg.Metadata)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, steps, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(msg.ID), string(msg.ConversationID), string(msg.Role), msg.Content,
		nullableString(stepsJSON), nullableString(metaJSON), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?`,
		msg.CreatedAt, string(msg.ConversationID),
	)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (r *Repository) ListMessages(ctx context.Context, convID domain.ConversationID, limit int) ([]domain.Message, error) {
	q := `
		SELECT id, conversation_id, role, content, steps, metadata, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at ASC`
	args := []any{string(convID)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var id, convIDStr, role string
		var stepsJSON, metaJSON *string
		if err := rows.Scan(&id, &convIDStr, &role, &msg.Content, &stepsJSON, &metaJSON, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.ID = domain.MessageID(id)
		msg.ConversationID = domain.ConversationID(convIDStr)
		msg.Role = domain.MessageRole(role)
		if stepsJSON != nil && *stepsJSON != "" {
			_ = json.Unmarshal([]byte(*stepsJSON), &msg.Steps)
		}
		if metaJSON != nil && *metaJSON != "" {
			_ = json.Unmarshal([]byte(*metaJSON), &msg.Metadata)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func nullableString(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := string(b)
	return &s
}

// --- Personas ---

func (r *Repository) CreatePersona(ctx context.Context, p domain.Persona) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO personas (id, name, description, system_prompt, is_builtin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(p.ID), p.Name, p.Description, p.SystemPrompt, p.IsBuiltin, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create persona: %w", err)
	}
	return nil
}

func (r *Repository) GetPersona(ctx context.Context, id domain.PersonaID) (domain.Persona, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, system_prompt, is_builtin, created_at, updated_at
		FROM personas WHERE id = ?`, string(id))

	p, err := scanPersona(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Persona{}, domain.ErrPersonaNotFound
	}
	if err != nil {
		return domain.Persona{}, fmt.Errorf("get persona: %w", err)
	}
	return p, nil
}

func (r *Repository) ListPersonas(ctx context.Context) ([]domain.Persona, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, system_prompt, is_builtin, created_at, updated_at
		FROM personas ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	defer rows.Close()

	out := []domain.Persona{}
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) UpdatePersona(ctx context.Context, p domain.Persona) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE personas SET name = ?, description = ?, system_prompt = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.SystemPrompt, time.Now(), string(p.ID),
	)
	if err != nil {
		return fmt.Errorf("update persona: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPersonaNotFound
	}
	return nil
}

func (r *Repository) DeletePersona(ctx context.Context, id domain.PersonaID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM personas WHERE id = ? AND is_builtin = false`, string(id))
	if err != nil {
		return fmt.Errorf("delete persona: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPersonaNotFound
	}
	return nil
}

func scanPersona(row rowScanner) (domain.Persona, error) {
	var p domain.Persona
	var id string
	if err := row.Scan(&id, &p.Name, &p.Description, &p.SystemPrompt, &p.IsBuiltin, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Persona{}, err
	}
	p.ID = domain.PersonaID(id)
	return p, nil
}

// --- Notes ---

func (r *Repository) SaveNote(ctx context.Context, n domain.Note) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, created_at)
		VALUES (?, ?, ?, ?)`,
		string(n.ID), n.Title, n.Content, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save note: %w", err)
	}
	return nil
}

func (r *Repository) ListNotes(ctx context.Context) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, content, created_at FROM notes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	out := []domain.Note{}
	for rows.Next() {
		var n domain.Note
		var id string
		if err := rows.Scan(&id, &n.Title, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.ID = domain.NoteID(id)
		out = append(out, n)
	}
	return out, rows.Err()
}

// --- Settings ---

func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	row := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key)
	var value string
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

func (r *Repository) SaveSetting(ctx context.Context, key string, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}
