package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Mutation is one field-level partial update in a batch.
type Mutation struct {
	Collection string
	ID         string
	Fields     map[string]any
}

// executor is satisfied by *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Add appends a new document and returns its generated id.
// Nil field values are dropped.
func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := s.ids.Generate()
	data, err := MarshalDocument(fields)
	if err != nil {
		return "", fmt.Errorf("add %s: %w", collection, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES (?, ?, ?)
	`, collection, id, string(data))
	if err != nil {
		return "", fmt.Errorf("add %s: %w", collection, err)
	}

	return id, nil
}

// Put writes a document under a caller-chosen id, replacing any existing
// document with that id. Used for seeding fixtures.
func (s *Store) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := MarshalDocument(fields)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data
	`, collection, id, string(data))
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update applies a field-level partial update to one document.
// A nil value removes the field. Returns ErrNotFound if the document does
// not exist.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update %s/%s: begin tx: %w", collection, id, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := applyMutation(ctx, tx, Mutation{Collection: collection, ID: id, Fields: fields}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update %s/%s: commit: %w", collection, id, err)
	}
	return nil
}

// CommitBatch applies all mutations atomically. Batches larger than
// MaxBatchOps are rejected with ErrBatchTooLarge; callers split larger sets
// into sequential batches.
func (s *Store) CommitBatch(ctx context.Context, muts []Mutation) error {
	if len(muts) > MaxBatchOps {
		return fmt.Errorf("commit batch of %d: %w", len(muts), ErrBatchTooLarge)
	}
	if len(muts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit batch: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range muts {
		if err := applyMutation(ctx, tx, m); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func applyMutation(ctx context.Context, exec executor, m Mutation) error {
	var data string
	err := exec.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = ? AND id = ?
	`, m.Collection, m.ID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update %s/%s: %w", m.Collection, m.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", m.Collection, m.ID, err)
	}

	fields, err := unmarshalDocument(data)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", m.Collection, m.ID, err)
	}
	merge(fields, m.Fields)

	updated, err := MarshalDocument(fields)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", m.Collection, m.ID, err)
	}

	if _, err := exec.ExecContext(ctx, `
		UPDATE documents SET data = ? WHERE collection = ? AND id = ?
	`, string(updated), m.Collection, m.ID); err != nil {
		return fmt.Errorf("update %s/%s: %w", m.Collection, m.ID, err)
	}
	return nil
}
