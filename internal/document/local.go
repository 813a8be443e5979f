package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// LocalEngine implements Engine on a local SQLite file. It serves
// single-node deployments where no remote document service is configured.
//
// A single connection is shared so concurrent writers serialize through one
// SQLite handle instead of racing into SQLITE_BUSY.
type LocalEngine struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ Engine = (*LocalEngine)(nil)

// NewLocalEngine opens (or creates) the SQLite database at path and
// prepares the schema.
func NewLocalEngine(path string, logger *zap.Logger) (*LocalEngine, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	e := &LocalEngine{db: db, logger: logger}
	if err := e.init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("local document engine ready", zap.String("path", path))
	return e, nil
}

func (e *LocalEngine) init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS payloads (
			doc_id     TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fields (
			doc_id TEXT NOT NULL,
			ns     TEXT NOT NULL,
			k      TEXT NOT NULL,
			v      TEXT NOT NULL,
			PRIMARY KEY (doc_id, ns, k)
		)`,
	}
	for _, s := range stmts {
		if _, err := e.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("init local engine schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (e *LocalEngine) Close() error { return e.db.Close() }

// readPayload unmarshals the stored payload for docID into v. Returns
// ErrNotFound when no payload exists.
func (e *LocalEngine) readPayload(ctx context.Context, docID string, v any) error {
	var raw string
	err := e.db.QueryRowContext(ctx,
		`SELECT payload FROM payloads WHERE doc_id = ?`, docID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read payload %s: %w", docID, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode payload %s: %w", docID, err)
	}
	return nil
}

func (e *LocalEngine) writePayload(ctx context.Context, docID string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode payload %s: %w", docID, err)
	}
	_, err = e.db.ExecContext(ctx, `
		INSERT INTO payloads (doc_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (doc_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		docID, string(raw), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write payload %s: %w", docID, err)
	}
	return nil
}

// Elements reads the element array. A missing document is an empty project,
// not an error.
func (e *LocalEngine) Elements(ctx context.Context, docID string) ([]Element, error) {
	var els []Element
	if err := e.readPayload(ctx, docID, &els); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Element{}, nil
		}
		return nil, err
	}
	return els, nil
}

func (e *LocalEngine) ReplaceElements(ctx context.Context, docID string, els []Element) error {
	return e.writePayload(ctx, docID, els)
}

func (e *LocalEngine) Relationships(ctx context.Context, docID string) ([]Relationship, error) {
	var rels []Relationship
	if err := e.readPayload(ctx, docID, &rels); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Relationship{}, nil
		}
		return nil, err
	}
	return rels, nil
}

func (e *LocalEngine) AppendRelationship(ctx context.Context, docID string, rel Relationship) error {
	rels, err := e.Relationships(ctx, docID)
	if err != nil {
		return err
	}
	return e.writePayload(ctx, docID, append(rels, rel))
}

func (e *LocalEngine) DeleteRelationship(ctx context.Context, docID, relID string) error {
	rels, err := e.Relationships(ctx, docID)
	if err != nil {
		return err
	}
	kept := rels[:0]
	found := false
	for _, r := range rels {
		if r.ID == relID {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return ErrNotFound
	}
	return e.writePayload(ctx, docID, kept)
}

func (e *LocalEngine) Fields(ctx context.Context, docID, namespace string) (map[string]string, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT k, v FROM fields WHERE doc_id = ? AND ns = ?`, docID, namespace)
	if err != nil {
		return nil, fmt.Errorf("read fields %s/%s: %w", docID, namespace, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SetFields merges fields into one namespace inside a single transaction.
func (e *LocalEngine) SetFields(ctx context.Context, docID, namespace string, fields map[string]string) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set fields: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for k, v := range fields {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fields (doc_id, ns, k, v) VALUES (?, ?, ?, ?)
			ON CONFLICT (doc_id, ns, k) DO UPDATE SET v = excluded.v`,
			docID, namespace, k, v); err != nil {
			return fmt.Errorf("set field %s/%s.%s: %w", docID, namespace, k, err)
		}
	}
	return tx.Commit()
}

func (e *LocalEngine) Content(ctx context.Context, docID string) (string, error) {
	var content string
	if err := e.readPayload(ctx, docID, &content); err != nil {
		return "", err
	}
	return content, nil
}

func (e *LocalEngine) Schemas(ctx context.Context, docID string) ([]Schema, error) {
	var schemas []Schema
	if err := e.readPayload(ctx, docID, &schemas); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Schema{}, nil
		}
		return nil, err
	}
	return schemas, nil
}

func (e *LocalEngine) Snapshots(ctx context.Context, docID string) ([]Snapshot, error) {
	var snaps []Snapshot
	if err := e.readPayload(ctx, docID, &snaps); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Snapshot{}, nil
		}
		return nil, err
	}
	return snaps, nil
}

func (e *LocalEngine) AppendSnapshot(ctx context.Context, docID string, snap Snapshot) error {
	snaps, err := e.Snapshots(ctx, docID)
	if err != nil {
		return err
	}
	return e.writePayload(ctx, docID, append(snaps, snap))
}

func (e *LocalEngine) PublishPlans(ctx context.Context, docID string) ([]PublishPlan, error) {
	var plans []PublishPlan
	if err := e.readPayload(ctx, docID, &plans); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []PublishPlan{}, nil
		}
		return nil, err
	}
	return plans, nil
}
