// Package repo provides SQL-backed access to the auth sidecar: locally
// known actors and their API keys.
package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"coroner/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// HashAPIKey returns a stable SHA-256 hex digest for the provided key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// EnsureActor inserts the actor if it is not already known.
func (r Repo) EnsureActor(ctx context.Context, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return errors.New("actor_id required")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.DB.ExecContext(ctx, `INSERT OR IGNORE INTO actors(id, superuser, created_at) VALUES (?,0,?)`, actorID, now)
	return err
}

// SetSuperuser flips the superuser flag for an actor.
func (r Repo) SetSuperuser(ctx context.Context, actorID string, superuser bool) error {
	if err := r.EnsureActor(ctx, actorID); err != nil {
		return err
	}
	flag := 0
	if superuser {
		flag = 1
	}
	_, err := r.DB.ExecContext(ctx, `UPDATE actors SET superuser=? WHERE id=?`, flag, actorID)
	return err
}

// GetActor returns a known actor record.
func (r Repo) GetActor(ctx context.Context, actorID string) (domain.ActorRecord, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id, superuser, created_at FROM actors WHERE id=?`, actorID)
	var rec domain.ActorRecord
	var flag int
	err := row.Scan(&rec.ID, &flag, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.ActorRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.ActorRecord{}, err
	}
	rec.Superuser = flag != 0
	return rec, nil
}

// ListActors returns all known actors.
func (r Repo) ListActors(ctx context.Context) ([]domain.ActorRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, superuser, created_at FROM actors ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var actors []domain.ActorRecord
	for rows.Next() {
		var rec domain.ActorRecord
		var flag int
		if err := rows.Scan(&rec.ID, &flag, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Superuser = flag != 0
		actors = append(actors, rec)
	}
	return actors, rows.Err()
}

// InsertAPIKey stores a hashed API key. KeyHash must already contain the
// hashed value.
func (r Repo) InsertAPIKey(ctx context.Context, key domain.APIKey) error {
	if key.ID == "" {
		return errors.New("id required")
	}
	if key.ActorID == "" {
		return errors.New("actor_id required")
	}
	if key.KeyHash == "" {
		return errors.New("key_hash required")
	}
	if key.CreatedAt == "" {
		key.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := r.EnsureActor(ctx, key.ActorID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO api_keys(id, actor_id, name, key_hash, created_at) VALUES (?,?,?,?,?)`,
		key.ID, key.ActorID, nullable(key.Name), key.KeyHash, key.CreatedAt)
	return err
}

// GetAPIKeyByHash returns an API key by its hashed value.
func (r Repo) GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id, actor_id, COALESCE(name,''), key_hash, created_at FROM api_keys WHERE key_hash=? LIMIT 1`, hash)
	var key domain.APIKey
	err := row.Scan(&key.ID, &key.ActorID, &key.Name, &key.KeyHash, &key.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.APIKey{}, ErrNotFound
	}
	if err != nil {
		return domain.APIKey{}, err
	}
	return key, nil
}

// ListAPIKeys returns API keys, optionally filtered by actor ID.
func (r Repo) ListAPIKeys(ctx context.Context, actorID string) ([]domain.APIKey, error) {
	query := `SELECT id, actor_id, COALESCE(name,''), key_hash, created_at FROM api_keys`
	var args []any
	if actorID != "" {
		query += ` WHERE actor_id=?`
		args = append(args, actorID)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []domain.APIKey
	for rows.Next() {
		var key domain.APIKey
		if err := rows.Scan(&key.ID, &key.ActorID, &key.Name, &key.KeyHash, &key.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteAPIKey deletes an API key by ID.
func (r Repo) DeleteAPIKey(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	_, err := r.DB.ExecContext(ctx, `DELETE FROM api_keys WHERE id=?`, id)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
