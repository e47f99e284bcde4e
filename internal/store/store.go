// Package store is the Postgres persistence layer: users, designs and
// versioned document snapshots, with hand-written queries over pgx.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type Store struct {
	pool *pgxpool.Pool
}

// NewPool opens a connection pool and verifies it with a ping.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Users ---

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password, display_name, created_at`,
		u.ID, u.Email, u.Password, u.DisplayName)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at
		FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at
		FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		return User{}, mapErr(err)
	}
	return u, nil
}

// --- Designs ---

type Design struct {
	ID        string
	OwnerID   string
	Name      string
	Tool      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Store) CreateDesign(ctx context.Context, d Design) (Design, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO designs (id, owner_id, name, tool)
		VALUES ($1, $2, $3, $4)
		RETURNING id, owner_id, name, tool, created_at, updated_at`,
		d.ID, d.OwnerID, d.Name, d.Tool)
	return scanDesign(row)
}

func (s *Store) GetDesign(ctx context.Context, id string) (Design, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, tool, created_at, updated_at
		FROM designs WHERE id = $1`, id)
	return scanDesign(row)
}

func (s *Store) ListDesignsByOwner(ctx context.Context, ownerID string) ([]Design, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, name, tool, created_at, updated_at
		FROM designs WHERE owner_id = $1
		ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []Design
	for rows.Next() {
		var d Design
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Tool, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) RenameDesign(ctx context.Context, id, name string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE designs SET name = $2, updated_at = now() WHERE id = $1`, id, name)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteDesign(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM designs WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Snapshots ---

type Snapshot struct {
	ID        string
	DesignID  string
	Version   int32
	Document  []byte
	CreatedAt time.Time
}

// CreateSnapshot appends the next version for a design, computing the
// version number in SQL so concurrent saves cannot collide.
func (s *Store) CreateSnapshot(ctx context.Context, id, designID string, document []byte) (Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO snapshots (id, design_id, version, document)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE design_id = $2),
			$3)
		RETURNING id, design_id, version, document, created_at`,
		id, designID, document)
	return scanSnapshot(row)
}

func (s *Store) GetLatestSnapshot(ctx context.Context, designID string) (Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, design_id, version, document, created_at
		FROM snapshots WHERE design_id = $1
		ORDER BY version DESC LIMIT 1`, designID)
	return scanSnapshot(row)
}

func (s *Store) GetSnapshot(ctx context.Context, designID string, version int32) (Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, design_id, version, document, created_at
		FROM snapshots WHERE design_id = $1 AND version = $2`, designID, version)
	return scanSnapshot(row)
}

func scanDesign(row pgx.Row) (Design, error) {
	var d Design
	err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Tool, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Design{}, mapErr(err)
	}
	return d, nil
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.DesignID, &snap.Version, &snap.Document, &snap.CreatedAt)
	if err != nil {
		return Snapshot{}, mapErr(err)
	}
	return snap, nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
