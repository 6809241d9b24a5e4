package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/oauth2"
)

const tokenColumns = `id, sequence, service, access_token, refresh_token, token_type, expiry, created_at, updated_at, deleted_at`

// TokenRepository implements [models.Repository] for [models.Token] persistence.
type TokenRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Token] = (*TokenRepository)(nil)

// NewTokenRepository creates a new [TokenRepository] with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create inserts a new token into the database with generated ID and sequence
func (r *TokenRepository) Create(token *models.Token) error {
	if err := token.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "tokens")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	token.SetID(id)
	token.SetSequence(sequence)

	oauth := token.OAuth()
	query := `
		INSERT INTO tokens (id, sequence, service, access_token, refresh_token, token_type, expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		token.Service(),
		oauth.AccessToken,
		oauth.RefreshToken,
		oauth.TokenType,
		nullTime(oauth.Expiry),
		token.CreatedAt(),
		token.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}

	return nil
}

// Get retrieves a token by ID, excluding soft-deleted tokens
func (r *TokenRepository) Get(id string) (*models.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByService retrieves the live token for a service.
func (r *TokenRepository) GetByService(service string) (*models.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE service = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, service))
}

// Update replaces the stored OAuth fields of an existing token
func (r *TokenRepository) Update(token *models.Token) error {
	if err := token.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	token.SetUpdatedAt(now)

	oauth := token.OAuth()
	query := `
		UPDATE tokens
		SET access_token = ?, refresh_token = ?, token_type = ?, expiry = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, oauth.AccessToken, oauth.RefreshToken, oauth.TokenType, nullTime(oauth.Expiry), now, token.ID())
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}

	return expectRow(result, token.ID())
}

// Delete soft-deletes a token by ID.
//
// The row is also renamed out of the service's UNIQUE slot so a fresh login can create a new one.
func (r *TokenRepository) Delete(id string) error {
	query := `
		UPDATE tokens
		SET deleted_at = ?, service = service || ':' || id
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return expectRow(result, id)
}

// List retrieves all tokens matching the given criteria, excluding soft-deleted tokens
func (r *TokenRepository) List(criteria map[string]any) ([]*models.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE deleted_at IS NULL`
	args := []any{}

	if service, ok := criteria["service"].(string); ok && service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.Token
	for rows.Next() {
		token, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tokens, nil
}

// Save creates the service's token or updates it in place.
func (r *TokenRepository) Save(service string, oauth *oauth2.Token) (*models.Token, error) {
	existing, err := r.GetByService(service)
	if errors.Is(err, shared.ErrTokenNotFound) {
		token := models.NewToken(0, service, oauth)
		if err := r.Create(token); err != nil {
			return nil, err
		}
		return token, nil
	}
	if err != nil {
		return nil, err
	}

	existing.SetOAuth(oauth)
	if err := r.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *TokenRepository) scanOne(row *sql.Row) (*models.Token, error) {
	token, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTokenNotFound
	}
	return token, err
}

func (r *TokenRepository) scan(s scanner) (*models.Token, error) {
	var (
		id        string
		sequence  int
		service   string
		oauth     oauth2.Token
		expiry    sql.NullTime
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := s.Scan(&id, &sequence, &service, &oauth.AccessToken, &oauth.RefreshToken, &oauth.TokenType, &expiry, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}

	if expiry.Valid {
		oauth.Expiry = expiry.Time
	}

	token := models.NewToken(sequence, service, &oauth)
	token.SetID(id)
	token.SetCreatedAt(createdAt)
	token.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		token.SetDeletedAt(&deletedAt.Time)
	}

	return token, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTokenNotFound, id)
	}
	return nil
}
