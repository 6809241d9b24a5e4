package models

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Token is a persisted OAuth token for one music service.
type Token struct {
	id        string
	sequence  int
	service   string
	token     *oauth2.Token
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewToken creates an unsaved [Token] for service.
func NewToken(sequence int, service string, token *oauth2.Token) *Token {
	now := time.Now()
	return &Token{
		sequence:  sequence,
		service:   service,
		token:     token,
		createdAt: now,
		updatedAt: now,
	}
}

func (t *Token) ID() string { return t.id }
func (t *Token) Sequence() int { return t.sequence }
func (t *Token) Service() string { return t.service }
func (t *Token) OAuth() *oauth2.Token { return t.token }
func (t *Token) CreatedAt() time.Time { return t.createdAt }
func (t *Token) UpdatedAt() time.Time { return t.updatedAt }
func (t *Token) DeletedAt() *time.Time { return t.deletedAt }
func (t *Token) SetID(id string) { t.id = id }
func (t *Token) SetSequence(seq int) { t.sequence = seq }
func (t *Token) SetCreatedAt(ts time.Time) { t.createdAt = ts }
func (t *Token) SetUpdatedAt(ts time.Time) { t.updatedAt = ts }
func (t *Token) SetDeletedAt(ts *time.Time) { t.deletedAt = ts }

// SetOAuth replaces the wrapped token, e.g. after a refresh.
func (t *Token) SetOAuth(token *oauth2.Token) { t.token = token }

// Validate checks that the token has a service and an access token.
func (t *Token) Validate() error {
	if t.service == "" {
		return fmt.Errorf("service is required")
	}
	if t.token == nil || t.token.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}
