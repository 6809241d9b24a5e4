package repositories

import "golang.org/x/oauth2"

// TokenStore binds a [TokenRepository] to one service so refreshed tokens can be saved without knowing about services.
type TokenStore struct {
	repo    *TokenRepository
	service string
}

// NewTokenStore creates a [TokenStore] for service.
func NewTokenStore(repo *TokenRepository, service string) *TokenStore {
	return &TokenStore{repo: repo, service: service}
}

// Load returns the stored token, or [shared.ErrTokenNotFound].
func (s *TokenStore) Load() (*oauth2.Token, error) {
	token, err := s.repo.GetByService(s.service)
	if err != nil {
		return nil, err
	}
	return token.OAuth(), nil
}

// Store saves token for the bound service.
func (s *TokenStore) Store(token *oauth2.Token) error {
	_, err := s.repo.Save(s.service, token)
	return err
}
