package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/johanforsgren/dbxutil/internal/logger"
	"golang.org/x/oauth2"
)

// PersistentTokenSource refreshes tokens through its base source and writes
// any changed access or refresh token back to the settings record.
type PersistentTokenSource struct {
	base oauth2.TokenSource
	repo domain.SettingsRepository

	mu          sync.Mutex
	lastAccess  string
	lastRefresh string
}

var _ oauth2.TokenSource = (*PersistentTokenSource)(nil)

// NewTokenSource builds the token source for an API session. Without a flow
// or refresh token the access token is used as is. A nil repo disables
// write-back, which is how sessions whose credentials were not saved behave.
func NewTokenSource(ctx context.Context, flow *Flow, token *oauth2.Token, repo domain.SettingsRepository) (*PersistentTokenSource, error) {
	if token == nil || token.AccessToken == "" {
		return nil, domain.ErrNotAuthenticated
	}

	var base oauth2.TokenSource
	if flow != nil && token.RefreshToken != "" {
		base = flow.config.TokenSource(ctx, token)
	} else {
		base = oauth2.StaticTokenSource(token)
	}

	return &PersistentTokenSource{
		base:        base,
		repo:        repo,
		lastAccess:  token.AccessToken,
		lastRefresh: token.RefreshToken,
	}, nil
}

func (p *PersistentTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		logger.LogError("TOKEN_REFRESH", "token source", err)
		return nil, fmt.Errorf("getting token from token source: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	changed := token.AccessToken != p.lastAccess ||
		(token.RefreshToken != "" && token.RefreshToken != p.lastRefresh)
	if !changed {
		return token, nil
	}

	logger.Log("Auth: Access token refreshed (%s)", logger.Redact(token.AccessToken))
	if p.repo == nil {
		p.remember(token)
		return token, nil
	}

	if err := p.persist(token); err != nil {
		// The fresh token is still usable; the next call retries the write.
		logger.LogError("TOKEN_PERSIST", p.repo.Path(), err)
		return token, nil
	}

	p.remember(token)
	return token, nil
}

func (p *PersistentTokenSource) persist(token *oauth2.Token) error {
	settings, err := p.repo.Load()
	if err != nil {
		return err
	}
	return p.repo.Save(ApplyToken(settings, token))
}

func (p *PersistentTokenSource) remember(token *oauth2.Token) {
	p.lastAccess = token.AccessToken
	if token.RefreshToken != "" {
		p.lastRefresh = token.RefreshToken
	}
}
