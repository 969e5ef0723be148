package ui

import (
	"context"
	"fmt"
	"net/http"

	"github.com/johanforsgren/dbxutil/internal/auth"
	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/johanforsgren/dbxutil/internal/logger"
	"github.com/johanforsgren/dbxutil/internal/provider/dropbox"
	"golang.org/x/oauth2"
)

// ProviderFactory builds an API provider on top of an authenticated token source.
type ProviderFactory func(ctx context.Context, ts oauth2.TokenSource) (domain.Provider, error)

// ProviderManager turns credentials into providers: it owns the OAuth2
// endpoint, the HTTP client used for both token and API calls, and the
// provider construction.
type ProviderManager struct {
	endpoint   oauth2.Endpoint
	httpClient *http.Client
	factory    ProviderFactory
}

// NewProviderManager creates a manager producing Dropbox providers.
func NewProviderManager(endpoint oauth2.Endpoint, httpClient *http.Client, opts ...dropbox.Option) *ProviderManager {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	pm := &ProviderManager{
		endpoint:   endpoint,
		httpClient: httpClient,
	}
	pm.factory = func(ctx context.Context, ts oauth2.TokenSource) (domain.Provider, error) {
		return dropbox.NewProvider(dropbox.NewClient(ctx, ts, pm.httpClient), opts...), nil
	}
	return pm
}

// WithFactory replaces how providers are built.
func (pm *ProviderManager) WithFactory(factory ProviderFactory) *ProviderManager {
	pm.factory = factory
	return pm
}

// Context returns ctx carrying the manager's HTTP client for oauth2 calls.
func (pm *ProviderManager) Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, pm.httpClient)
}

func (pm *ProviderManager) NewFlow(appKey, appSecret string) (*auth.Flow, error) {
	return auth.NewFlow(appKey, appSecret, pm.endpoint)
}

// Connect builds a provider for token. Refreshed tokens are written to repo
// unless it is nil.
func (pm *ProviderManager) Connect(ctx context.Context, flow *auth.Flow, token *oauth2.Token, repo domain.SettingsRepository) (domain.Provider, error) {
	ctx = pm.Context(ctx)

	ts, err := auth.NewTokenSource(ctx, flow, token, repo)
	if err != nil {
		return nil, err
	}

	provider, err := pm.factory(ctx, ts)
	if err != nil {
		logger.LogError("CREATE_PROVIDER", string(domain.ProviderDropbox), err)
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	return provider, nil
}

// ConnectStored builds a provider from the stored record. The flow is
// optional: without app key and secret the access token is used as is.
func (pm *ProviderManager) ConnectStored(ctx context.Context, settings domain.Settings, repo domain.SettingsRepository) (domain.Provider, error) {
	token := auth.TokenFromSettings(settings)
	if token == nil {
		return nil, domain.ErrNotAuthenticated
	}

	flow, err := pm.NewFlow(settings.Get(domain.KeyAppKey), settings.Get(domain.KeyAppSecret))
	if err != nil {
		logger.Log("Auth: No stored app credentials, using the access token without refresh")
		flow = nil
	}

	return pm.Connect(ctx, flow, token, repo)
}
