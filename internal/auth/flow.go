package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/johanforsgren/dbxutil/internal/logger"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL  = "https://www.dropbox.com/oauth2/authorize"
	DefaultTokenURL = "https://api.dropboxapi.com/oauth2/token"
)

// DropboxEndpoint sends the app secret in the form body, as the no-redirect
// flow expects.
var DropboxEndpoint = oauth2.Endpoint{
	AuthURL:   DefaultAuthURL,
	TokenURL:  DefaultTokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

type Flow struct {
	config *oauth2.Config
}

func NewFlow(appKey, appSecret string, endpoint oauth2.Endpoint) (*Flow, error) {
	appKey = strings.TrimSpace(appKey)
	appSecret = strings.TrimSpace(appSecret)
	if appKey == "" || appSecret == "" {
		return nil, domain.ErrMissingCredentials
	}

	return &Flow{
		config: &oauth2.Config{
			ClientID:     appKey,
			ClientSecret: appSecret,
			Endpoint:     endpoint,
		},
	}, nil
}

// AuthURL is the consent page. token_access_type=offline asks for a refresh
// token alongside the short-lived access token.
func (f *Flow) AuthURL() string {
	return f.config.AuthCodeURL("", oauth2.SetAuthURLParam("token_access_type", "offline"))
}

func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrMissingCode
	}

	logger.Log("Auth: Exchanging authorization code for app %s", f.config.ClientID)
	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		logger.LogError("AUTH_EXCHANGE", f.config.Endpoint.TokenURL, err)
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	logger.Log("Auth: Received access token %s (refresh token: %v)", logger.Redact(token.AccessToken), token.RefreshToken != "")
	return token, nil
}

func (f *Flow) AppKey() string {
	return f.config.ClientID
}

// TokenFromSettings rebuilds a token from the record, or returns nil when no
// access token is stored. Expiry is not persisted, so a token that can be
// refreshed is marked stale and gets refreshed on first use.
func TokenFromSettings(settings domain.Settings) *oauth2.Token {
	if !settings.Has(domain.KeyAccessToken) {
		return nil
	}

	token := &oauth2.Token{
		AccessToken:  settings.Get(domain.KeyAccessToken),
		RefreshToken: settings.Get(domain.KeyRefreshToken),
		TokenType:    "bearer",
	}
	if token.RefreshToken != "" {
		token.Expiry = time.Unix(1, 0)
	}
	return token
}

// ApplyToken returns a copy of settings holding the token's credentials.
func ApplyToken(settings domain.Settings, token *oauth2.Token) domain.Settings {
	out := settings.Clone()
	if token == nil {
		return out
	}
	out.Set(domain.KeyAccessToken, token.AccessToken)
	if token.RefreshToken != "" {
		out.Set(domain.KeyRefreshToken, token.RefreshToken)
	}
	return out
}
