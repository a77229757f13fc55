package clients

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ajitpratap0/nebula-domo/pkg/config"
)

// OAuth2Config describes a client credentials grant
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// OAuth2ConfigFrom extracts the grant settings from an account
func OAuth2ConfigFrom(account *config.AccountConfig) *OAuth2Config {
	return &OAuth2Config{
		ClientID:     account.ClientID,
		ClientSecret: account.ClientSecret,
		TokenURL:     account.OAuthTokenURL(),
		Scopes:       account.Scopes,
	}
}

// NewTokenSource returns a cached, auto-refreshing token source. The token
// endpoint is called with tokenClient, or http.DefaultClient when nil.
func NewTokenSource(ctx context.Context, cfg *OAuth2Config, tokenClient *http.Client) oauth2.TokenSource {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	if tokenClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, tokenClient)
	}
	return cc.TokenSource(ctx)
}

// NewTransport builds the transport for an account, adding bearer tokens
// when the account uses the oauth2 auth type
func NewTransport(ctx context.Context, cfg *config.BaseConfig, log *zap.Logger, opts ...Option) *HTTPClient {
	if cfg.Account.IsOAuth2() {
		ts := NewTokenSource(ctx, OAuth2ConfigFrom(&cfg.Account), nil)
		opts = append(opts, WithTokenSource(ts))
	}
	return NewHTTPClient(HTTPConfigFrom(cfg), log, opts...)
}
