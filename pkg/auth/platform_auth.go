// Package auth checks Domo credentials before a run
package auth

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
)

// Messages surfaced to the user through AuthNotifier.AuthenticationFailed
const (
	MsgInvalidToken       = "The access token you entered is invalid. Please try again with a access token."
	MsgInvalidInstance    = "Your provided instance did not pass regex validation. Ensure you only include the instance name, without https:// and without .domo.com"
	MsgInvalidCredentials = "Your provided credentials did not pass regex validation. Please check your access token format and try again."
	MsgInvalidClient      = "The client credentials were rejected. Check the client id, client secret and token URL and try again."
)

// TimezonesPath is a cheap authenticated endpoint used to check credentials
const TimezonesPath = "/dataprocessing/v1/dataflows/timezones"

var (
	accessTokenPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	instancePattern    = regexp.MustCompile(`^\w[\w.-]+\w$`)
)

// ValidAccessToken reports whether token has the developer token shape
func ValidAccessToken(token string) bool {
	return accessTokenPattern.MatchString(token)
}

// ValidInstance reports whether instance is a bare instance name
func ValidInstance(instance string) bool {
	return instancePattern.MatchString(instance) &&
		!strings.Contains(strings.ToLower(instance), "domo.com")
}

// Authenticator verifies an account against the Domo API
type Authenticator struct {
	transport core.Transport
	logger    *zap.Logger
	baseURL   string
}

// Option customizes an Authenticator
type Option func(*Authenticator)

// WithBaseURL replaces https://<instance>.domo.com/api, e.g. for a proxy
func WithBaseURL(baseURL string) Option {
	return func(a *Authenticator) {
		a.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewAuthenticator creates an authenticator that sends requests through transport
func NewAuthenticator(transport core.Transport, logger *zap.Logger, opts ...Option) *Authenticator {
	a := &Authenticator{
		transport: transport,
		logger:    logger.With(zap.String("component", "authenticator")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate validates the account format, then calls the API. Exactly
// one notifier callback fires. The returned error mirrors a failure.
func (a *Authenticator) Authenticate(ctx context.Context, account core.Account, notifier core.AuthNotifier) error {
	if !ValidAccessToken(account.AccessToken) {
		return a.fail(notifier, MsgInvalidCredentials, nil)
	}
	if !ValidInstance(account.Instance) {
		return a.fail(notifier, MsgInvalidInstance, nil)
	}

	return a.check(ctx, account.Instance, map[string]string{
		"X-DOMO-Developer-Token": account.AccessToken,
	}, notifier, MsgInvalidToken)
}

// AuthenticateBearer checks an OAuth2 account. The transport must already
// authorize requests with a bearer token, so only the instance is checked
// locally; a token endpoint failure surfaces as a transport error.
func (a *Authenticator) AuthenticateBearer(ctx context.Context, instance string, notifier core.AuthNotifier) error {
	if !ValidInstance(instance) {
		return a.fail(notifier, MsgInvalidInstance, nil)
	}
	return a.check(ctx, instance, nil, notifier, MsgInvalidClient)
}

func (a *Authenticator) check(ctx context.Context, instance string, headers map[string]string, notifier core.AuthNotifier, rejected string) error {
	resp, err := a.transport.Do(ctx, &core.Request{
		Method:  http.MethodGet,
		URL:     a.apiBase(instance) + TimezonesPath,
		Headers: headers,
	})
	if err != nil {
		return a.fail(notifier, rejected, err)
	}
	if resp.StatusCode != http.StatusOK {
		return a.fail(notifier, rejected,
			fmt.Errorf("credential check returned HTTP %d", resp.StatusCode)).WithStatus(resp.StatusCode)
	}

	a.logger.Info("authentication succeeded", zap.String("instance", instance))
	notifier.AuthenticationSuccess()
	return nil
}

func (a *Authenticator) apiBase(instance string) string {
	if a.baseURL != "" {
		return a.baseURL
	}
	return fmt.Sprintf("https://%s.domo.com/api", instance)
}

func (a *Authenticator) fail(notifier core.AuthNotifier, message string, cause error) *errors.Error {
	a.logger.Warn("authentication failed", zap.String("reason", message), zap.Error(cause))
	notifier.AuthenticationFailed(message)

	if cause != nil {
		return errors.Wrap(cause, errors.ErrorTypeAuthentication, message)
	}
	return errors.New(errors.ErrorTypeAuthentication, message).WithStatus(http.StatusUnauthorized)
}
