// Package auth implements the GitHub OAuth web flow and browser sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/neilberkman/escriba/internal/core/errs"
)

// DefaultOAuthURL is github.com's OAuth host
const DefaultOAuthURL = "https://github.com"

// Scopes requested at login: repo contents, refs and pull requests
var Scopes = []string{"repo", "read:user"}

// OAuth runs the authorization code flow against a GitHub OAuth App
type OAuth struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // defaults to DefaultOAuthURL
	RedirectURL  string
	HTTPClient   *http.Client
}

// Enabled reports whether the app credentials are configured
func (o *OAuth) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

func (o *OAuth) baseURL() string {
	if o.BaseURL == "" {
		return DefaultOAuthURL
	}
	return strings.TrimSuffix(o.BaseURL, "/")
}

// NewState returns a random value for the state parameter
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// config is the oauth2 view of the app. A custom BaseURL (GitHub Enterprise
// or a test server) replaces the github.com endpoint.
func (o *OAuth) config() *oauth2.Config {
	endpoint := endpoints.GitHub
	if base := o.baseURL(); base != DefaultOAuthURL {
		endpoint = oauth2.Endpoint{
			AuthURL:  base + "/login/oauth/authorize",
			TokenURL: base + "/login/oauth/access_token",
		}
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURL:  o.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     endpoint,
	}
}

// AuthorizeURL is where the browser is sent to log in
func (o *OAuth) AuthorizeURL(state string) string {
	return o.config().AuthCodeURL(state)
}

// Exchange trades the callback code for an access token
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	const op = "github.oauth_exchange"

	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	token, err := o.config().Exchange(context.WithValue(ctx, oauth2.HTTPClient, hc), code)
	if err != nil {
		return "", exchangeError(ctx, op, err)
	}
	if token.AccessToken == "" {
		return "", errs.New(errs.KindProviderError, op, http.StatusOK, "response has no access token")
	}
	return token.AccessToken, nil
}

// exchangeError maps a token endpoint failure. GitHub reports bad codes with
// 200 and an error field.
func exchangeError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	var transport *url.Error
	if errors.As(err, &transport) {
		return errs.Network(op, err)
	}
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return errs.New(errs.KindProviderError, op, http.StatusOK, err.Error())
	}
	status := http.StatusOK
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	if re.ErrorCode != "" {
		msg := re.ErrorCode
		if re.ErrorDescription != "" {
			msg += ": " + re.ErrorDescription
		}
		return errs.New(errs.KindUnauthorized, op, status, msg)
	}
	msg := strings.TrimSpace(string(re.Body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return errs.FromStatus(op, status, msg)
}
