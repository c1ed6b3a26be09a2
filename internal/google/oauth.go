// Package google reads calendars and task lists on behalf of a user and
// manages their OAuth tokens.
package google

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/dukerupert/famorg/internal/apperr"
)

var Scopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/calendar.readonly",
	"https://www.googleapis.com/auth/tasks",
}

// NewOAuthConfig returns the web-flow configuration for the Google endpoint.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     googleauth.Endpoint,
	}
}

// Token is the stored form of a user's OAuth token.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       *time.Time
}

func (t Token) toOAuth2() *oauth2.Token {
	tok := &oauth2.Token{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, TokenType: "Bearer"}
	if t.Expiry != nil {
		tok.Expiry = *t.Expiry
	}
	return tok
}

func fromOAuth2(tok *oauth2.Token) Token {
	out := Token{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		out.Expiry = &exp
	}
	return out
}

// TokenRefresher exchanges a refresh token for a fresh access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, tok Token) (Token, error)
}

// Profile is the signed-in user's identity.
type Profile struct {
	ID    string
	Email string
	Name  string
}

// Authenticator runs the login code exchange and token refresh. Every call to
// the identity endpoint is bounded by timeout.
type Authenticator struct {
	cfg        *oauth2.Config
	timeout    time.Duration
	httpClient *http.Client
}

func NewAuthenticator(cfg *oauth2.Config, timeout time.Duration) *Authenticator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Authenticator{cfg: cfg, timeout: timeout, httpClient: &http.Client{Timeout: timeout}}
}

// bound attaches the bounded HTTP client and deadline used by oauth2.
func (a *Authenticator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	return context.WithTimeout(ctx, a.timeout)
}

func (a *Authenticator) AuthCodeURL(state string) string {
	return a.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and looks up the profile.
func (a *Authenticator) Exchange(ctx context.Context, code string) (Token, *Profile, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()

	tok, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		return Token{}, nil, apperr.Unavailable("google", fmt.Errorf("exchange code: %w", err))
	}

	svc, err := googleoauth.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, a.cfg.TokenSource(ctx, tok))))
	if err != nil {
		return Token{}, nil, fmt.Errorf("create userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Token{}, nil, apperr.Unavailable("google", fmt.Errorf("fetch userinfo: %w", err))
	}
	return fromOAuth2(tok), &Profile{ID: info.Id, Email: info.Email, Name: info.Name}, nil
}

// Refresh forces a refresh-token grant. The returned token keeps the old
// refresh token when the endpoint does not issue a new one.
func (a *Authenticator) Refresh(ctx context.Context, tok Token) (Token, error) {
	if tok.RefreshToken == "" {
		return Token{}, apperr.Invalid("no_refresh_token", "no refresh token stored")
	}
	ctx, cancel := a.bound(ctx)
	defer cancel()

	stale := tok.toOAuth2()
	stale.AccessToken = ""
	fresh, err := a.cfg.TokenSource(ctx, stale).Token()
	if err != nil {
		return Token{}, apperr.Unavailable("google", fmt.Errorf("refresh token: %w", err))
	}
	out := fromOAuth2(fresh)
	if out.RefreshToken == "" {
		out.RefreshToken = tok.RefreshToken
	}
	return out, nil
}
