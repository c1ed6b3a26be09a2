package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/famorg/internal/google"
	"github.com/dukerupert/famorg/internal/store"
)

// Tokens hands out usable Google tokens, refreshing and persisting expired
// ones first. The API process uses it for calendar listing; the orchestrator
// uses it before every Google job.
type Tokens struct {
	users     *store.UserStore
	refresher google.TokenRefresher
	now       func() time.Time
	logger    *slog.Logger
}

func NewTokens(users *store.UserStore, refresher google.TokenRefresher, logger *slog.Logger) *Tokens {
	return &Tokens{users: users, refresher: refresher, now: time.Now, logger: logger}
}

// ForUser returns a usable token for userID or an error wrapping ErrNoToken.
func (t *Tokens) ForUser(ctx context.Context, userID int64) (google.Token, error) {
	return t.get(ctx, userID, t.logger.With("user_id", userID))
}

func (t *Tokens) get(ctx context.Context, userID int64, logger *slog.Logger) (google.Token, error) {
	creds, err := t.users.GetCredentials(userID)
	if err != nil {
		return google.Token{}, fmt.Errorf("load credentials: %w", err)
	}
	if creds.GoogleAccessToken == "" && creds.GoogleRefreshToken == "" {
		return google.Token{}, ErrNoToken
	}
	tok := google.Token{
		AccessToken:  creds.GoogleAccessToken,
		RefreshToken: creds.GoogleRefreshToken,
		Expiry:       creds.GoogleTokenExpiry,
	}
	if !creds.Expired(t.now()) {
		return tok, nil
	}

	fresh, err := t.refresher.Refresh(ctx, tok)
	if err != nil {
		return google.Token{}, fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	if err := t.users.SaveGoogleToken(userID, fresh.AccessToken, fresh.RefreshToken, fresh.Expiry); err != nil {
		return google.Token{}, fmt.Errorf("save token: %w", err)
	}
	logger.Info("google token refreshed")
	return fresh, nil
}
