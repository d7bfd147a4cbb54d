package ecole42

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/bnema/schoolsync/internal/ports"
)

const (
	DefaultBaseURL = "https://api.intra.42.fr/v2"
	DefaultAuthURL = "https://api.intra.42.fr/oauth"
)

// Token is the credential stored in the secret store for an ecole42 account.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

func TokenFromOAuth2(token *oauth2.Token) Token {
	return Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.UTC(),
	}
}

func (t Token) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
}

func (t Token) Encode() (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode oauth token: %w", err)
	}
	return string(raw), nil
}

func DecodeToken(raw string) (Token, error) {
	var token Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return Token{}, fmt.Errorf("decode oauth token: %w", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return Token{}, fmt.Errorf("oauth token missing access_token")
	}
	return token, nil
}

// OAuthConfig returns the intra OAuth2 application config. authURL is the
// base that serves /authorize and /token.
func OAuthConfig(clientID, clientSecret, authURL, redirectURL string) *oauth2.Config {
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	authURL = strings.TrimRight(authURL, "/")

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"public"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL + "/authorize",
			TokenURL:  authURL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// persistingTokenSource writes refreshed tokens back to the secret store.
type persistingTokenSource struct {
	base      oauth2.TokenSource
	secrets   ports.SecretStore
	secretRef string
	log       logrus.FieldLogger

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token.AccessToken == s.last {
		return token, nil
	}
	s.last = token.AccessToken

	raw, err := TokenFromOAuth2(token).Encode()
	if err == nil {
		err = s.secrets.Put(context.Background(), s.secretRef, raw)
	}
	if err != nil {
		s.log.WithError(err).Warn("Failed to persist refreshed token")
	}

	return token, nil
}
