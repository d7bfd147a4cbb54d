package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testConfig(authServer string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-123",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:4242/auth/callback",
		Scopes:       []string{"public"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   authServer + "/oauth/authorize",
			TokenURL:  authServer + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestAuthorizationURLIncludesStateAndPKCEChallenge(t *testing.T) {
	t.Parallel()

	pkce := NewPKCEPair()
	u, err := AuthorizationURL(testConfig("https://api.intra.42.fr"), "state-xyz", pkce)
	require.NoError(t, err)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "/oauth/authorize", parsed.Path)

	q := parsed.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "http://localhost:4242/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "public", q.Get("scope"))
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Equal(t, pkce.Challenge, q.Get("code_challenge"))
	assert.Equal(t, PKCEChallengeMethodS256, q.Get("code_challenge_method"))
}

func TestAuthorizationURLRejectsNonHTTPScheme(t *testing.T) {
	t.Parallel()

	_, err := AuthorizationURL(testConfig("ftp://auth.example.com"), "state-xyz", NewPKCEPair())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}

func TestAuthorizationURLRequiresStateAndVerifier(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://api.intra.42.fr")

	_, err := AuthorizationURL(cfg, "", NewPKCEPair())
	require.ErrorContains(t, err, "state is required")

	_, err = AuthorizationURL(cfg, "state", PKCEPair{})
	require.ErrorContains(t, err, "code verifier is required")
}

func TestNewPKCEPairIsRandom(t *testing.T) {
	t.Parallel()

	first := NewPKCEPair()
	second := NewPKCEPair()

	assert.NotEqual(t, first.Verifier, second.Verifier)
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(first.Verifier), first.Challenge)
}

func TestCallbackServerReturnsCodeOnSuccess(t *testing.T) {
	t.Parallel()

	server, err := StartCallbackServer("127.0.0.1:0", "expected-state")
	require.NoError(t, err)
	defer func() { _ = server.Close() }()

	resp, err := http.Get(server.RedirectURI() + "?code=auth-code&state=expected-state")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Authentication complete")

	code, err := server.WaitForCode(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "auth-code", code)
}

func TestCallbackServerReturnsErrorOnStateMismatch(t *testing.T) {
	t.Parallel()

	server, err := StartCallbackServer("127.0.0.1:0", "expected-state")
	require.NoError(t, err)
	defer func() { _ = server.Close() }()

	resp, err := http.Get(server.RedirectURI() + "?code=auth-code&state=wrong-state")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = server.WaitForCode(context.Background(), 2*time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStateMismatch))
}

func TestCallbackServerReportsOAuthError(t *testing.T) {
	t.Parallel()

	server, err := StartCallbackServer("127.0.0.1:0", "expected-state")
	require.NoError(t, err)
	defer func() { _ = server.Close() }()

	resp, err := http.Get(server.RedirectURI() + "?error=access_denied&error_description=denied&state=expected-state")
	require.NoError(t, err)
	_ = resp.Body.Close()

	_, err = server.WaitForCode(context.Background(), 2*time.Second)
	require.ErrorContains(t, err, "access_denied: denied")
}

func TestCallbackServerTimesOutWaitingForCallback(t *testing.T) {
	t.Parallel()

	server, err := StartCallbackServer("127.0.0.1:0", "expected-state")
	require.NoError(t, err)
	defer func() { _ = server.Close() }()

	_, err = server.WaitForCode(context.Background(), 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCallbackTimeout))
}

func TestCallbackServerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	server, err := StartCallbackServer("127.0.0.1:0", "expected-state")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = server.WaitForCode(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStartCallbackServerRequiresExpectedState(t *testing.T) {
	t.Parallel()

	_, err := StartCallbackServer("127.0.0.1:0", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingState))
}

func TestExchangeSendsVerifier(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "client-123", r.Form.Get("client_id"))
		assert.Equal(t, "http://localhost:4242/auth/callback", r.Form.Get("redirect_uri"))
		assert.Equal(t, "code-abc", r.Form.Get("code"))
		assert.Equal(t, "verifier-xyz", r.Form.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":7200}`))
	}))
	defer server.Close()

	token, err := Exchange(context.Background(), testConfig(server.URL), "code-abc", PKCEPair{Verifier: "verifier-xyz"})
	require.NoError(t, err)
	assert.Equal(t, "at", token.AccessToken)
	assert.Equal(t, "rt", token.RefreshToken)
	assert.False(t, token.Expiry.IsZero())
}

func TestExchangeReturnsErrorForFailureStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	_, err := Exchange(context.Background(), testConfig(server.URL), "code-abc", PKCEPair{Verifier: "verifier-xyz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token endpoint returned status 401")
}

func TestExchangeRequiresCode(t *testing.T) {
	t.Parallel()

	_, err := Exchange(context.Background(), testConfig("https://api.intra.42.fr"), "", PKCEPair{Verifier: "v"})
	require.ErrorContains(t, err, "authorization code is required")
}
