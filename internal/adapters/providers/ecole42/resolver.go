package ecole42

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/logging"
	"github.com/bnema/schoolsync/internal/ports"
)

type Config struct {
	BaseURL      string
	AuthURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	// Limiter is shared by every client the resolver builds. Defaults to
	// 2 requests per second with a burst of 2.
	Limiter *rate.Limiter
}

// Resolver builds per-account clients from the credentials in the secret
// store. Clients are cached by secret reference for as long as the stored
// secret is unchanged.
type Resolver struct {
	cfg     Config
	secrets ports.SecretStore
	log     logrus.FieldLogger

	mu      sync.Mutex
	clients map[string]cachedClient
}

type cachedClient struct {
	raw    string
	client *Client
}

var _ ports.ServiceClientResolver = (*Resolver)(nil)

func NewResolver(cfg Config, secrets ports.SecretStore, logger logrus.FieldLogger) *Resolver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Limiter == nil {
		cfg.Limiter = rate.NewLimiter(rate.Limit(2), 2)
	}

	return &Resolver{
		cfg:     cfg,
		secrets: secrets,
		log:     logging.Component(logger, logging.ComponentProvider).WithField("service", domain.ServiceEcole42),
		clients: map[string]cachedClient{},
	}
}

func (r *Resolver) Resolve(ctx context.Context, account domain.Account) (ports.ServiceClient, error) {
	if account.Service != "" && account.Service != domain.ServiceEcole42 {
		return nil, fmt.Errorf("%s: %w", account.Service, domain.ErrUnsupportedService)
	}

	secretRef := strings.TrimSpace(account.Auth.SecretRef)
	if secretRef == "" {
		return nil, fmt.Errorf("account %s: auth secret reference is empty", account.ID)
	}

	// Another process may have logged in again since the client was built.
	raw, err := r.secrets.Get(ctx, secretRef)
	if err != nil {
		return nil, fmt.Errorf("account %s: load auth secret: %w", account.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.clients[secretRef]; ok {
		if cached.raw == raw {
			return cached.client, nil
		}
		r.log.WithField("account", account.ID).Debug("Auth secret changed, rebuilding client")
	}

	token, err := DecodeToken(raw)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account.ID, err)
	}

	client := &Client{
		baseURL: r.cfg.BaseURL,
		http:    r.httpClient(ctx, secretRef, token),
		limiter: r.cfg.Limiter,
		log:     r.log,
	}
	client.expired = func() { r.drop(secretRef, client) }
	r.clients[secretRef] = cachedClient{raw: raw, client: client}

	return client, nil
}

// Forget drops the cached client for secretRef, e.g. after a new login.
func (r *Resolver) Forget(secretRef string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, secretRef)
}

// drop forgets client unless it has already been replaced.
func (r *Resolver) drop(secretRef string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.clients[secretRef]; ok && cached.client == client {
		delete(r.clients, secretRef)
	}
}

func (r *Resolver) httpClient(ctx context.Context, secretRef string, token Token) *http.Client {
	base := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, r.cfg.HTTPClient)

	var source oauth2.TokenSource = oauth2.StaticTokenSource(token.OAuth2())
	if r.cfg.ClientID != "" && token.RefreshToken != "" {
		cfg := OAuthConfig(r.cfg.ClientID, r.cfg.ClientSecret, r.cfg.AuthURL, "")
		source = oauth2.ReuseTokenSource(token.OAuth2(), &persistingTokenSource{
			base:      cfg.TokenSource(base, token.OAuth2()),
			secrets:   r.secrets,
			secretRef: secretRef,
			log:       r.log,
			last:      token.AccessToken,
		})
	}

	return oauth2.NewClient(base, source)
}
