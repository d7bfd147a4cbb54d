package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	authadapter "github.com/bnema/schoolsync/internal/adapters/auth"
	"github.com/bnema/schoolsync/internal/adapters/providers/ecole42"
	"github.com/bnema/schoolsync/internal/application"
	"github.com/bnema/schoolsync/internal/domain"
)

var errClientIDRequired = errors.New("ecole42.client_id is not configured (set SCHOOLSYNC_ECOLE42_CLIENT_ID)")

func newLoginCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start account login flows",
	}

	cmd.AddCommand(newLoginEcole42Cmd(app))

	return cmd
}

func newLoginEcole42Cmd(app *app) *cobra.Command {
	var accountID string
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "ecole42",
		Short: "Authenticate an account against the 42 intra in the browser",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolvedAccountID, err := resolveAccountID(cmd.Context(), app, accountID)
			if err != nil {
				return err
			}
			cfg := app.browserLogin
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			return runBrowserLogin(cmd, app, cfg, resolvedAccountID)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "0", "Account ID (0 or empty auto-assigns next: 1,2,...)")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Callback server address (defaults to login.listen)")

	return cmd
}

func runBrowserLogin(cmd *cobra.Command, app *app, login browserLoginConfig, accountID domain.AccountID) error {
	if login.ClientID == "" {
		return errClientIDRequired
	}

	pkce := authadapter.NewPKCEPair()
	state, err := authadapter.NewState()
	if err != nil {
		return fmt.Errorf("generate oauth state: %w", err)
	}

	server, err := authadapter.StartCallbackServer(login.ListenAddr, state)
	if err != nil {
		return fmt.Errorf("start callback server: %w", err)
	}

	oauthCfg := ecole42.OAuthConfig(login.ClientID, login.ClientSecret, login.AuthURL, server.RedirectURI())
	authURL, err := authadapter.AuthorizationURL(oauthCfg, state, pkce)
	if err != nil {
		_ = server.Close()
		return fmt.Errorf("build authorization url: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authenticate account %s:\n%s\n", accountID, authURL)

	code, err := server.WaitForCode(cmd.Context(), login.Timeout)
	if err != nil {
		return fmt.Errorf("wait for oauth callback: %w", err)
	}

	token, err := authadapter.Exchange(cmd.Context(), oauthCfg, code, pkce)
	if err != nil {
		return err
	}

	secretValue, err := ecole42.TokenFromOAuth2(token).Encode()
	if err != nil {
		return err
	}

	secretKey := fmt.Sprintf("%s://%s/%s", domain.ServiceEcole42, accountID, domain.AuthMethodOAuth)
	if err := app.service.SetAuth(cmd.Context(), application.SetAuthCommand{
		ID:          accountID,
		Method:      domain.AuthMethodOAuth,
		SecretKey:   secretKey,
		SecretValue: secretValue,
	}); err != nil {
		return fmt.Errorf("save account oauth auth: %w", err)
	}
	app.resolver.Forget(secretKey)

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Authenticated account %s\n", accountID)
	return nil
}
