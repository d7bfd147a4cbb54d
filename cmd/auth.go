package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/schoolsync/internal/adapters/providers/ecole42"
	"github.com/bnema/schoolsync/internal/application"
	"github.com/bnema/schoolsync/internal/domain"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage account authentication",
	}

	cmd.AddCommand(newAuthSetCmd(app), newAuthRemoveCmd(app))

	return cmd
}

func newAuthSetCmd(app *app) *cobra.Command {
	var accountID string
	var method string
	var secretKey string
	var secretValue string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set account authentication",
		RunE: func(cmd *cobra.Command, _ []string) error {
			authMethod, err := parseAuthMethod(method)
			if err != nil {
				return err
			}
			resolvedAccountID, err := resolveAccountID(cmd.Context(), app, accountID)
			if err != nil {
				return err
			}
			if secretKey == "" {
				secretKey = fmt.Sprintf("%s://%s/%s", domain.ServiceEcole42, resolvedAccountID, authMethod)
			}
			value, err := normalizeSecretValue(secretValue)
			if err != nil {
				return err
			}

			if err := app.service.SetAuth(cmd.Context(), application.SetAuthCommand{
				ID:          resolvedAccountID,
				Method:      authMethod,
				SecretKey:   secretKey,
				SecretValue: value,
			}); err != nil {
				return err
			}
			app.resolver.Forget(secretKey)

			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "0", "Account ID (0 or empty auto-assigns next: 1,2,...)")
	cmd.Flags().StringVar(&method, "method", "", "Auth method (oauth|token)")
	cmd.Flags().StringVar(&secretKey, "secret-key", "", "Secret-store key (defaults to ecole42://<account>/<method>)")
	cmd.Flags().StringVar(&secretValue, "secret-value", "", "Token JSON or a bare access token")
	_ = cmd.MarkFlagRequired("method")
	_ = cmd.MarkFlagRequired("secret-value")

	return cmd
}

func newAuthRemoveCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove account authentication",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := app.service.GetStatus(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}
			if err := app.service.RemoveAuth(cmd.Context(), domain.AccountID(accountID)); err != nil {
				return err
			}
			app.resolver.Forget(status.Account.Auth.SecretRef)

			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func parseAuthMethod(raw string) (domain.AuthMethod, error) {
	method := domain.AuthMethod(raw)
	switch method {
	case domain.AuthMethodOAuth:
		return method, nil
	case domain.AuthMethodToken:
		return method, nil
	default:
		return "", fmt.Errorf("unsupported auth method %q", raw)
	}
}

// normalizeSecretValue stores bare access tokens in the token JSON shape.
func normalizeSecretValue(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("secret value is empty")
	}
	if json.Valid([]byte(value)) {
		if _, err := ecole42.DecodeToken(value); err != nil {
			return "", err
		}
		return value, nil
	}

	return ecole42.Token{AccessToken: value}.Encode()
}
