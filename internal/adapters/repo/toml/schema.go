package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	return checkVersion("accounts", s.Version)
}

func checkVersion(what string, version int) error {
	if version > currentSchemaVersion {
		return fmt.Errorf("unsupported %s schema version %d (current %d)", what, version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID              string                `toml:"id"`
	Name            string                `toml:"name"`
	Service         string                `toml:"service"`
	IsExternal      bool                  `toml:"is_external"`
	Personalization personalizationSchema `toml:"personalization"`
	Metadata        metadataSchema        `toml:"metadata"`
	Auth            authSchema            `toml:"auth"`
}

type personalizationSchema struct {
	Notifications notificationsSchema `toml:"notifications"`
}

type notificationsSchema struct {
	Enabled bool `toml:"enabled"`
}

type metadataSchema struct {
	RemoteUserID string `toml:"remote_user_id,omitempty"`
	Campus       string `toml:"campus,omitempty"`
	SecretRef    string `toml:"secret_ref"`
}

type authSchema struct {
	Method    string `toml:"method"`
	SecretRef string `toml:"secret_ref"`
}

type runtimeFileSchema struct {
	Version         int    `toml:"version"`
	ActiveAccountID string `toml:"active_account_id"`
	SwitchedAt      string `toml:"switched_at,omitempty"`
}

type flagsFileSchema struct {
	Version int      `toml:"version"`
	Defined []string `toml:"defined"`
}
