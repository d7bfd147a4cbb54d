package domain

type AuthMethod string

const (
	AuthMethodOAuth AuthMethod = "oauth"
	AuthMethodToken AuthMethod = "token"
)

type Auth struct {
	Method AuthMethod
	// SecretRef points to a secret-store entry, typically in "service://account/path" form.
	SecretRef string
}
