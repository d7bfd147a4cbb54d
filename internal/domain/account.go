package domain

type AccountID string

// ServiceID names the school platform an account authenticates against.
type ServiceID string

const ServiceEcole42 ServiceID = "ecole42"

type Account struct {
	ID              AccountID
	Name            string
	Service         ServiceID
	IsExternal      bool
	Personalization Personalization
	Metadata        AccountMetadata
	Auth            Auth
}

type AccountMetadata struct {
	RemoteUserID string
	Campus       string
	SecretRef    string
}

type Personalization struct {
	Notifications NotificationSettings
}

type NotificationSettings struct {
	Enabled bool
}

// IsPrimary reports whether the account is a directly authenticated session
// rather than a linked identity.
func (a Account) IsPrimary() bool {
	return !a.IsExternal
}

func (a Account) NotificationsEnabled() bool {
	return a.Personalization.Notifications.Enabled
}

func PrimaryAccounts(accounts []Account) []Account {
	primary := make([]Account, 0, len(accounts))
	for _, account := range accounts {
		if account.IsPrimary() {
			primary = append(primary, account)
		}
	}
	return primary
}
