package application

import (
	"github.com/bnema/schoolsync/internal/domain"
)

type AddAccountCommand struct {
	ID                   domain.AccountID
	Name                 string
	Service              domain.ServiceID
	External             bool
	NotificationsEnabled bool
	RemoteUserID         string
	Campus               string
}

type SetAuthCommand struct {
	ID          domain.AccountID
	Method      domain.AuthMethod
	SecretKey   string
	SecretValue string
}
