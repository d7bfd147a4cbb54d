package domain

const StatusBackgroundNotificationID = "statusBackground"

type Notification struct {
	ID      string
	Title   string
	Body    string
	Channel string
	// Progress marks an indeterminate progress notification.
	Progress bool
}
