package model

// NotificationSettings gates the prayer alerts.
type NotificationSettings struct {
	Enabled bool `json:"enabled"`
	Sound   bool `json:"sound"`
}

// DefaultNotificationSettings has alerts and sound switched on.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{Enabled: true, Sound: true}
}
