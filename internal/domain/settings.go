package domain

import "time"

const (
	DefaultNotificationHour   = 21
	DefaultNotificationMinute = 0
)

// Settings son las preferencias del recordatorio diario.
type Settings struct {
	NotificationsEnabled bool `json:"notifications_enabled"`
	NotificationHour     int  `json:"notification_hour"`
	NotificationMinute   int  `json:"notification_minute"`
}

func DefaultSettings() Settings {
	return Settings{
		NotificationsEnabled: false,
		NotificationHour:     DefaultNotificationHour,
		NotificationMinute:   DefaultNotificationMinute,
	}
}

// TagCount cuenta apariciones de una etiqueta.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats agrega el diario completo.
type Stats struct {
	Total           int           `json:"total"`
	Lucid           int           `json:"lucid"`
	NonLucid        int           `json:"non_lucid"`
	AverageDuration time.Duration `json:"-"`
	AverageMinutes  int64         `json:"average_minutes"`
	AverageLabel    string        `json:"average_duration"`
	TopTags         []TagCount    `json:"top_tags"`
}

// CloudDream es el documento remoto de un sueño dentro de la colección del usuario.
type CloudDream struct {
	DocID     string    `json:"doc_id"`
	UserID    string    `json:"user_id"`
	Dream     Dream     `json:"dream"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
