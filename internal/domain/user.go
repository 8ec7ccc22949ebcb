package domain

import "time"

// User es la identidad remota. Su ciclo de vida pertenece al proveedor de identidad.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name,omitempty"`
	PasswordHash string     `json:"-"`
	OtpCodeHash  string     `json:"-"`
	OtpExpiresAt *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Session describe quién origina una operación. La sesión cero no está autenticada.
type Session struct {
	UserID string
	Email  string
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}
