package domain

import "time"

// Session é o registro efêmero, mantido no servidor, que correlaciona um
// navegador a um usuário autenticado. Destruído no logout ou por expiração.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
