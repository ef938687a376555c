package domain

import (
	"context"
	"time"
)

// User representa a entidade do usuário no sistema.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Surname        string    `json:"surname"`
	Age            int       `json:"age"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"` // Oculta o hash da senha no JSON de resposta
	Role           Role      `json:"role"`
	LastConnection time.Time `json:"last_connection"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Role é a enumeração fechada dos papéis de usuário.
// Valores fora deste conjunto nunca devem chegar ao storage.
type Role string

const (
	RoleUser    Role = "user"
	RolePremium Role = "premium"
	RoleAdmin   Role = "admin"
)

// IsValid informa se o valor pertence ao conjunto {user, premium, admin}.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RolePremium, RoleAdmin:
		return true
	}
	return false
}

// IsAssignable informa se o valor pode ser atribuído via troca de rol.
// A troca de rol só aceita "user" e "premium"; "admin" nunca é atribuível por ela.
func (r Role) IsAssignable() bool {
	return r == RoleUser || r == RolePremium
}

// UserRegistration representa o payload de entrada para o registro.
type UserRegistration struct {
	Name     string `json:"nombre"`
	Surname  string `json:"apellido"`
	Age      int    `json:"edad"`
	Email    string `json:"email"`
	Password string `json:"pass"`
}

// UserRepository define o contrato de persistência para a entidade User.
type UserRepository interface {
	Save(ctx context.Context, user User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	UpdateLastConnection(ctx context.Context, id string, at time.Time) error
	UpdateRole(ctx context.Context, id string, role Role) (User, error)
}

// AuthService define o contrato de autenticação (registro, login, logout).
type AuthService interface {
	Register(ctx context.Context, registration UserRegistration) (User, error)
	Login(ctx context.Context, email string, password string) (User, Session, string, error)
	Logout(ctx context.Context, sess Session) error
}

// RoleService define o contrato de autorização e troca de rol.
type RoleService interface {
	GetRole(ctx context.Context, userID string) (Role, error)
	Authorize(ctx context.Context, userID string, allowed ...Role) error
	ChangeRole(ctx context.Context, actorUserID string, targetUserID string, newRole Role) (User, error)
}
