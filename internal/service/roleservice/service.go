package roleservice

import (
	"context"
	"errors"

	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/domain"
	apperror "github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/errors"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/logger"
)

// RoleService implementa a leitura de rol, autorização e troca de rol.
type RoleService struct {
	UserRepo domain.UserRepository
	// Roles que podem executar a troca de rol. Configurável: por padrão
	// premium e admin (comportamento original); em modo estrito, só admin.
	AllowedActors []domain.Role
	Logger        logger.Logger
}

// NewService cria uma nova instância do RoleService.
// adminOnly restringe a troca de rol a atores "admin".
func NewService(repo domain.UserRepository, adminOnly bool, log logger.Logger) *RoleService {
	allowed := []domain.Role{domain.RolePremium, domain.RoleAdmin}
	if adminOnly {
		allowed = []domain.Role{domain.RoleAdmin}
	}

	return &RoleService{
		UserRepo:      repo,
		AllowedActors: allowed,
		Logger:        log,
	}
}

// GetRole retorna o rol atual do usuário.
func (s *RoleService) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// Authorize verifica se o rol do usuário está na lista de roles permitidos.
// Retorna nil (Allowed) ou ForbiddenError; o chamador DEVE abortar no erro.
// Um ator inexistente também é Forbidden.
func (s *RoleService) Authorize(ctx context.Context, userID string, allowed ...domain.Role) error {
	role, err := s.GetRole(ctx, userID)
	if err != nil {
		var notFoundErr *apperror.NotFoundError
		if errors.As(err, &notFoundErr) {
			return apperror.NewForbiddenError("Acceso no autorizado")
		}
		return err
	}

	for _, allowedRole := range allowed {
		if role == allowedRole {
			return nil
		}
	}

	s.Logger.Info("Autorização negada.", map[string]interface{}{"user_id": userID, "role": string(role)})
	return apperror.NewForbiddenError("Acceso no autorizado")
}

// ChangeRole aplica newRole ao usuário alvo em nome do ator.
// A autorização do ator é verificada ANTES de qualquer mutação e a rejeição
// aborta o fluxo. Apenas "user" e "premium" são atribuíveis.
func (s *RoleService) ChangeRole(ctx context.Context, actorUserID string, targetUserID string, newRole domain.Role) (domain.User, error) {
	// 1. Autorizar o ator (a rejeição interrompe o fluxo aqui)
	if err := s.Authorize(ctx, actorUserID, s.AllowedActors...); err != nil {
		return domain.User{}, err
	}

	// 2. Validar o novo rol
	if !newRole.IsAssignable() {
		return domain.User{}, apperror.NewValidationError(`Rol no válido. Use "user" o "premium".`)
	}

	// 3. Aplicar a mutação (NotFound se o alvo não existir)
	updated, err := s.UserRepo.UpdateRole(ctx, targetUserID, newRole)
	if err != nil {
		return domain.User{}, err
	}

	s.Logger.Info("Rol de usuário atualizado.", map[string]interface{}{
		"actor_id":  actorUserID,
		"target_id": targetUserID,
		"new_role":  string(newRole),
	})
	return updated, nil
}
