package authservice

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/domain"
	apperror "github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/errors"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/logger"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/session"
)

// AuthService implementa a lógica de negócio de registro, login e logout.
type AuthService struct {
	UserRepo domain.UserRepository
	Sessions session.Manager
	Logger   logger.Logger
}

// NewService cria uma nova instância do AuthService, injetando o Repositório
// e o gerenciador de sessões.
func NewService(repo domain.UserRepository, sessions session.Manager, log logger.Logger) *AuthService {
	return &AuthService{
		UserRepo: repo,
		Sessions: sessions,
		Logger:   log,
	}
}

// Register registra um novo usuário no sistema.
// Ele faz o hashing da senha e delega a unicidade do email à constraint do DB.
func (s *AuthService) Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error) {
	// 1. Validação Básica
	if registration.Email == "" || registration.Password == "" {
		return domain.User{}, apperror.NewValidationError("Email e senha são obrigatórios.")
	}
	if registration.Name == "" || registration.Surname == "" {
		return domain.User{}, apperror.NewValidationError("Nome e sobrenome são obrigatórios.")
	}

	// 2. Hashing da Senha
	// O hash salgado do bcrypt é o único formato que chega ao storage.
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}

	// 3. Criação do Objeto User
	newUser := domain.User{
		Name:         registration.Name,
		Surname:      registration.Surname,
		Age:          registration.Age,
		Email:        registration.Email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleUser, // Rol padrão na criação
	}

	// 4. Chamada ao Repositório para Persistência
	// Email duplicado chega aqui como ConflictError já tipado (23505).
	user, err := s.UserRepo.Save(ctx, newUser)
	if err != nil {
		return domain.User{}, err
	}

	s.Logger.Info("Usuário registrado com sucesso.", map[string]interface{}{"user_id": user.ID, "email": user.Email})
	return user, nil
}

// Login autentica um usuário, atualiza last_connection e cria a sessão.
// Retorna o usuário, o registro de sessão e o token assinado para o cookie.
// Email desconhecido e senha incorreta são erros distintos porque cada um tem
// a sua própria página de erro.
func (s *AuthService) Login(ctx context.Context, email string, password string) (domain.User, domain.Session, string, error) {
	// 1. Buscar Usuário pelo Email
	user, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		// NotFoundError passa adiante; o resto é erro de infraestrutura.
		return domain.User{}, domain.Session{}, "", err
	}

	// 2. Comparar Senhas
	// bcrypt.CompareHashAndPassword faz a comparação em tempo constante.
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.Logger.Info("Login rejeitado: senha incorreta.", map[string]interface{}{"email": email})
		return domain.User{}, domain.Session{}, "", apperror.NewUnauthorizedError("Contraseña incorrecta.")
	}

	// 3. Atualizar last_connection antes de emitir a sessão
	now := time.Now()
	if err := s.UserRepo.UpdateLastConnection(ctx, user.ID, now); err != nil {
		return domain.User{}, domain.Session{}, "", err
	}
	user.LastConnection = now

	// 4. Criar a Sessão
	sess, tokenString, err := s.Sessions.Create(ctx, user)
	if err != nil {
		return domain.User{}, domain.Session{}, "", err
	}

	s.Logger.Info("Login realizado com sucesso.", map[string]interface{}{"user_id": user.ID, "session_id": sess.ID})
	return user, sess, tokenString, nil
}

// Logout atualiza last_connection (tolerando usuário inexistente) e destrói a
// sessão. Falha ao destruir a sessão é erro de servidor; usuário ausente não
// impede o logout.
func (s *AuthService) Logout(ctx context.Context, sess domain.Session) error {
	if err := s.UserRepo.UpdateLastConnection(ctx, sess.UserID, time.Now()); err != nil {
		var notFoundErr *apperror.NotFoundError
		if errors.As(err, &notFoundErr) {
			// Usuário removido depois do login: o logout segue mesmo assim.
			s.Logger.Warn("Logout de usuário inexistente; sessão será destruída mesmo assim.",
				map[string]interface{}{"user_id": sess.UserID, "session_id": sess.ID})
		} else {
			return err
		}
	}

	if err := s.Sessions.Destroy(ctx, sess.ID); err != nil {
		return err
	}

	s.Logger.Info("Logout realizado com sucesso.", map[string]interface{}{"user_id": sess.UserID, "session_id": sess.ID})
	return nil
}
