package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/domain"
	apperror "github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/errors"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/cache"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/logger"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/token"
)

// Manager define o contrato do ciclo de vida de sessões.
// O registro autoritativo vive no cache (Redis); o token assinado que vai no
// cookie carrega apenas o ID da sessão.
type Manager interface {
	Create(ctx context.Context, user domain.User) (domain.Session, string, error)
	Get(ctx context.Context, tokenString string) (domain.Session, error)
	Destroy(ctx context.Context, sessionID string) error
}

// Chave de cache para registros de sessão.
const sessionCacheKey = "session:%s"

// RedisManager é a implementação concreta de Manager sobre cache.Client.
type RedisManager struct {
	Cache    cache.Client
	TokenSvc token.TokenService
	TTL      time.Duration
	Logger   logger.Logger
}

// NewManager cria uma nova instância do gerenciador de sessões.
func NewManager(cacheClient cache.Client, tokenSvc token.TokenService, ttl time.Duration, log logger.Logger) *RedisManager {
	return &RedisManager{
		Cache:    cacheClient,
		TokenSvc: tokenSvc,
		TTL:      ttl,
		Logger:   log,
	}
}

// Create registra uma nova sessão para o usuário e retorna o token assinado
// que deve ser colocado no cookie.
func (m *RedisManager) Create(ctx context.Context, user domain.User) (domain.Session, string, error) {
	now := time.Now()
	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.TTL),
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return domain.Session{}, "", apperror.NewInternalError("Falha ao serializar a sessão.", err)
	}

	// O TTL do Redis garante a expiração mesmo sem logout explícito.
	key := fmt.Sprintf(sessionCacheKey, sess.ID)
	if err := m.Cache.Set(ctx, key, string(payload), m.TTL); err != nil {
		m.Logger.Error("Falha ao gravar sessão no Redis.", err)
		return domain.Session{}, "", apperror.NewInternalError("Falha ao criar a sessão.", err)
	}

	tokenString, err := m.TokenSvc.GenerateToken(sess.ID)
	if err != nil {
		// A sessão órfã expira sozinha pelo TTL, mas removemos agora.
		_ = m.Cache.Delete(ctx, key)
		return domain.Session{}, "", apperror.NewInternalError("Falha ao assinar o token de sessão.", err)
	}

	m.Logger.Debug("Sessão criada.", map[string]interface{}{"session_id": sess.ID, "user_id": user.ID})
	return sess, tokenString, nil
}

// Get valida o token do cookie e resolve o registro de sessão correspondente.
func (m *RedisManager) Get(ctx context.Context, tokenString string) (domain.Session, error) {
	claims, err := m.TokenSvc.ValidateToken(tokenString)
	if err != nil {
		return domain.Session{}, apperror.NewUnauthorizedError("Token de sessão inválido ou expirado.")
	}

	key := fmt.Sprintf(sessionCacheKey, claims.SessionID)
	raw, err := m.Cache.Get(ctx, key)
	if err != nil {
		if err == cache.ErrCacheMiss {
			// Sessão destruída (logout) ou expirada: o token não vale mais nada.
			return domain.Session{}, apperror.NewUnauthorizedError("Sessão não encontrada.")
		}
		m.Logger.Error("Falha ao ler sessão do Redis.", err)
		return domain.Session{}, apperror.NewInternalError("Falha ao resolver a sessão.", err)
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		m.Logger.Error("Registro de sessão corrompido no Redis.", err)
		return domain.Session{}, apperror.NewInternalError("Falha ao decodificar a sessão.", err)
	}

	if time.Now().After(sess.ExpiresAt) {
		_ = m.Cache.Delete(ctx, key)
		return domain.Session{}, apperror.NewUnauthorizedError("Sessão expirada.")
	}

	return sess, nil
}

// Destroy remove o registro de sessão do cache, invalidando o token associado.
func (m *RedisManager) Destroy(ctx context.Context, sessionID string) error {
	key := fmt.Sprintf(sessionCacheKey, sessionID)
	if err := m.Cache.Delete(ctx, key); err != nil {
		m.Logger.Error("Falha ao destruir sessão no Redis.", err)
		return apperror.NewInternalError("Falha ao destruir a sessão.", err)
	}

	m.Logger.Debug("Sessão destruída.", map[string]interface{}{"session_id": sessionID})
	return nil
}
