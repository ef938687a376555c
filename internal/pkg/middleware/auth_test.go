package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/domain"
	apperror "github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/errors"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/middleware"
)

// MockSessionManager é uma implementação mock de session.Manager.
type MockSessionManager struct {
	mock.Mock
}

func (m *MockSessionManager) Create(ctx context.Context, u domain.User) (domain.Session, string, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(domain.Session), args.String(1), args.Error(2)
}

func (m *MockSessionManager) Get(ctx context.Context, tokenString string) (domain.Session, error) {
	args := m.Called(ctx, tokenString)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *MockSessionManager) Destroy(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// TestRequireLogin_NoCookie testa o redirect para /login sem cookie de sessão.
func TestRequireLogin_NoCookie(t *testing.T) {
	sessions := new(MockSessionManager)
	requireLogin := middleware.RequireLogin(sessions, "sesion")

	called := false
	handler := requireLogin(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/perfil", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

// TestRequireLogin_InvalidSession testa o redirect quando a sessão foi destruída.
func TestRequireLogin_InvalidSession(t *testing.T) {
	sessions := new(MockSessionManager)
	sessions.On("Get", mock.Anything, "token-muerto").
		Return(domain.Session{}, apperror.NewUnauthorizedError("Sessão não encontrada."))

	requireLogin := middleware.RequireLogin(sessions, "sesion")

	called := false
	handler := requireLogin(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/perfil", nil)
	req.AddCookie(&http.Cookie{Name: "sesion", Value: "token-muerto"})
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

// TestRequireLogin_ValidSession testa que a sessão resolvida chega ao contexto.
func TestRequireLogin_ValidSession(t *testing.T) {
	sess := domain.Session{ID: uuid.NewString(), UserID: uuid.NewString(), Email: "mauro@example.com"}

	sessions := new(MockSessionManager)
	sessions.On("Get", mock.Anything, "token-valido").Return(sess, nil)

	requireLogin := middleware.RequireLogin(sessions, "sesion")

	var got domain.Session
	var ok bool
	handler := requireLogin(func(w http.ResponseWriter, r *http.Request) {
		got, ok = middleware.GetSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/perfil", nil)
	req.AddCookie(&http.Cookie{Name: "sesion", Value: "token-valido"})
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ok)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.UserID, got.UserID)
}
