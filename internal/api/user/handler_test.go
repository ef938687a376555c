package user_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/api/user"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/domain"
	apperror "github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/errors"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/logger"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/middleware"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/view"
)

// MockAuthService é uma implementação mock do contrato AuthService do handler.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error) {
	args := m.Called(ctx, registration)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email string, password string) (domain.User, domain.Session, string, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.User), args.Get(1).(domain.Session), args.String(2), args.Error(3)
}

func (m *MockAuthService) Logout(ctx context.Context, sess domain.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

// MockRoleService é uma implementação mock do contrato RoleService do handler.
type MockRoleService struct {
	mock.Mock
}

func (m *MockRoleService) ChangeRole(ctx context.Context, actorUserID string, targetUserID string, newRole domain.Role) (domain.User, error) {
	args := m.Called(ctx, actorUserID, targetUserID, newRole)
	return args.Get(0).(domain.User), args.Error(1)
}

// MockUserFinder é uma implementação mock do contrato UserFinder do handler.
type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) FindByID(ctx context.Context, id string) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

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

type handlerMocks struct {
	auth     *MockAuthService
	roles    *MockRoleService
	users    *MockUserFinder
	sessions *MockSessionManager
}

func newHandler(t *testing.T) (*user.Handler, *handlerMocks) {
	log := logger.NewLogger("error")
	renderer, err := view.NewRenderer("../../../web/templates", log)
	if err != nil {
		t.Fatalf("falha ao carregar templates: %v", err)
	}

	m := &handlerMocks{
		auth:     new(MockAuthService),
		roles:    new(MockRoleService),
		users:    new(MockUserFinder),
		sessions: new(MockSessionManager),
	}

	cookieCfg := user.CookieConfig{Name: "sesion", TTL: time.Hour, Secure: false}
	h := user.NewHandler(m.auth, m.roles, m.users, m.sessions, renderer, cookieCfg, log)
	return h, m
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func withSession(req *http.Request, sess domain.Session) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), middleware.SessionKey, sess))
}

// TestLoginHandler_Success testa o login: cookie de sessão e redirect para a home.
func TestLoginHandler_Success(t *testing.T) {
	h, m := newHandler(t)

	userID := uuid.NewString()
	sess := domain.Session{ID: uuid.NewString(), UserID: userID, Email: "mauro@example.com"}
	m.auth.On("Login", mock.Anything, "mauro@example.com", "secreta123").
		Return(domain.User{ID: userID, Email: "mauro@example.com"}, sess, "token-assinado", nil)

	req := formRequest(http.MethodPost, "/login", url.Values{
		"email": {"mauro@example.com"},
		"pass":  {"secreta123"},
	})
	rec := httptest.NewRecorder()

	h.LoginUserHandler(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	assert.Len(t, cookies, 1)
	assert.Equal(t, "sesion", cookies[0].Name)
	assert.Equal(t, "token-assinado", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	m.auth.AssertExpectations(t)
}

// TestLoginHandler_WrongPassword testa a página de erro de senha incorreta.
func TestLoginHandler_WrongPassword(t *testing.T) {
	h, m := newHandler(t)

	m.auth.On("Login", mock.Anything, "mauro@example.com", "equivocada").
		Return(domain.User{}, domain.Session{}, "", apperror.NewUnauthorizedError("Contraseña incorrecta."))

	req := formRequest(http.MethodPost, "/login", url.Values{
		"email": {"mauro@example.com"},
		"pass":  {"equivocada"},
	})
	rec := httptest.NewRecorder()

	h.LoginUserHandler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Contraseña incorrecta")
	assert.Empty(t, rec.Result().Cookies())
}

// TestLoginHandler_UnknownUser testa a página de erro de usuário inexistente.
func TestLoginHandler_UnknownUser(t *testing.T) {
	h, m := newHandler(t)

	m.auth.On("Login", mock.Anything, "nadie@example.com", "secreta123").
		Return(domain.User{}, domain.Session{}, "", apperror.NewNotFoundError("no existe"))

	req := formRequest(http.MethodPost, "/login", url.Values{
		"email": {"nadie@example.com"},
		"pass":  {"secreta123"},
	})
	rec := httptest.NewRecorder()

	h.LoginUserHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Usuario no encontrado")
}

// TestRegisterHandler_Success testa o redirect para /login após o registro.
func TestRegisterHandler_Success(t *testing.T) {
	h, m := newHandler(t)

	m.auth.On("Register", mock.Anything, mock.AnythingOfType("domain.UserRegistration")).
		Return(domain.User{ID: uuid.NewString()}, nil)

	req := formRequest(http.MethodPost, "/register", url.Values{
		"nombre":   {"Mauro"},
		"apellido": {"Pérez"},
		"edad":     {"30"},
		"email":    {"mauro@example.com"},
		"pass":     {"secreta123"},
	})
	rec := httptest.NewRecorder()

	h.RegisterUserHandler(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	m.auth.AssertExpectations(t)
}

// TestRegisterHandler_DuplicateEmail testa a página de erro de email já registrado.
func TestRegisterHandler_DuplicateEmail(t *testing.T) {
	h, m := newHandler(t)

	m.auth.On("Register", mock.Anything, mock.AnythingOfType("domain.UserRegistration")).
		Return(domain.User{}, apperror.NewConflictError("El email 'mauro@example.com' ya está registrado."))

	req := formRequest(http.MethodPost, "/register", url.Values{
		"nombre":   {"Mauro"},
		"apellido": {"Pérez"},
		"edad":     {"30"},
		"email":    {"mauro@example.com"},
		"pass":     {"secreta123"},
	})
	rec := httptest.NewRecorder()

	h.RegisterUserHandler(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ya está registrado")
}

// TestLogoutHandler_Success testa o logout: cookie removido e redirect ao login.
func TestLogoutHandler_Success(t *testing.T) {
	h, m := newHandler(t)

	sess := domain.Session{ID: uuid.NewString(), UserID: uuid.NewString()}
	m.auth.On("Logout", mock.Anything, sess).Return(nil)

	req := withSession(httptest.NewRequest(http.MethodGet, "/logout", nil), sess)
	rec := httptest.NewRecorder()

	h.LogoutUserHandler(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	assert.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
	m.auth.AssertExpectations(t)
}

// TestLogoutHandler_DestroyFailure testa o 500 JSON {mensaje} quando a destruição falha.
func TestLogoutHandler_DestroyFailure(t *testing.T) {
	h, m := newHandler(t)

	sess := domain.Session{ID: uuid.NewString(), UserID: uuid.NewString()}
	m.auth.On("Logout", mock.Anything, sess).
		Return(apperror.NewInternalError("Falha ao destruir a sessão.", errors.New("redis down")))

	req := withSession(httptest.NewRequest(http.MethodGet, "/logout", nil), sess)
	rec := httptest.NewRecorder()

	h.LogoutUserHandler(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Error al cerrar sesión", body["mensaje"])
}

// TestProfileHandler_PremiumFlags testa as flags derivadas do rol atual.
func TestProfileHandler_PremiumFlags(t *testing.T) {
	h, m := newHandler(t)

	userID := uuid.NewString()
	sess := domain.Session{ID: uuid.NewString(), UserID: userID, Email: "mauro@example.com"}
	m.users.On("FindByID", mock.Anything, userID).
		Return(domain.User{ID: userID, Name: "Mauro", Email: "mauro@example.com", Role: domain.RolePremium}, nil)

	req := withSession(httptest.NewRequest(http.MethodGet, "/perfil", nil), sess)
	rec := httptest.NewRecorder()

	h.RenderProfileHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mauro")
	assert.Contains(t, rec.Body.String(), "premium")
	assert.Contains(t, rec.Body.String(), "cuenta premium")
}

// TestProfileHandler_UserGone testa sessão viva com usuário removido: volta ao login.
func TestProfileHandler_UserGone(t *testing.T) {
	h, m := newHandler(t)

	userID := uuid.NewString()
	sess := domain.Session{ID: uuid.NewString(), UserID: userID}
	m.users.On("FindByID", mock.Anything, userID).
		Return(domain.User{}, apperror.NewNotFoundError("Usuário não encontrado"))

	req := withSession(httptest.NewRequest(http.MethodGet, "/perfil", nil), sess)
	rec := httptest.NewRecorder()

	h.RenderProfileHandler(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func changeRoleRequest(t *testing.T, sess domain.Session, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/premium", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return withSession(req, sess)
}

// TestChangeRoleHandler_Success testa o 200 com a mensagem de confirmação.
func TestChangeRoleHandler_Success(t *testing.T) {
	h, m := newHandler(t)

	actorID := uuid.NewString()
	targetID := uuid.NewString()
	sess := domain.Session{ID: uuid.NewString(), UserID: actorID}

	m.roles.On("ChangeRole", mock.Anything, actorID, targetID, domain.RolePremium).
		Return(domain.User{ID: targetID, Role: domain.RolePremium}, nil)

	req := changeRoleRequest(t, sess, `{"userIdToUpdate":"`+targetID+`","newRole":"premium"}`)
	rec := httptest.NewRecorder()

	h.ChangeRoleHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["message"], targetID)
	assert.Contains(t, body["message"], "premium")
	m.roles.AssertExpectations(t)
}

// TestChangeRoleHandler_Forbidden testa o 403 {mensaje} para ator sem permissão.
func TestChangeRoleHandler_Forbidden(t *testing.T) {
	h, m := newHandler(t)

	actorID := uuid.NewString()
	targetID := uuid.NewString()
	sess := domain.Session{ID: uuid.NewString(), UserID: actorID}

	m.roles.On("ChangeRole", mock.Anything, actorID, targetID, domain.RolePremium).
		Return(domain.User{}, apperror.NewForbiddenError("Acceso no autorizado"))

	req := changeRoleRequest(t, sess, `{"userIdToUpdate":"`+targetID+`","newRole":"premium"}`)
	rec := httptest.NewRecorder()

	h.ChangeRoleHandler(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Acceso no autorizado", body["mensaje"])
}

// TestChangeRoleHandler_InvalidRole testa o 400 para roles fora de {user, premium}.
func TestChangeRoleHandler_InvalidRole(t *testing.T) {
	h, m := newHandler(t)

	actorID := uuid.NewString()
	targetID := uuid.NewString()
	sess := domain.Session{ID: uuid.NewString(), UserID: actorID}

	m.roles.On("ChangeRole", mock.Anything, actorID, targetID, domain.Role("superadmin")).
		Return(domain.User{}, apperror.NewValidationError(`Rol no válido. Use "user" o "premium".`))

	req := changeRoleRequest(t, sess, `{"userIdToUpdate":"`+targetID+`","newRole":"superadmin"}`)
	rec := httptest.NewRecorder()

	h.ChangeRoleHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rol no válido")
}

// TestChangeRoleHandler_TargetNotFound testa o 404 para alvo inexistente.
func TestChangeRoleHandler_TargetNotFound(t *testing.T) {
	h, m := newHandler(t)

	actorID := uuid.NewString()
	targetID := uuid.NewString()
	sess := domain.Session{ID: uuid.NewString(), UserID: actorID}

	m.roles.On("ChangeRole", mock.Anything, actorID, targetID, domain.RoleUser).
		Return(domain.User{}, apperror.NewNotFoundError("Usuário não encontrado"))

	req := changeRoleRequest(t, sess, `{"userIdToUpdate":"`+targetID+`","newRole":"user"}`)
	rec := httptest.NewRecorder()

	h.ChangeRoleHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Usuario no encontrado", body["message"])
}

// TestChangeRoleHandler_FormEncoded testa o mesmo fluxo via formulário da view.
func TestChangeRoleHandler_FormEncoded(t *testing.T) {
	h, m := newHandler(t)

	actorID := uuid.NewString()
	targetID := uuid.NewString()
	sess := domain.Session{ID: uuid.NewString(), UserID: actorID}

	m.roles.On("ChangeRole", mock.Anything, actorID, targetID, domain.RoleUser).
		Return(domain.User{ID: targetID, Role: domain.RoleUser}, nil)

	req := withSession(formRequest(http.MethodPost, "/premium", url.Values{
		"userIdToUpdate": {targetID},
		"newRole":        {"user"},
	}), sess)
	rec := httptest.NewRecorder()

	h.ChangeRoleHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	m.roles.AssertExpectations(t)
}

// TestHomeHandler testa o redirect condicionado ao estado da sessão.
func TestHomeHandler(t *testing.T) {
	h, m := newHandler(t)

	// Sem cookie: vai para o login.
	rec := httptest.NewRecorder()
	h.HomeHandler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// Com sessão válida: vai para o perfil.
	m.sessions.On("Get", mock.Anything, "token-valido").
		Return(domain.Session{ID: uuid.NewString(), UserID: uuid.NewString()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sesion", Value: "token-valido"})
	rec = httptest.NewRecorder()
	h.HomeHandler(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/perfil", rec.Header().Get("Location"))
}
