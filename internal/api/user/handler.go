package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/domain"
	apperror "github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/errors"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/logger"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/middleware"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/session"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/view"
)

// AuthService define o contrato que o Handler espera da camada de autenticação.
type AuthService interface {
	Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error)
	Login(ctx context.Context, email string, password string) (domain.User, domain.Session, string, error)
	Logout(ctx context.Context, sess domain.Session) error
}

// RoleService define o contrato que o Handler espera da camada de roles.
type RoleService interface {
	ChangeRole(ctx context.Context, actorUserID string, targetUserID string, newRole domain.Role) (domain.User, error)
}

// UserFinder é a leitura mínima de usuário que a view de perfil precisa.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (domain.User, error)
}

// CookieConfig agrupa os parâmetros do cookie de sessão.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool // true em produção (HTTPS)
}

// ChangeRoleRequest representa o payload JSON da troca de rol.
// Os mesmos nomes valem para o formulário da view.
type ChangeRoleRequest struct {
	UserIDToUpdate string `json:"userIdToUpdate"`
	NewRole        string `json:"newRole"`
}

// Handler agrupa todos os métodos de Handler do usuário.
type Handler struct {
	Auth     AuthService
	Roles    RoleService
	Users    UserFinder
	Sessions session.Manager
	Renderer *view.Renderer
	Cookie   CookieConfig
	Logger   logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando os serviços.
func NewHandler(auth AuthService, roles RoleService, users UserFinder, sessions session.Manager, renderer *view.Renderer, cookie CookieConfig, log logger.Logger) *Handler {
	return &Handler{
		Auth:     auth,
		Roles:    roles,
		Users:    users,
		Sessions: sessions,
		Renderer: renderer,
		Cookie:   cookie,
		Logger:   log,
	}
}

// --- Funções Auxiliares ---

// writeJSON envia uma resposta JSON com o status informado.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Error("Falha ao codificar JSON de resposta.", err)
	}
}

// serverErrorPage loga o erro e renderiza a página genérica de erro (500).
// Nenhum detalhe interno vaza para o usuário.
func (h *Handler) serverErrorPage(w http.ResponseWriter, msg string, err error) {
	h.Logger.Error(msg, err)
	h.Renderer.RenderError(w, view.ErrServidor)
}

// sessionFromContext recupera a sessão anexada pelo RequireLogin.
func (h *Handler) sessionFromContext(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		// Rota registrada sem o middleware: trata como não autenticado.
		h.Logger.Warn("Sessão ausente no contexto; rota sem RequireLogin?", map[string]interface{}{"path": r.URL.Path})
		http.Redirect(w, r, "/login", http.StatusFound)
		return domain.Session{}, false
	}
	return sess, true
}

// --- Páginas públicas ---

// RenderRegisterPage lida com GET /register.
func (h *Handler) RenderRegisterPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	h.Renderer.Render(w, http.StatusOK, "register.html", nil)
}

// RegisterUserHandler lida com POST /register.
// Sucesso redireciona para /login; email duplicado rende a página de erro
// customizada sem criar registro algum.
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.Renderer.Render(w, http.StatusBadRequest, "error.html", map[string]interface{}{
			"mensaje": "Formulario inválido.",
		})
		return
	}

	age, _ := strconv.Atoi(r.PostFormValue("edad"))
	registration := domain.UserRegistration{
		Name:     r.PostFormValue("nombre"),
		Surname:  r.PostFormValue("apellido"),
		Age:      age,
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("pass"),
	}

	// 1. Chamar o Serviço (hashing e persistência)
	_, err := h.Auth.Register(ctx, registration)
	if err != nil {
		var conflictErr *apperror.ConflictError
		var validationErr *apperror.ValidationError
		switch {
		case errors.As(err, &conflictErr):
			h.Renderer.RenderError(w, view.ErrUsuarioExistente)
		case errors.As(err, &validationErr):
			h.Renderer.Render(w, http.StatusBadRequest, "error.html", map[string]interface{}{
				"mensaje": "Todos los campos son obligatorios.",
			})
		default:
			h.serverErrorPage(w, "Erro no servidor ao registrar usuário.", err)
		}
		return
	}

	// 2. Registro criado: o usuário ainda precisa fazer login.
	h.Logger.Info("Usuário registrado com sucesso.", map[string]interface{}{"email": registration.Email})
	http.Redirect(w, r, "/login", http.StatusFound)
}

// RenderLoginPage lida com GET /login.
func (h *Handler) RenderLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	h.Renderer.Render(w, http.StatusOK, "login.html", nil)
}

// LoginUserHandler lida com POST /login.
// Email desconhecido e senha incorreta têm páginas de erro distintas; no
// sucesso o cookie de sessão é emitido e o navegador vai para a home.
func (h *Handler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.Renderer.Render(w, http.StatusBadRequest, "error.html", map[string]interface{}{
			"mensaje": "Formulario inválido.",
		})
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("pass")

	// 1. Chamar o Serviço de Login
	user, _, tokenString, err := h.Auth.Login(ctx, email, password)
	if err != nil {
		var notFoundErr *apperror.NotFoundError
		var unauthorizedErr *apperror.UnauthorizedError
		switch {
		case errors.As(err, &notFoundErr):
			h.Renderer.RenderError(w, view.ErrUsuarioNoEncontrado)
		case errors.As(err, &unauthorizedErr):
			h.Renderer.RenderError(w, view.ErrContrasenaIncorrecta)
		default:
			h.serverErrorPage(w, "Erro no servidor ao fazer login.", err)
		}
		return
	}

	// 2. Emitir o cookie de sessão
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    tokenString,
		Path:     "/",
		MaxAge:   int(h.Cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.Logger.Info("Usuário autenticado.", map[string]interface{}{"user_id": user.ID})
	http.Redirect(w, r, "/", http.StatusFound)
}

// --- Páginas autenticadas ---

// LogoutUserHandler lida com GET /logout (exige sessão).
// Atualiza last_connection (tolerando usuário ausente) e destrói a sessão;
// falha na destruição vira 500 JSON {mensaje}.
func (h *Handler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	if err := h.Auth.Logout(r.Context(), sess); err != nil {
		h.Logger.Error("Erro ao encerrar sessão.", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"mensaje": "Error al cerrar sesión",
		})
		return
	}

	// Remove o cookie do navegador
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/login", http.StatusFound)
}

// RenderProfileHandler lida com GET /perfil (exige sessão).
// As flags isPremium/isAdmin são derivadas do rol ATUAL do usuário, não do
// que valia quando a sessão foi criada.
func (h *Handler) RenderProfileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	u, err := h.Users.FindByID(r.Context(), sess.UserID)
	if err != nil {
		var notFoundErr *apperror.NotFoundError
		if errors.As(err, &notFoundErr) {
			// Usuário removido com sessão ainda viva: volta ao login.
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		h.serverErrorPage(w, "Erro no servidor ao carregar perfil.", err)
		return
	}

	h.Renderer.Render(w, http.StatusOK, "perfil.html", map[string]interface{}{
		"userId":        u.ID,
		"nombreUsuario": u.Name,
		"userEmail":     u.Email,
		"userRol":       string(u.Role),
		"isPremium":     u.Role == domain.RolePremium,
		"isAdmin":       u.Role == domain.RoleAdmin,
	})
}

// ChangeRoleHandler lida com POST /premium (exige sessão).
// A autorização do ator acontece antes de qualquer mutação e a rejeição
// aborta a requisição com 403. Resposta é status + mensagem, não uma página.
func (h *Handler) ChangeRoleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}

	// Aceita JSON (fetch) ou formulário (view de administração de roles).
	var req ChangeRoleRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Payload inválido"})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Payload inválido"})
			return
		}
		req.UserIDToUpdate = r.PostFormValue("userIdToUpdate")
		req.NewRole = r.PostFormValue("newRole")
	}

	updated, err := h.Roles.ChangeRole(r.Context(), sess.UserID, req.UserIDToUpdate, domain.Role(req.NewRole))
	if err != nil {
		var forbiddenErr *apperror.ForbiddenError
		var validationErr *apperror.ValidationError
		var notFoundErr *apperror.NotFoundError
		switch {
		case errors.As(err, &forbiddenErr):
			h.writeJSON(w, http.StatusForbidden, map[string]string{"mensaje": "Acceso no autorizado"})
		case errors.As(err, &validationErr):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"message": `Rol no válido. Use "user" o "premium".`})
		case errors.As(err, &notFoundErr):
			h.writeJSON(w, http.StatusNotFound, map[string]string{"message": "Usuario no encontrado"})
		default:
			h.Logger.Error("Erro no servidor ao trocar rol.", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error en el servidor"})
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Rol del usuario " + updated.ID + " actualizado a " + string(updated.Role),
	})
}

// RenderRoleAdminHandler lida com GET /rol-usuario.
func (h *Handler) RenderRoleAdminHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	h.Renderer.Render(w, http.StatusOK, "change-rol.html", nil)
}

// HomeHandler lida com GET /: com sessão válida vai para o perfil, sem ela
// vai para o login.
func (h *Handler) HomeHandler(w http.ResponseWriter, r *http.Request) {
	// O padrão "/" do ServeMux captura qualquer caminho não registrado.
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	cookie, err := r.Cookie(h.Cookie.Name)
	if err == nil && cookie.Value != "" {
		if _, err := h.Sessions.Get(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/perfil", http.StatusFound)
			return
		}
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}
