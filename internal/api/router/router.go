package router

import (
	"net/http"
	"time"

	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/api/user"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/cache"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/middleware"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/session"
)

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(userHandler *user.Handler, sessions session.Manager, cookieName string, cacheClient cache.Client, rateLimit int, ratePeriod time.Duration) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	mux := http.NewServeMux()

	requireLogin := middleware.RequireLogin(sessions, cookieName)

	// --- 1. Rotas de Health Check ---
	mux.HandleFunc("/ping", PingHandler)

	// --- 2. Rotas públicas ---

	// GET/POST /register (formulário e criação de conta)
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			userHandler.RegisterUserHandler(w, r)
			return
		}
		userHandler.RenderRegisterPage(w, r)
	})

	// GET/POST /login (formulário e início de sessão)
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			userHandler.LoginUserHandler(w, r)
			return
		}
		userHandler.RenderLoginPage(w, r)
	})

	// GET /rol-usuario (view de administração de roles)
	mux.HandleFunc("/rol-usuario", userHandler.RenderRoleAdminHandler)

	// --- 3. Rotas autenticadas (RequireLogin) ---

	// GET /logout (destrói a sessão)
	mux.HandleFunc("/logout", requireLogin(userHandler.LogoutUserHandler))

	// GET /perfil (view do perfil com flags de rol)
	mux.HandleFunc("/perfil", requireLogin(userHandler.RenderProfileHandler))

	// POST /premium (troca de rol; resposta JSON)
	mux.HandleFunc("/premium", requireLogin(userHandler.ChangeRoleHandler))

	// --- 4. Home (redireciona conforme o estado da sessão) ---
	mux.HandleFunc("/", userHandler.HomeHandler)

	// --- 5. Middlewares globais ---
	return middleware.RateLimiter(cacheClient, rateLimit, ratePeriod)(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
