package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Pacotes de infraestrutura e utilitários
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/config"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/cache"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/database"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/logger"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/session"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/token"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/view"

	// Camadas de Usuário para Injeção de Dependências
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/api/router"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/api/user"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/repository/userrepo"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/service/authservice"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/service/roleservice"
)

func main() {
	// 1. Configuração e Inicialização
	log.Println("⚡ Inicializando backend de contas...")

	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// As variáveis essenciais podem estar no ambiente do sistema (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", nil)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache / Sessões (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	log.Info("Conexão Redis estabelecida.", nil)

	// C. Views (templates HTML)
	renderer, err := view.NewRenderer(cfg.TemplatesDir, log)
	if err != nil {
		log.Fatal("Falha ao carregar templates HTML.", err)
	}
	log.Debug("Templates carregados.", map[string]interface{}{"dir": cfg.TemplatesDir})

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Sessões -> Services -> Handler

	// A. Repositório de Usuário (Camada de Acesso a Dados)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	log.Debug("Repositório de Usuário inicializado.", nil)

	// B. Token + Gerenciador de Sessões
	tokenSvc := token.NewService(cfg.SessionSecretKey, cfg.SessionTTL)
	sessionMgr := session.NewManager(cacheClient, tokenSvc, cfg.SessionTTL, log)
	log.Debug("Gerenciador de Sessões inicializado.", nil)

	// C. Serviços (Camada de Lógica de Negócio)
	authSvc := authservice.NewService(userRepo, sessionMgr, log)
	roleSvc := roleservice.NewService(userRepo, cfg.RoleChangeAdminOnly, log)
	log.Debug("Serviços de Auth e Role inicializados.", nil)

	// D. Handler (Camada de Apresentação)
	cookieCfg := user.CookieConfig{
		Name:   cfg.SessionCookie,
		TTL:    cfg.SessionTTL,
		Secure: cfg.Environment == "production",
	}
	userHandler := user.NewHandler(authSvc, roleSvc, userRepo, sessionMgr, renderer, cookieCfg, log)
	log.Debug("Handler de Usuário inicializado.", nil)

	// 4. Configuração e Início do Roteador/Servidor

	r := router.NewRouter(userHandler, sessionMgr, cfg.SessionCookie, cacheClient,
		cfg.RateLimitMaxRequests, cfg.RateLimitPeriod)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	// Lógica do Graceful Shutdown (captura de sinal)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
