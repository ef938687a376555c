package middleware

import (
	"context"
	"net/http"

	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/domain"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/session"
)

// ContextKey é o tipo das chaves de contexto deste pacote.
// Usamos um tipo próprio para garantir que a chave seja única e não haja
// conflito com chaves string de outros pacotes.
type ContextKey int

const (
	SessionKey ContextKey = iota
)

// RequireLogin cria um middleware que exige uma sessão válida.
// Ele lê o cookie, valida a assinatura do token, resolve o registro de sessão
// no Redis e anexa a sessão ao contexto da requisição. Sem sessão válida, o
// navegador é redirecionado para a página de login.
func RequireLogin(sessions session.Manager, cookieName string) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {

			// 1. Extrair o token do cookie de sessão
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			// 2. Resolver a sessão (assinatura + registro no Redis)
			sess, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				// Sessão destruída, expirada ou token forjado: volta ao login.
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			// 3. Anexar a sessão ao contexto
			ctx := context.WithValue(r.Context(), SessionKey, sess)

			// Chama o próximo handler com o novo contexto
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

// GetSessionFromContext é uma função utilitária para extrair a sessão no handler.
func GetSessionFromContext(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(domain.Session)
	return sess, ok
}
