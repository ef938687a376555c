package view

import (
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/logger"
)

// Renderer carrega os templates HTML e os executa nas respostas.
// As views em si (markup) são incidentais; os handlers só conhecem o nome do
// template e os dados.
type Renderer struct {
	templates *template.Template
	logger    logger.Logger
}

// NewRenderer faz o parse de todos os templates do diretório configurado.
func NewRenderer(dir string, log logger.Logger) (*Renderer, error) {
	tpl, err := template.ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tpl, logger: log}, nil
}

// Render executa o template nomeado com os dados fornecidos.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		r.logger.Error("Falha ao renderizar template: "+name, err)
	}
}

// --- Páginas de erro customizadas ---
// Equivalente das páginas de erro do fluxo de registro/login: cada tipo
// conhecido tem um status HTTP e uma mensagem para o usuário.

// ErrorKind identifica uma página de erro customizada.
type ErrorKind string

const (
	ErrUsuarioExistente     ErrorKind = "usuarioExistente"
	ErrUsuarioNoEncontrado  ErrorKind = "usuarioNoEncontrado"
	ErrContrasenaIncorrecta ErrorKind = "contrasenaIncorrecta"
	ErrServidor             ErrorKind = "errorServidor"
)

type errorPage struct {
	Status  int
	Message string
}

var errorPages = map[ErrorKind]errorPage{
	ErrUsuarioExistente:     {http.StatusConflict, "El correo electrónico ya está registrado."},
	ErrUsuarioNoEncontrado:  {http.StatusNotFound, "Usuario no encontrado."},
	ErrContrasenaIncorrecta: {http.StatusUnauthorized, "Contraseña incorrecta."},
	ErrServidor:             {http.StatusInternalServerError, "Error en el servidor."},
}

// RenderError renderiza a página de erro correspondente ao tipo.
// Tipos desconhecidos caem na página genérica de erro de servidor.
func (r *Renderer) RenderError(w http.ResponseWriter, kind ErrorKind) {
	page, ok := errorPages[kind]
	if !ok {
		page = errorPages[ErrServidor]
	}
	r.Render(w, page.Status, "error.html", map[string]interface{}{
		"mensaje": page.Message,
	})
}
