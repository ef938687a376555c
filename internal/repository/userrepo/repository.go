package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/domain"
	apperror "github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/errors"
	"github.com/m4ur0111/Cuarta-PreEntrega-Backend/internal/pkg/logger"
)

// Código de erro do PostgreSQL para violação de chave única (email duplicado).
const uniqueViolation = "23505"

const userColumns = `id, name, surname, age, email, password_hash, role, last_connection, created_at, updated_at`

// UserRepository implementa a interface domain.UserRepository sobre PostgreSQL.
type UserRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewUserRepository cria uma nova instância do UserRepository, injetando o DB.
func NewUserRepository(db *sql.DB, dbTimeout time.Duration, log logger.Logger) *UserRepository {
	return &UserRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

// Save insere um novo usuário no banco de dados.
// Um email duplicado vira ConflictError (a constraint UNIQUE é a autoridade).
func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	r.logger.Debug("Iniciando Save de usuário no repositório.", map[string]interface{}{"email": user.Email})

	// 1. Configura Contexto com Timeout
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	// 2. Prepara ID e timestamps
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	user.LastConnection = user.CreatedAt

	// 3. Executa o INSERT
	insertSQL := `INSERT INTO users (` + userColumns + `)
	              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.DB.ExecContext(
		ctxTimeout,
		insertSQL,
		user.ID,
		user.Name,
		user.Surname,
		user.Age,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.LastConnection,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			r.logger.Info("Tentativa de registro com email duplicado.", map[string]interface{}{"email": user.Email})
			return domain.User{}, apperror.NewConflictError(
				fmt.Sprintf("El email '%s' ya está registrado.", user.Email),
			)
		}
		r.logger.Error("Falha ao inserir usuário no DB.", err)
		return domain.User{}, apperror.NewDBError("failed to insert user", err)
	}

	r.logger.Info("Usuário salvo com sucesso no repositório.", map[string]interface{}{"user_id": user.ID, "email": user.Email})
	return user, nil
}

// FindByEmail busca um usuário pelo endereço de e-mail.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	row := r.DB.QueryRowContext(ctxTimeout, query, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Info("Usuário não encontrado no DB por email.", map[string]interface{}{"email": email})
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com email '%s' não encontrado", email))
		}
		r.logger.Error("Falha ao buscar usuário por email no DB.", err)
		return domain.User{}, apperror.NewDBError("failed to find user by email", err)
	}

	return user, nil
}

// FindByID busca um usuário pelo seu identificador.
func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	row := r.DB.QueryRowContext(ctxTimeout, query, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Info("Usuário não encontrado no DB por ID.", map[string]interface{}{"user_id": id})
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário '%s' não encontrado", id))
		}
		r.logger.Error("Falha ao buscar usuário por ID no DB.", err)
		return domain.User{}, apperror.NewDBError("failed to find user by id", err)
	}

	return user, nil
}

// UpdateLastConnection grava o timestamp de última conexão do usuário.
// Escrita por linha: concorrência entre requisições resolve em last-write-wins.
func (r *UserRepository) UpdateLastConnection(ctx context.Context, id string, at time.Time) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	updateSQL := `UPDATE users SET last_connection = $2, updated_at = $2 WHERE id = $1`

	result, err := r.DB.ExecContext(ctxTimeout, updateSQL, id, at)
	if err != nil {
		r.logger.Error("Falha ao atualizar last_connection no DB.", err)
		return apperror.NewDBError("failed to update last_connection", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.NewDBError("failed to read affected rows", err)
	}
	if rows == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Usuário '%s' não encontrado", id))
	}

	return nil
}

// UpdateRole aplica o novo rol ao usuário alvo e retorna o registro atualizado.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role domain.Role) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	updateSQL := `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1
	              RETURNING ` + userColumns

	row := r.DB.QueryRowContext(ctxTimeout, updateSQL, id, role, time.Now())

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Info("Troca de rol para usuário inexistente.", map[string]interface{}{"user_id": id})
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário '%s' não encontrado", id))
		}
		r.logger.Error("Falha ao atualizar rol no DB.", err)
		return domain.User{}, apperror.NewDBError("failed to update role", err)
	}

	r.logger.Info("Rol atualizado no repositório.", map[string]interface{}{"user_id": user.ID, "role": string(user.Role)})
	return user, nil
}

// scanUser mapeia uma linha (ordem de userColumns) para a struct User.
func scanUser(row *sql.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Surname,
		&user.Age,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.LastConnection,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}
