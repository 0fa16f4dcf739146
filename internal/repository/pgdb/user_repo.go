package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
)

type UserRepo struct {
	pool tr.Querier
	conv converter.UserConverter
}

func NewUserRepo(pool tr.Querier, conv converter.UserConverter) *UserRepo {
	return &UserRepo{
		pool: pool,
		conv: conv,
	}
}

// Create сохраняет пользователя. Занятое имя возвращает ErrUserExists.
func (u *UserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	m := u.conv.ToModel(user)
	query := `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, role, created_at
	`

	var model converter.UserModel
	if err := tr.Conn(ctx, u.pool).QueryRow(ctx, query, m.Username, m.PasswordHash, m.Role).Scan(
		&model.ID, &model.Username, &model.PasswordHash, &model.Role, &model.CreatedAt,
	); err != nil {
		if postgresDuplicate(err) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrUserExists)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return u.conv.ToEntity(&model), nil
}

func (u *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`

	var model converter.UserModel
	if err := tr.Conn(ctx, u.pool).QueryRow(ctx, query, username).Scan(
		&model.ID, &model.Username, &model.PasswordHash, &model.Role, &model.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrUserNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return u.conv.ToEntity(&model), nil
}
