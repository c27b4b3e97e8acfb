package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"exam-portal/internal/model"
)

const adminColumns = `id, full_name, email, password_hash, is_active, is_super_admin,
	created_by, created_at, updated_at`

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func scanAdmin(row pgx.Row) (model.Admin, error) {
	var a model.Admin
	err := row.Scan(&a.ID, &a.FullName, &a.Email, &a.PasswordHash, &a.IsActive, &a.IsSuperAdmin,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *AdminRepository) FindByID(ctx context.Context, id string) (model.Admin, error) {
	if !validID(id) {
		return model.Admin{}, model.ErrNotFound
	}

	a, err := scanAdmin(r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Admin{}, model.ErrNotFound
	}
	if err != nil {
		return model.Admin{}, fmt.Errorf("find admin by id: %w", err)
	}
	return a, nil
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (model.Admin, error) {
	a, err := scanAdmin(r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE lower(email) = $1`, model.NormalizeEmail(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Admin{}, model.ErrNotFound
	}
	if err != nil {
		return model.Admin{}, fmt.Errorf("find admin by email: %w", err)
	}
	return a, nil
}

func (r *AdminRepository) Create(ctx context.Context, a model.Admin) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO admins (`+adminColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.FullName, a.Email, a.PasswordHash, a.IsActive, a.IsSuperAdmin,
		a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	if isUniqueViolation(err) {
		return model.ErrDuplicateAccount
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

func (r *AdminRepository) Update(ctx context.Context, a model.Admin) error {
	if !validID(a.ID) {
		return model.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE admins
		 SET full_name = $2, password_hash = $3, is_active = $4, is_super_admin = $5, updated_at = $6
		 WHERE id = $1`,
		a.ID, a.FullName, a.PasswordHash, a.IsActive, a.IsSuperAdmin, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	return notFoundUnless(tag.RowsAffected() > 0)
}

func (r *AdminRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return model.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	return notFoundUnless(tag.RowsAffected() > 0)
}

func (r *AdminRepository) List(ctx context.Context) ([]model.Admin, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+adminColumns+` FROM admins ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	admins := make([]model.Admin, 0)
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

func (r *AdminRepository) CountCreatedBy(ctx context.Context, creatorID string) (int, error) {
	if !validID(creatorID) {
		return 0, nil
	}

	var count int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM admins WHERE created_by = $1`, creatorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count admins created by: %w", err)
	}
	return count, nil
}
