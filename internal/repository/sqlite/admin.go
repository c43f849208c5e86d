package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/hnjobs/pkg/models"
)

func (r *SQLiteRepo) CreateAdmin(ctx context.Context, a *models.Admin) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("admin is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO admins (email, password_hash, updated) VALUES (?, ?, ?)`, a.Email, a.PasswordHash, now())
	if err != nil {
		return 0, mapConstraintErr(err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, email, password_hash, updated FROM admins WHERE email = ?`, email)
	var a models.Admin
	var pw sql.NullString
	if err := row.Scan(&a.ID, &a.Email, &pw, &a.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if pw.Valid {
		a.PasswordHash = pw.String
	}

	return &a, nil
}
