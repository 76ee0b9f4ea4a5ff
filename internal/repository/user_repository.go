package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/civictrack/road-registry/internal/model"
)

// ErrEmailExists is returned when an insert collides with the unique email
// (or phone) constraint on the users table.
var ErrEmailExists = errors.New("email already exists")

// UserRepo persists account records in the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,phone,password_hash,age,user_type,is_verified,is_active,total_contributions,created_at,updated_at"

// Create inserts a user and populates its ID.  The caller supplies a
// ready-made password hash; hashing lives in the service layer so the
// repository never sees plaintext credentials.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, phone, password_hash, age, user_type) VALUES (?,?,?,?,?,?)",
		u.Name, u.Email, u.Phone, u.PasswordHash, u.Age, u.UserType)
	if err != nil {
		// MySQL 1062 = duplicate entry for a unique key.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return r.DB.QueryRowContext(ctx,
		"SELECT is_verified,is_active,total_contributions,created_at,updated_at FROM users WHERE id=?",
		u.ID).Scan(&u.IsVerified, &u.IsActive, &u.TotalContributions, &u.CreatedAt, &u.UpdatedAt)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// SetVerified flips the email-verification flag; used by the verification
// callback flow.
func (r *UserRepo) SetVerified(ctx context.Context, id uint64, verified bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_verified=? WHERE id=?", verified, id)
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Age,
		&u.UserType, &u.IsVerified, &u.IsActive, &u.TotalContributions,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
