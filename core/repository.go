package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUsernameTaken is returned by Create/Update when the username collides
// with an existing account.
var ErrUsernameTaken = errors.New("username already taken")

// UserRecord is the persistence projection of a user. It carries the
// password hash and must never be serialized outward; handlers and tokens
// use the redacted View instead.
type UserRecord struct {
	ID             int64
	Username       string
	PasswordHash   string
	Name           string
	Email          string
	Birthday       *time.Time
	Role           string
	CreatedAt      time.Time
	FavoriteMovies []int64
}

// View returns the redacted projection safe for responses and token claims.
func (r *UserRecord) View() User {
	return User{
		ID:             r.ID,
		Username:       r.Username,
		Name:           r.Name,
		Email:          r.Email,
		Birthday:       r.Birthday,
		FavoriteMovies: r.FavoriteMovies,
		Role:           r.Role,
		CreatedAt:      r.CreatedAt,
	}
}

// NewUser holds the fields needed to create an account. PasswordHash is the
// already-hashed record; plaintext never reaches the repository.
type NewUser struct {
	Username     string
	PasswordHash string
	Name         string
	Email        string
	Birthday     *time.Time
	Role         string
}

// UserUpdate describes a profile update. Empty PasswordHash keeps the
// current one.
type UserUpdate struct {
	Username     string
	Name         string
	Email        string
	Birthday     *time.Time
	PasswordHash string
}

// UserListItem is a projection for admin user listing (no password hash).
type UserListItem struct {
	ID        int64     `json:"_id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRepository defines persistence operations for users. Lookups return
// ErrUserNotFound when no row matches; any other error is a store failure.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindByID(ctx context.Context, id int64) (*UserRecord, error)
	Create(ctx context.Context, u NewUser) (*UserRecord, error)
	Update(ctx context.Context, id int64, upd UserUpdate) (*UserRecord, error)
	Delete(ctx context.Context, id int64) error
	AddFavorite(ctx context.Context, userID, movieID int64) error
	RemoveFavorite(ctx context.Context, userID, movieID int64) error
	HasAdmin(ctx context.Context) (bool, error)
	List(ctx context.Context, page, perPage int) ([]UserListItem, int, error)
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

const userSelect = `
SELECT u.id, u.username, u.password_hash, u.name, u.email, u.birthday, u.role, u.created_at,
       COALESCE(array_agg(f.movie_id ORDER BY f.movie_id) FILTER (WHERE f.movie_id IS NOT NULL), '{}')
FROM users u
LEFT JOIN user_favorites f ON f.user_id = u.id
`

func (r *PgUserRepository) scanUser(row pgx.Row) (*UserRecord, error) {
	var u UserRecord
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Email,
		&u.Birthday, &u.Role, &u.CreatedAt, &u.FavoriteMovies)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	return r.scanUser(r.db.QueryRow(ctx, userSelect+`WHERE u.username=$1 GROUP BY u.id`, username))
}

func (r *PgUserRepository) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	return r.scanUser(r.db.QueryRow(ctx, userSelect+`WHERE u.id=$1 GROUP BY u.id`, id))
}

func (r *PgUserRepository) Create(ctx context.Context, u NewUser) (*UserRecord, error) {
	role := u.Role
	if role == "" {
		role = "user"
	}
	const q = `
INSERT INTO users (username, password_hash, name, email, birthday, role)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at`
	rec := UserRecord{
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Email:        u.Email,
		Birthday:     u.Birthday,
		Role:         role,
	}
	err := r.db.QueryRow(ctx, q, u.Username, u.PasswordHash, u.Name, u.Email, u.Birthday, role).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	rec.FavoriteMovies = []int64{}
	return &rec, nil
}

func (r *PgUserRepository) Update(ctx context.Context, id int64, upd UserUpdate) (*UserRecord, error) {
	const q = `
UPDATE users
SET username=$2, name=$3, email=$4, birthday=$5,
    password_hash = CASE WHEN $6 = '' THEN password_hash ELSE $6 END
WHERE id=$1`
	tag, err := r.db.Exec(ctx, q, id, upd.Username, upd.Name, upd.Email, upd.Birthday, upd.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *PgUserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgUserRepository) AddFavorite(ctx context.Context, userID, movieID int64) error {
	const q = `INSERT INTO user_favorites (user_id, movie_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`
	_, err := r.db.Exec(ctx, q, userID, movieID)
	return err
}

func (r *PgUserRepository) RemoveFavorite(ctx context.Context, userID, movieID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_favorites WHERE user_id=$1 AND movie_id=$2`, userID, movieID)
	return err
}

func (r *PgUserRepository) HasAdmin(ctx context.Context) (bool, error) {
	const q = `SELECT 1 FROM users WHERE role='admin' LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns paginated users without password hashes.
func (r *PgUserRepository) List(ctx context.Context, page, perPage int) ([]UserListItem, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, username, name, email, role, created_at FROM users ORDER BY id LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]UserListItem, 0, perPage)
	for rows.Next() {
		var u UserListItem
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
