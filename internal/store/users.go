package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pongarena/backend/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already taken")
)

const userColumns = `id, username, password_hash, avatar_url, status, created_at`

// CreateUser inserts a user and its profile row in one transaction.
func CreateUser(db *sqlx.DB, username, passwordHash string) (*models.User, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var u models.User
	err = tx.Get(&u, `INSERT INTO users (username, password_hash) VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
		RETURNING `+userColumns, username, passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO player_profiles (user_id) VALUES ($1)`, u.ID); err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByID(db *sqlx.DB, id int) (*models.User, error) {
	var u models.User
	err := db.Get(&u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByUsername(db *sqlx.DB, username string) (*models.User, error) {
	var u models.User
	err := db.Get(&u, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUserStatus writes presence. Users who chose invisible or do-not-disturb
// keep that status across connects; only online/offline transitions apply.
func SetUserStatus(db *sqlx.DB, userID int, status string) error {
	_, err := db.Exec(`UPDATE users SET status=$1 WHERE id=$2 AND status NOT IN ($3, $4)`,
		status, userID, models.StatusInvisible, models.StatusDoNotDisturb)
	return err
}
