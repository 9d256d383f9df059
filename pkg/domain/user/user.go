package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/google/uuid"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 4

// User represents a registered trader.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created"`
}

// NewUser validates the credentials and creates a User with a hashed
// password.
func NewUser(username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", domain.ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf(
			"%w: password must be at least %d characters",
			domain.ErrValidation, MinPasswordLength,
		)
	}
	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:        uuid.New(),
		Username:  username,
		Password:  hashedPassword,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}, nil
}

// NewUserFromData creates a User from raw data (used for storage hydration).
func NewUserFromData(id uuid.UUID, username, password string, created time.Time) *User {
	return &User{
		ID:        id,
		Username:  username,
		Password:  password,
		CreatedAt: created,
	}
}

// VerifyPassword reports whether password matches the stored hash.
func (u *User) VerifyPassword(password string) bool {
	return CheckPassword(password, u.Password)
}
