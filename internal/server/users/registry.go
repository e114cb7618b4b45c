package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/trackvault/internal/common"
)

// User is one entry of the static credential list. PasswordHash is a bcrypt
// string and is never logged or returned to clients.
type User struct {
	UserName     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
}

// Registry is the read-only set of known users, built once at startup.
type Registry struct {
	users map[string]User
}

// dummyHash is compared against when the username is unknown so a miss costs
// as much as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("trackvault-dummy-password"), bcrypt.DefaultCost)

func NewRegistry(list []User) (*Registry, error) {
	r := &Registry{users: make(map[string]User, len(list))}
	for i, u := range list {
		if strings.TrimSpace(u.UserName) == "" {
			return nil, fmt.Errorf("user #%d: empty username", i)
		}
		// the username is the first segment of every object key
		if !common.IsPathSegment(u.UserName) {
			return nil, fmt.Errorf("user %q: username must not contain '/' or be '.' or '..'", u.UserName)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("user %q: invalid password hash: %w", u.UserName, err)
		}
		if _, dup := r.users[u.UserName]; dup {
			return nil, fmt.Errorf("user %q: duplicate entry", u.UserName)
		}
		r.users[u.UserName] = u
	}
	return r, nil
}

// ParseRegistry reads the JSON array form: [{"username":..,"passwordHash":..}].
func ParseRegistry(data []byte) (*Registry, error) {
	var list []User
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse users: %w", err)
	}
	return NewRegistry(list)
}

// LoadRegistry parses inline when non-empty, otherwise the file at path.
func LoadRegistry(inline, path string) (*Registry, error) {
	if strings.TrimSpace(inline) != "" {
		return ParseRegistry([]byte(inline))
	}
	if path == "" {
		return nil, errors.New("no user list configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	return ParseRegistry(data)
}

func (r *Registry) Lookup(username string) (User, bool) {
	u, ok := r.users[username]
	return u, ok
}

func (r *Registry) Len() int {
	return len(r.users)
}

// Authenticate reports whether password matches the stored hash. Unknown
// users still pay for one bcrypt comparison.
func (r *Registry) Authenticate(username, password string) bool {
	u, ok := r.users[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// HashPassword is used by tooling to produce registry entries.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
