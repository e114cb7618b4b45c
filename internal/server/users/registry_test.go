package users

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hash(t *testing.T, pw string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func TestNewRegistry_Validation(t *testing.T) {
	h := hash(t, "pw")

	tests := []struct {
		name    string
		list    []User
		wantErr string
	}{
		{name: "ok", list: []User{{UserName: "alice", PasswordHash: h}, {UserName: "bob", PasswordHash: h}}},
		{name: "empty list is allowed", list: nil},
		{name: "blank username", list: []User{{UserName: " ", PasswordHash: h}}, wantErr: "empty username"},
		{name: "slash in username", list: []User{{UserName: "alice/bob", PasswordHash: h}}, wantErr: "must not contain '/'"},
		{name: "dot username", list: []User{{UserName: ".", PasswordHash: h}}, wantErr: "must not contain '/'"},
		{name: "dot-dot username", list: []User{{UserName: "..", PasswordHash: h}}, wantErr: "must not contain '/'"},
		{name: "plain text password", list: []User{{UserName: "alice", PasswordHash: "secret"}}, wantErr: "invalid password hash"},
		{name: "duplicate", list: []User{{UserName: "alice", PasswordHash: h}, {UserName: "alice", PasswordHash: h}}, wantErr: "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegistry(tt.list)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.list), r.Len())
		})
	}
}

func TestRegistry_Authenticate(t *testing.T) {
	r, err := NewRegistry([]User{{UserName: "alice", PasswordHash: hash(t, "wonderland")}})
	require.NoError(t, err)

	assert.True(t, r.Authenticate("alice", "wonderland"))
	assert.False(t, r.Authenticate("alice", "Wonderland"))
	assert.False(t, r.Authenticate("alice", ""))
	assert.False(t, r.Authenticate("mallory", "wonderland"))

	u, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", u.UserName)
	_, ok = r.Lookup("mallory")
	assert.False(t, ok)
}

func TestLoadRegistry(t *testing.T) {
	h := hash(t, "pw")
	inline := `[{"username":"alice","passwordHash":"` + h + `"}]`

	t.Run("inline", func(t *testing.T) {
		r, err := LoadRegistry(inline, "")
		require.NoError(t, err)
		assert.True(t, r.Authenticate("alice", "pw"))
	})

	t.Run("file", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "users.json")
		require.NoError(t, os.WriteFile(p, []byte(inline), 0o600))
		r, err := LoadRegistry("", p)
		require.NoError(t, err)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("inline wins over file", func(t *testing.T) {
		r, err := LoadRegistry(inline, "/does/not/exist.json")
		require.NoError(t, err)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := LoadRegistry("", "")
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry("", filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := LoadRegistry(`{"username":"alice"}`, "")
		require.Error(t, err)
	})
}

func TestHashPassword_RoundTrip(t *testing.T) {
	h, err := HashPassword("pw")
	require.NoError(t, err)

	r, err := NewRegistry([]User{{UserName: "dave", PasswordHash: h}})
	require.NoError(t, err)
	assert.True(t, r.Authenticate("dave", "pw"))
}
