package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:4000", c.ServerURL)
	assert.Equal(t, 6*time.Minute, c.RequestTimeout)
}

func TestLoad(t *testing.T) {
	t.Setenv("CONFIG", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "cli.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_url":"https://music.example.com/","request_timeout":"90s"}`), 0o600))

	tests := []struct {
		name    string
		args    []string
		want    *Config
		wantErr bool
	}{
		{
			name: "defaults",
			args: nil,
			want: &Config{ServerURL: "http://127.0.0.1:4000", RequestTimeout: 6 * time.Minute},
		},
		{
			name: "json",
			args: []string{"-c", path},
			want: &Config{ServerURL: "https://music.example.com", RequestTimeout: 90 * time.Second},
		},
		{
			name: "flags override json",
			args: []string{"-config", path, "-a", "10.0.0.5:4000", "-t", "30"},
			want: &Config{ServerURL: "http://10.0.0.5:4000", RequestTimeout: 30 * time.Second},
		},
		{
			name: "unknown flags are ignored",
			args: []string{"-x", "1", "-a", "http://h:1"},
			want: &Config{ServerURL: "http://h:1", RequestTimeout: 6 * time.Minute},
		},
		{name: "bad timeout", args: []string{"-t", "abc"}, wantErr: true},
		{name: "missing file", args: []string{"-c", filepath.Join(dir, "nope.json")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := load(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.want, got))
		})
	}
}

func TestParseJson_BadContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	var c Config
	c.LoadDefaults()
	require.Error(t, parseJson(&c, []string{"-c", path}))
}
