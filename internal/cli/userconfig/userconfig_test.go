package userconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		want    UserConfig
		wantErr bool
	}{
		{
			name: "missing file uses defaults",
			want: UserConfig{APIURL: DefaultAPIURL},
		},
		{
			name:    "file values",
			content: "api_url: https://scolarite.univ.test\ntimeout: 5s\nlog_level: debug\n",
			want:    UserConfig{APIURL: "https://scolarite.univ.test", Timeout: 5 * time.Second, LogLevel: "debug"},
		},
		{
			name:    "environment overrides file",
			content: "api_url: https://scolarite.univ.test\n",
			env:     map[string]string{envAPIURL: "http://127.0.0.1:9000", envTimeout: "250ms"},
			want:    UserConfig{APIURL: "http://127.0.0.1:9000", Timeout: 250 * time.Millisecond},
		},
		{
			name:    "invalid timeout",
			env:     map[string]string{envTimeout: "soon"},
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			content: "api_url: [unterminated\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{envAPIURL, envTimeout, envLogLvl} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "config.yaml")
			if tt.content != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *cfg)
		})
	}
}

func TestReturnTo(t *testing.T) {
	t.Setenv(envAPIURL, "http://from-env")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, SetReturnTo(path, "students show"))

	location, err := TakeReturnTo(path)
	require.NoError(t, err)
	assert.Equal(t, "students show", location)

	location, err = TakeReturnTo(path)
	require.NoError(t, err)
	assert.Empty(t, location, "taken once")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-env", "environment overrides are not persisted")
}
