package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timbercraft/orchestrator/internal/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "HOST", "APP_ENV", "TRUSTED_WEBHOOK_SECRET", "PROBE_TIMEOUT", "LOG_TAIL_LINES", "WEB_HEALTH_URL", "OTEL_TRACES_SAMPLER_ARG"} {
		t.Setenv(key, "")
	}

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, config.DefaultWebhookSecret, cfg.WebhookSecret)
	assert.Equal(t, "http://web:3000/health", cfg.WebHealthURL)
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 200, cfg.LogTailLines)
	assert.Equal(t, "/var/run/docker.sock", cfg.DockerSocketPath)
	assert.Equal(t, 1.0, cfg.OTelSampleRatio)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("RAG_API_URL", "http://rag:8000/")
	t.Setenv("DOCLING_API_URL", "http://docling:8001")
	t.Setenv("PROBE_TIMEOUT", "2s")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "http://rag:8000", cfg.RAGAPIURL, "trailing slash is trimmed")
	assert.Equal(t, "http://docling:8001", cfg.DoclingAPIURL)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"PORT", "nine-thousand"},
		{"PROBE_TIMEOUT", "soon"},
		{"LOG_TAIL_LINES", "many"},
		{"OTEL_TRACES_SAMPLER_ARG", "half"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestValidate_WebhookSecret(t *testing.T) {
	base := config.Config{
		Port:         9000,
		ProbeTimeout: time.Second,
		LogTailLines: 200,
	}

	tests := []struct {
		name    string
		env     string
		secret  string
		wantErr bool
	}{
		{"development allows placeholder", "development", config.DefaultWebhookSecret, false},
		{"test allows empty", "test", "", false},
		{"production rejects placeholder", "production", config.DefaultWebhookSecret, true},
		{"production rejects empty", "production", "", true},
		{"production accepts real secret", "production", "s3cr3t-value", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Env = tt.env
			cfg.WebhookSecret = tt.secret
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, config.ErrInsecureWebhookSecret)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_PubSubPair(t *testing.T) {
	cfg := config.Config{
		Env:             "development",
		Port:            9000,
		ProbeTimeout:    time.Second,
		LogTailLines:    200,
		PubSubProjectID: "proj",
	}
	assert.Error(t, cfg.Validate())

	cfg.PubSubTopic = "orchestrator-events"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DOCLING_API_URL=http://from-file:8001\n"), 0o600))

	t.Setenv("DOCLING_API_URL", "")
	require.NoError(t, os.Unsetenv("DOCLING_API_URL"))
	t.Setenv("PORT", "9000")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:8001", cfg.DoclingAPIURL)
	require.NoError(t, os.Unsetenv("DOCLING_API_URL"))
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestValidate_SampleRatio(t *testing.T) {
	cfg := config.Config{Port: 9000, Env: "development", ProbeTimeout: time.Second, LogTailLines: 10}

	cfg.OTelSampleRatio = 1.5
	assert.Error(t, cfg.Validate())

	cfg.OTelSampleRatio = 0.25
	assert.NoError(t, cfg.Validate())
}
