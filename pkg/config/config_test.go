package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir on Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "kafka", cfg.Publisher.Driver)
	assert.Equal(t, 2*time.Second, cfg.Publisher.Timeout)
	assert.True(t, cfg.Publisher.Async)
	assert.Equal(t, "docuflow.document.events", cfg.Kafka.EventTopic)
	assert.Equal(t, "local", cfg.Lock.Driver)
	assert.Equal(t, 5*time.Second, cfg.Lock.WaitTimeout)
	assert.True(t, cfg.Auth.TrustHeaders)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DOCUFLOW_STORAGE_DRIVER", "memory")
	t.Setenv("DOCUFLOW_PUBLISHER_TIMEOUT", "250ms")
	t.Setenv("DOCUFLOW_LOCK_DRIVER", "redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Publisher.Timeout)
	assert.Equal(t, "redis", cfg.Lock.Driver)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "docs", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=docs sslmode=disable", db.DSN())
}
