package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	conf, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", conf.App.Port)
	assert.Equal(t, "localhost:6379", conf.Redis.Addr)
	assert.Equal(t, 30*time.Minute, conf.Session.TTL)
	assert.Equal(t, "BLOG_SESSION", conf.Session.CookieName)
	assert.Equal(t, 10, conf.RateLimit.LoginAttempts)
	assert.Equal(t, "test-secret", conf.Session.Secret)
	assert.Empty(t, conf.App.TrustedProxies)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("REDIS_DB", "3")

	conf, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "9090", conf.App.Port)
	assert.Equal(t, 2*time.Hour, conf.Session.TTL)
	assert.Equal(t, 3, conf.Redis.DB)
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,192.168.0.0/16")

	conf, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, conf.App.TrustedProxies)
}

func TestMySQLDSN(t *testing.T) {
	m := MySQL{User: "root", Password: "pw", Host: "127.0.0.1", Port: "3306", DB: "tenco_blog"}

	dsn := m.DSN()

	assert.Contains(t, dsn, "root:pw@tcp(127.0.0.1:3306)/tenco_blog")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}
