package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	conf, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, conf.Database.Driver)
	assert.Equal(t, 10, conf.Pagination.FrontPageItemCount)
	assert.Equal(t, 100, conf.Pagination.MaxPerPage)
	assert.Equal(t, 0, conf.JWT.ExpireHours)
	assert.NoError(t, conf.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
  mode: release
database:
  driver: postgres
  dsn: host=db user=pagetags dbname=pagetags
jwt:
  secret: from-file
  expire_hours: 24
session:
  secret: session-secret
pagination:
  tags_per_page: 2
cache:
  backend: redis
  ttl: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("PAGETAGS_JWT__SECRET", "from-env")
	t.Setenv("PAGETAGS_CACHE__REDIS__ADDR", "redis:6379")

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, conf.Server.Port)
	assert.Equal(t, DriverPostgres, conf.Database.Driver)
	assert.Equal(t, "from-env", conf.JWT.Secret)
	assert.Equal(t, 24, conf.JWT.ExpireHours)
	assert.Equal(t, 2, conf.Pagination.TagsPerPage)
	// untouched keys keep their defaults
	assert.Equal(t, 10, conf.Pagination.TagPostsPerPage)
	assert.Equal(t, CacheRedis, conf.Cache.Backend)
	assert.Equal(t, 30*time.Second, conf.Cache.TTL)
	assert.Equal(t, "redis:6379", conf.Cache.Redis.Addr)
	assert.Equal(t, ":9090", conf.Addr())
	assert.NoError(t, conf.Validate())
}

func TestValidate(t *testing.T) {
	conf := Default()
	conf.Server.Mode = "release"
	assert.Error(t, conf.Validate(), "default secrets are rejected in release mode")

	conf = Default()
	conf.Database.Driver = "mysql"
	assert.Error(t, conf.Validate())

	conf = Default()
	conf.Cache.Backend = "memcached"
	assert.Error(t, conf.Validate())
}
