package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGameConfDefaults(t *testing.T) {
	conf, err := LoadGameConf("")
	require.NoError(t, err)
	assert.Equal(t, DefaultGameConf(), conf)
	assert.Equal(t, ":4444", conf.ListenAddr())
	assert.Equal(t, 30*time.Minute, conf.Autosave())
	assert.Equal(t, 30*time.Minute, DefaultGameConf().Autosave())
	assert.Equal(t, ":4444", DefaultGameConf().ListenAddr())
}

func TestLoadGameConfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 5555
host: 127.0.0.1
max_connections: 10
dump_file: /var/lib/littlemud/world.db
autosave_interval: 0
log_commands: true
http_addr: 127.0.0.1:9100
`), 0o644))

	conf, err := LoadGameConf(path)
	require.NoError(t, err)
	assert.Equal(t, 5555, conf.Port)
	assert.Equal(t, "127.0.0.1:5555", conf.ListenAddr())
	assert.Equal(t, 10, conf.MaxConnections)
	assert.Equal(t, "/var/lib/littlemud/world.db", conf.DumpFile)
	assert.Zero(t, conf.Autosave())
	assert.True(t, conf.LogCommands)
	assert.Equal(t, "127.0.0.1:9100", conf.HTTPAddr)
	assert.Equal(t, path, conf.Path)
	// Unset keys keep their defaults.
	assert.Equal(t, "utf-8", conf.Encoding)
	assert.Equal(t, "backups", conf.BackupDir)
}

func TestLoadGameConfErrors(t *testing.T) {
	_, err := LoadGameConf(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [nope"), 0o644))
	_, err = LoadGameConf(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("port: 70000\nencoding: klingon\nmax_connections: -1\n"), 0o644))
	_, err = LoadGameConf(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port 70000 out of range")
	assert.Contains(t, err.Error(), "klingon")
	assert.Contains(t, err.Error(), "max_connections")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LITTLEMUD_PORT", "6000")
	t.Setenv("LITTLEMUD_DUMP_FILE", "other.db")
	t.Setenv("LITTLEMUD_LOG_COMMANDS", "true")
	t.Setenv("LITTLEMUD_HTTP_ADDR", ":9100")

	conf := DefaultGameConf()
	require.NoError(t, conf.ApplyEnv())
	assert.Equal(t, 6000, conf.Port)
	assert.Equal(t, "other.db", conf.DumpFile)
	assert.True(t, conf.LogCommands)
	assert.Equal(t, ":9100", conf.HTTPAddr)

	t.Setenv("LITTLEMUD_MAX_CONNECTIONS", "lots")
	conf = DefaultGameConf()
	err := conf.ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LITTLEMUD_MAX_CONNECTIONS")
	assert.Zero(t, conf.MaxConnections)
	assert.Equal(t, 6000, conf.Port)
}

func TestReloadOptions(t *testing.T) {
	g := newTestGame(t)
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 1234\nmax_connections: 3\nlog_commands: true\n"), 0o644))
	wiz := addPlayer(t, g, "Wizard", "wiz", "secret")
	conn := connectFake(t, g, wiz)

	g.reloadOptions(path)
	opts := g.Options()
	assert.Equal(t, 3, opts.MaxConnections)
	assert.True(t, opts.LogCommands)
	assert.Equal(t, 4444, opts.Port, "port needs a restart")
	assert.Eventually(t, func() bool {
		return conn.saw("GAME: Options reloaded: log_commands=true, max_connections=3.")
	}, waitFor, 5*time.Millisecond)
}

func TestWatchConfigReloadsBanner(t *testing.T) {
	g := newTestGame(t)
	dir := t.TempDir()
	banner := filepath.Join(dir, "banner.txt")
	require.NoError(t, os.WriteFile(banner, []byte("old"), 0o644))
	g.UpdateOptions(func(c *GameConf) { c.LoginBannerFile = banner })
	g.loadBanner()
	require.Equal(t, "old", g.Banner())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g.WatchConfig(ctx)

	require.NoError(t, os.WriteFile(banner, []byte("new\n"), 0o644))
	assert.Eventually(t, func() bool { return g.Banner() == "new" }, waitFor, 10*time.Millisecond)
}
