package cmd_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/cmd"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestRootCommand 测试根命令和子命令注册
func TestRootCommand(t *testing.T) {
	root := cmd.GetRootCmd()
	assert.Equal(t, "factory-scheduler", root.Use)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"server", "migrate", "seed"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

// TestServerCommandFlags 测试 server 命令的标志
func TestServerCommandFlags(t *testing.T) {
	server, _, err := cmd.GetRootCmd().Find([]string{"server"})
	require.NoError(t, err)

	port := server.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "8080", port.DefValue)
	assert.NotNil(t, server.Flags().Lookup("host"))
}

// TestSeedCommand 测试 seed 命令写入 SQLite 数据库
func TestSeedCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "factory.db")
	t.Setenv("APP_DATABASE_DRIVER", "sqlite")
	t.Setenv("APP_DATABASE_PATH", dbPath)
	t.Setenv("APP_LOG_LEVEL", "error")

	var out bytes.Buffer
	root := cmd.GetRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"seed", "--file", "../internal/fixtures/testdata/factory.yaml"})
	t.Cleanup(func() { root.SetArgs(nil) })

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "seeded 2 machines, 2 workers, 2 tasks, 1 maintenance records")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	var count int64
	require.NoError(t, db.Model(&model.TaskModel{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
