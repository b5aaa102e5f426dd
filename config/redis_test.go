package config

import (
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func resetAll(t *testing.T) {
	t.Helper()
	ResetConfigForTest()
	ResetRedisClientForTest()
	t.Cleanup(func() {
		ResetConfigForTest()
		ResetRedisClientForTest()
	})
}

func TestConnectRedis_Disabled(t *testing.T) {
	resetAll(t)
	t.Setenv("APPENV", "development")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("STORAGE_BACKEND", StorageRedis)

	rdb, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_SkippedInTestEnv(t *testing.T) {
	resetAll(t)
	t.Setenv("APPENV", "test")
	t.Setenv("REDIS_ENABLED", "true")

	rdb, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_DefaultIsDisabled(t *testing.T) {
	resetAll(t)
	t.Setenv("APPENV", "development")
	t.Setenv("REDIS_ENABLED", "")
	t.Setenv("STORAGE_BACKEND", StorageBadger)

	rdb, err := ConnectRedis()
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_InvalidAddress(t *testing.T) {
	resetAll(t)
	t.Setenv("APPENV", "development")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")

	rdb, err := ConnectRedis()
	assert.Error(t, err)
	assert.Nil(t, rdb)
	assert.Nil(t, GetRedisClient())
}

func TestSetRedisClientForTest(t *testing.T) {
	resetAll(t)
	client, _ := redismock.NewClientMock()
	defer client.Close()

	SetRedisClientForTest(client)
	assert.Equal(t, client, GetRedisClient())

	ResetRedisClientForTest()
	assert.Nil(t, GetRedisClient())
}
