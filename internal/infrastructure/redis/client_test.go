package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/redis"
	"github.com/jhoicas/Distribuidora-api/pkg/config"
)

// Requiere un Redis real: TEST_REDIS_ADDRESS=localhost:6379.
func TestLocker_ExclusiveUntilReleased(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS no definido")
	}
	ctx := context.Background()
	rdb, err := redis.NewClient(ctx, config.RedisConfig{Address: addr, PoolSize: 2})
	require.NoError(t, err)
	defer rdb.Close()

	locker := redis.NewLocker(rdb)
	key := "lock:test:" + uuid.NewString()

	release, err := locker.Obtain(ctx, key, 10*time.Second)
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, key, 10*time.Second)
	assert.ErrorIs(t, err, ports.ErrLockNotObtained)

	require.NoError(t, release(ctx))
	release2, err := locker.Obtain(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.NoError(t, release2(ctx))
	// liberar dos veces no es error
	assert.NoError(t, release2(ctx))
}
