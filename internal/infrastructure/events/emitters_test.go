package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/events"
)

type fakeRedis struct {
	mu       sync.Mutex
	channel  string
	messages [][]byte
	fail     bool
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if f.fail {
		cmd.SetErr(errors.New("conexión rechazada"))
		return cmd
	}
	f.channel = channel
	f.messages = append(f.messages, message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func event(id string) entity.ChangeEvent {
	return entity.NewChangeEvent("Product", id, entity.ActionUpdate, "tester",
		map[string]any{"stock_quantity": 5}, map[string]any{"stock_quantity": 3}, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
}

func TestRedisPublisher_PublishesJSONInOrder(t *testing.T) {
	rdb := &fakeRedis{}
	p := events.NewRedisPublisher(rdb, "changes", 8, zerolog.Nop())

	p.Emit(context.Background(), event("p1"))
	p.Emit(context.Background(), event("p2"))
	require.NoError(t, p.Close(context.Background()))

	require.Len(t, rdb.messages, 2)
	assert.Equal(t, "changes", rdb.channel)
	var got entity.ChangeEvent
	require.NoError(t, json.Unmarshal(rdb.messages[0], &got))
	assert.Equal(t, "p1", got.EntityID)
	assert.Equal(t, "tester", got.Actor)
	assert.JSONEq(t, `{"stock_quantity":3}`, string(got.After))
}

func TestRedisPublisher_FailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	rdb := &fakeRedis{fail: true}
	p := events.NewRedisPublisher(rdb, "changes", 1, zerolog.New(&buf))

	p.Emit(context.Background(), event("p1"))
	require.NoError(t, p.Close(context.Background()))

	assert.Empty(t, rdb.messages)
	assert.Contains(t, buf.String(), "publicar evento")
}

func TestRedisPublisher_EmitTrasCloseSeDescarta(t *testing.T) {
	var buf bytes.Buffer
	rdb := &fakeRedis{}
	p := events.NewRedisPublisher(rdb, "changes", 4, zerolog.New(&buf))
	require.NoError(t, p.Close(context.Background()))

	assert.NotPanics(t, func() { p.Emit(context.Background(), event("tardío")) })
	require.NoError(t, p.Close(context.Background()), "Close es idempotente")
	assert.Empty(t, rdb.messages)
	assert.Contains(t, buf.String(), "publicador cerrado")
}

func TestRedisPublisher_EmitConcurrenteConClose(t *testing.T) {
	rdb := &fakeRedis{}
	p := events.NewRedisPublisher(rdb, "changes", 64, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.Emit(context.Background(), event("p1"))
			}
		}()
	}
	require.NoError(t, p.Close(context.Background()))
	wg.Wait()
}

type recorder struct{ got []string }

func (r *recorder) Emit(_ context.Context, ev entity.ChangeEvent) { r.got = append(r.got, ev.EntityID) }

func TestMulti_FansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	var buf bytes.Buffer
	m := events.Multi{a, b, events.NewLogEmitter(zerolog.New(&buf).Level(zerolog.DebugLevel))}

	m.Emit(context.Background(), event("p1"))

	assert.Equal(t, []string{"p1"}, a.got)
	assert.Equal(t, []string{"p1"}, b.got)
	assert.Contains(t, buf.String(), `"entity_id":"p1"`)
}
