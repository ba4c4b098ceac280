// Package events implementa ports.EventEmitter: log estructurado, Redis pub/sub y fan-out.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

var (
	_ ports.EventEmitter = (*LogEmitter)(nil)
	_ ports.EventEmitter = (*RedisPublisher)(nil)
	_ ports.EventEmitter = Multi(nil)
)

// LogEmitter escribe cada evento en el log a nivel debug.
type LogEmitter struct {
	log zerolog.Logger
}

func NewLogEmitter(log zerolog.Logger) *LogEmitter {
	return &LogEmitter{log: log}
}

func (e *LogEmitter) Emit(_ context.Context, ev entity.ChangeEvent) {
	e.log.Debug().
		Str("entity_type", ev.EntityType).
		Str("entity_id", ev.EntityID).
		Str("action", ev.Action).
		Str("actor", ev.Actor).
		RawJSON("after", orNull(ev.After)).
		Msg("evento de cambio")
}

func orNull(b json.RawMessage) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}

// Multi reenvía cada evento a todos los emisores.
type Multi []ports.EventEmitter

func (m Multi) Emit(ctx context.Context, ev entity.ChangeEvent) {
	for _, e := range m {
		e.Emit(ctx, ev)
	}
}

// Publisher subconjunto de *redis.Client que usa RedisPublisher.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publica los eventos como JSON en un canal Redis desde un worker propio.
// Emit nunca bloquea: con el buffer lleno el evento se descarta y se registra.
type RedisPublisher struct {
	client  Publisher
	channel string
	log     zerolog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan entity.ChangeEvent
	done   chan struct{}
}

// NewRedisPublisher arranca el worker; Close drena la cola y lo detiene.
func NewRedisPublisher(client Publisher, channel string, buffer int, log zerolog.Logger) *RedisPublisher {
	if buffer <= 0 {
		buffer = 1024
	}
	p := &RedisPublisher{
		client:  client,
		channel: channel,
		log:     log,
		timeout: 2 * time.Second,
		queue:   make(chan entity.ChangeEvent, buffer),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Emit tras Close descarta el evento.
func (p *RedisPublisher) Emit(_ context.Context, ev entity.ChangeEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn().Str("entity_type", ev.EntityType).Str("entity_id", ev.EntityID).
			Msg("publicador cerrado, evento descartado")
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.log.Warn().Str("entity_type", ev.EntityType).Str("entity_id", ev.EntityID).
			Msg("cola de eventos llena, evento descartado")
	}
}

func (p *RedisPublisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		p.publish(ev)
	}
}

func (p *RedisPublisher) publish(ev entity.ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("serializar evento")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.log.Error().Err(err).Str("channel", p.channel).Str("entity_id", ev.EntityID).Msg("publicar evento")
	}
}

// Close deja de aceptar eventos y espera a que el worker vacíe la cola o a que ctx venza.
func (p *RedisPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
