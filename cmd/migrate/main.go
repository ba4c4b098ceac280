// migrate aplica las migraciones pendientes y termina. Útil en despliegues donde la API
// no debe tener permisos DDL.
//
// Uso: go run ./cmd/migrate
package main

import (
	"context"
	"time"

	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Distribuidora-api/pkg/config"
	"github.com/jhoicas/Distribuidora-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "migrate"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	applied, err := postgres.Migrate(ctx, pool, log)
	if err != nil {
		pool.Close()
		log.Fatal().Err(err).Msg("migraciones")
	}
	log.Info().Int("applied", applied).Msg("migraciones al día")
}
