package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/POS-Sucursales-api/internal/infrastructure/postgres"
	"github.com/jhoicas/POS-Sucursales-api/pkg/config"
	"github.com/jhoicas/POS-Sucursales-api/pkg/logger"
)

// Uso:
//
//	go run ./cmd/migrate -cmd up
//	go run ./cmd/migrate -cmd status
//	go run ./cmd/migrate -version 20260301090200
func main() {
	command := flag.String("cmd", "up", "comando goose: up, down, status, version, redo, reset")
	version := flag.String("version", "", "versión destino (YYYYMMDDHHMMSS); ignora -cmd")
	timeout := flag.Duration("timeout", 2*time.Minute, "tiempo máximo de la migración")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name + "-migrate"})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name+"-migrate")
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if *version != "" {
		if err := postgres.MigrateToVersion(ctx, pool, *version); err != nil {
			log.Error().Err(err).Str("version", *version).Msg("migración a versión")
			os.Exit(1)
		}
		log.Info().Str("version", *version).Msg("base de datos en la versión indicada")
		return
	}

	if err := postgres.Migrate(ctx, pool, *command, flag.Args()...); err != nil {
		log.Error().Err(err).Str("cmd", *command).Msg("migración")
		os.Exit(1)
	}
	log.Info().Str("cmd", *command).Msg("migración completada")
}
