package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/jhoicas/stock-movements/internal/infrastructure/migration"
	"github.com/jhoicas/stock-movements/pkg/config"
	"github.com/jhoicas/stock-movements/pkg/logger"
)

// Uso: migrate [up|down|steps N|goto V|force V|version]
func main() {
	flag.Parse()
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Service: cfg.App.Name}).Component("migrator")

	m, err := migration.NewFromURL(cfg.DB.ConnectionString(), cfg.DB.MigrationsPath, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("migrador")
	}
	defer func() { _ = m.Close() }()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		var n int
		if n, err = intArg(); err == nil {
			err = m.Steps(n)
		}
	case "goto":
		var v int
		if v, err = intArg(); err == nil {
			err = m.GoTo(uint(v))
		}
	case "force":
		var v int
		if v, err = intArg(); err == nil {
			err = m.Force(v)
		}
	case "version":
		v, dirty, verr := m.Version()
		if verr == nil {
			log.Info().Uint("version", v).Bool("dirty", dirty).Msg("versión actual")
		}
		err = verr
	default:
		err = fmt.Errorf("comando desconocido %q", cmd)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("migración fallida")
	}
}

func intArg() (int, error) {
	n, err := strconv.Atoi(flag.Arg(1))
	if err != nil {
		return 0, fmt.Errorf("argumento numérico inválido %q", flag.Arg(1))
	}
	return n, nil
}
