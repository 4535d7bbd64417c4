package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"subledger/config"
	"subledger/core/runtime"
	"subledger/core/state"
	"subledger/native/subscription"
	"subledger/observability/logging"
	telemetry "subledger/observability/otel"
	"subledger/storage"
)

// session is one CLI invocation's view of the local ledger.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *storage.LevelDB
	processor *runtime.Processor
	shutdown  func(context.Context) error
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(logging.Options{
		Service:    "subledger-cli",
		Env:        cfg.Log.Env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	s := &session{cfg: cfg, logger: logger}
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			Environment: cfg.Log.Env,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		})
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		s.shutdown = shutdown
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	s.db = db
	s.processor = runtime.NewProcessor(state.NewManager(db))
	s.processor.SetRent(runtime.Rent{
		LamportsPerByteYear: cfg.Rent.LamportsPerByteYear,
		ExemptionYears:      cfg.Rent.ExemptionYears,
	})
	s.processor.SetLogger(logger)
	s.processor.Register(subscription.NewProgram())
	return s, nil
}

func (s *session) close(ctx context.Context) error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.shutdown != nil {
		errs = append(errs, s.shutdown(ctx))
	}
	return errors.Join(errs...)
}
