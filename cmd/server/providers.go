package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"relaychat/internal/config"
	"relaychat/internal/handler"
	"relaychat/internal/repository/memory"
	mongorepo "relaychat/internal/repository/mongo"
	"relaychat/internal/repository/postgres"
	"relaychat/internal/service"
)

// App is the main application container.
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Handler *handler.Handler
}

func provideLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}

// provideMessageStore connects the durable message log. Without a
// MONGO_URL the server runs on the in-memory store, losing history on
// restart.
func provideMessageStore(cfg *config.Config, log zerolog.Logger) (service.IMessageStore, func(), error) {
	if cfg.MongoURL == "" {
		log.Warn().Msg("MONGO_URL not set, using in-memory message store")
		return memory.NewMessageRepository(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := mongorepo.NewDB(ctx, cfg.MongoURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("connected to MongoDB")

	cleanup := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		db.Client().Disconnect(disconnectCtx)
	}
	return mongorepo.NewMessageRepository(db), cleanup, nil
}

// provideUserRepository connects account storage. Without a POSTGRES_URL
// accounts live in memory.
func provideUserRepository(cfg *config.Config, log zerolog.Logger) (service.IUserRepository, func(), error) {
	if cfg.PostgresURL == "" {
		log.Warn().Msg("POSTGRES_URL not set, using in-memory user store")
		return memory.NewUserRepository(), func() {}, nil
	}

	if err := postgres.RunMigrations(cfg.PostgresURL); err != nil {
		return nil, nil, err
	}
	db, err := postgres.NewDB(cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("connected to PostgreSQL")

	cleanup := func() { db.Close() }
	return postgres.NewUserRepository(db), cleanup, nil
}

func provideUserService(userRepo service.IUserRepository, cfg *config.Config) *service.UserService {
	return service.NewUserService(userRepo, cfg.JWTSecret)
}
