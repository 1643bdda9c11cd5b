package main

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"google.golang.org/api/option"

	"nearby/internal/api/middleware"
	"nearby/internal/config"
	"nearby/internal/repository"
	firestorestore "nearby/internal/repository/firestore"
	"nearby/internal/repository/memory"
	mongostore "nearby/internal/repository/mongo"
	"nearby/internal/repository/postgres"
	redisstore "nearby/internal/repository/redis"
)

// newFirebaseApp returns nil when neither the store nor auth needs Firebase.
func newFirebaseApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	if cfg.Store.Driver != config.DriverFirestore && cfg.Auth.Mode != config.AuthFirebase {
		return nil, nil
	}

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	return firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
}

// openStore builds the configured location store.
//
// Go Learning Note — Interfaces as Seams:
// Every branch returns a different concrete type, but callers only see
// repository.LocationStore. Swapping Redis for Postgres is a config change,
// not a code change, because nothing above this function knows which one
// it got.
func openStore(ctx context.Context, cfg *config.Config, app *firebase.App) (repository.LocationStore, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.NewLocationRepository(), nil

	case config.DriverRedis:
		r := cfg.Store.Redis
		store, err := redisstore.NewStore(redisstore.Config{
			Addrs:     r.Addrs,
			Username:  r.Username,
			Password:  r.Password,
			DB:        r.DB,
			KeyPrefix: r.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return store, nil

	case config.DriverFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		return firestorestore.NewStore(client, cfg.Store.Firestore.Collection)

	case config.DriverPostgres:
		store, err := postgres.NewStore(ctx, cfg.Store.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil

	case config.DriverMongo:
		m := cfg.Store.Mongo
		return mongostore.NewStore(ctx, mongostore.Config{
			URI:        m.URI,
			Database:   m.Database,
			Collection: m.Collection,
		})

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func newVerifier(ctx context.Context, cfg *config.Config, app *firebase.App) (middleware.TokenVerifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthMock:
		return middleware.MockVerifier{}, nil
	case config.AuthJWT:
		return middleware.NewJWTVerifier(cfg.Auth.JWTSecret)
	case config.AuthFirebase:
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase auth client: %w", err)
		}
		return middleware.NewFirebaseVerifier(client), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}
