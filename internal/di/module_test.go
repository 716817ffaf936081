package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/salesrollup/internal/app"
	"github.com/polkiloo/salesrollup/internal/config"
	"github.com/polkiloo/salesrollup/internal/domain/repository"
	"github.com/polkiloo/salesrollup/internal/test"
)

func testConfig() *config.Config {
	return &config.Config{
		RunAddress:          ":0",
		StorageBackend:      config.BackendMemory,
		LedgerEnabled:       true,
		LedgerTTL:           time.Hour,
		DateFallbackPolicy:  "processing",
		BusinessTimezone:    "UTC",
		Location:            time.UTC,
		TokenSecret:         "secret",
		WorkerPoolSize:      1,
		QueueSize:           1,
		MaxDeliveryAttempts: 1,
		RetryDelay:          time.Millisecond,
		ShutdownTimeout:     time.Millisecond,
		LogLevel:            "info",
	}
}

func TestModuleComposesGraph(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	var facade *app.SalesFacade
	var factory repository.Factory
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(
			fx.Replace(testConfig()),
			fx.Replace(logger),
		),
		fx.Populate(&facade, &factory),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	t.Cleanup(func() { _ = fxApp.Stop(context.Background()) })
	if facade == nil {
		t.Fatal("expected sales facade instance")
	}
	if _, ok := factory.Rollups().(repository.OnceApplier); !ok {
		t.Fatal("expected memory backend with atomic dedup")
	}
}

func TestModuleAcceptsReplacementFactory(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	stub := &test.FactoryStub{RollupsRepo: &test.RollupRepositoryStub{}}

	var factory repository.Factory
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(
			fx.Replace(testConfig()),
			fx.Replace(logger),
			fx.Decorate(func(repository.Factory) repository.Factory { return stub }),
		),
		fx.Populate(&factory),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	if factory != stub {
		t.Fatal("expected decorated factory")
	}
}

func TestModuleRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackend = "cassandra"

	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(fx.Replace(cfg), fx.Replace(slog.New(slog.NewJSONHandler(io.Discard, nil)))),
		fx.Invoke(func(*app.SalesFacade) {}),
	)
	if fxApp.Err() == nil {
		t.Fatal("expected graph error for unknown backend")
	}
}
