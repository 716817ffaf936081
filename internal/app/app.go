package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/salesrollup/internal/adapter/changestream"
	"github.com/polkiloo/salesrollup/internal/config"
	"github.com/polkiloo/salesrollup/internal/domain/repository"
	"github.com/polkiloo/salesrollup/internal/usecase"
	"github.com/polkiloo/salesrollup/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		newSalesFacade,
		newHTTPServer,
		newEventProcessor,
	),
	fx.Invoke(registerLifecycle),
)

type facadeParams struct {
	fx.In

	Rollups   *usecase.RollupUseCase
	Processor *worker.EventProcessor
	Storage   repository.Factory
}

func newSalesFacade(p facadeParams) *SalesFacade {
	return NewSalesFacade(p.Rollups, p.Processor, p.Storage)
}

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Rollups *usecase.RollupUseCase
	Config  *config.Config
	Logger  *slog.Logger
}

func newEventProcessor(p workerParams) *worker.EventProcessor {
	return worker.NewEventProcessor(
		p.Rollups,
		p.Config.WorkerPoolSize,
		p.Config.QueueSize,
		p.Config.MaxDeliveryAttempts,
		p.Config.RetryDelay,
		p.Logger,
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.EventProcessor
	Stream     *changestream.Consumer
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting salesrollup",
				slog.String("addr", p.Server.Addr),
				slog.String("storage", p.Config.StorageBackend),
				slog.Bool("ledger", p.Config.LedgerEnabled),
			)
			p.Worker.Start(ctx)
			if err := p.Stream.Start(ctx); err != nil {
				p.Worker.Stop()
				return err
			}
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			serverErr := p.Server.Shutdown(shutdownCtx)
			p.Stream.Stop()
			p.Worker.Stop()

			if serverErr != nil && !errors.Is(serverErr, http.ErrServerClosed) {
				return serverErr
			}
			p.Logger.Info("salesrollup stopped")
			return nil
		},
	})
}
