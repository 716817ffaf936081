package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/salesrollup/internal/adapter/changestream"
	"github.com/polkiloo/salesrollup/internal/aggregation"
	"github.com/polkiloo/salesrollup/internal/app"
	"github.com/polkiloo/salesrollup/internal/config"
	"github.com/polkiloo/salesrollup/internal/logger"
	"github.com/polkiloo/salesrollup/internal/pkg/auth"
	"github.com/polkiloo/salesrollup/internal/server/http/handlers"
	"github.com/polkiloo/salesrollup/internal/server/http/router"
	"github.com/polkiloo/salesrollup/internal/storage"
	"github.com/polkiloo/salesrollup/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		storage.Module,
		aggregation.Module,
		usecase.Module,
		changestream.Module,
		fx.Provide(func(f *app.SalesFacade) handlers.SalesFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
