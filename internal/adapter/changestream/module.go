package changestream

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/salesrollup/internal/config"
	"github.com/polkiloo/salesrollup/internal/storage/mongodb"
	"github.com/polkiloo/salesrollup/internal/usecase"
)

// Module provides the change stream consumer.
var Module = fx.Provide(newConsumer)

type consumerParams struct {
	fx.In

	Ctx        context.Context
	Config     *config.Config
	Logger     *slog.Logger
	Rollups    *usecase.RollupUseCase
	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
}

var connect = mongodb.Connect

func newConsumer(p consumerParams) (*Consumer, error) {
	if !p.Config.ChangeStreamEnabled {
		return Disabled(), nil
	}

	client, err := connect(p.Ctx, p.Config.MongoURI)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{OnStop: client.Disconnect})

	db := client.Database(p.Config.MongoDatabase)
	opts := Options{
		Name:        p.Config.OrdersCollection,
		MaxAttempts: p.Config.MaxDeliveryAttempts,
		RetryDelay:  p.Config.RetryDelay,
	}
	onFatal := func(error) {
		// Exit so the supervisor restarts from the saved checkpoint.
		_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
	}

	return NewConsumer(
		CollectionWatcher{Collection: db.Collection(p.Config.OrdersCollection)},
		mongodb.NewCheckpoints(db),
		p.Rollups,
		opts,
		p.Logger,
		onFatal,
	), nil
}
