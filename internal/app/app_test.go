package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/fx"

	"github.com/polkiloo/salesrollup/internal/adapter/changestream"
	"github.com/polkiloo/salesrollup/internal/config"
	"github.com/polkiloo/salesrollup/internal/domain/model"
	testhelpers "github.com/polkiloo/salesrollup/internal/test"
	"github.com/polkiloo/salesrollup/internal/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestEventProcessor() *worker.EventProcessor {
	return worker.NewEventProcessor(&testhelpers.EventHandlerStub{}, 1, 4, 1, time.Millisecond, discardLogger())
}

type failingWatcher struct{}

func (failingWatcher) Watch(context.Context, bson.Raw) (changestream.Stream, error) {
	return nil, errors.New("change streams need a replica set")
}

type emptyCheckpoints struct{}

func (emptyCheckpoints) Load(context.Context, string) (bson.Raw, error) { return nil, nil }
func (emptyCheckpoints) Save(context.Context, string, bson.Raw) error   { return nil }

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{RunAddress: ":9999"}
	router := gin.New()
	server := newHTTPServer(serverParams{Config: cfg, Router: router})
	if server.Addr != ":9999" {
		t.Fatalf("expected address :9999, got %q", server.Addr)
	}
	if server.Handler != router {
		t.Fatalf("expected handler to be router")
	}
}

func TestNewEventProcessorUsesConfig(t *testing.T) {
	proc := newEventProcessor(workerParams{
		Config: &config.Config{WorkerPoolSize: 4, QueueSize: 8, MaxDeliveryAttempts: 2, RetryDelay: time.Millisecond},
		Logger: discardLogger(),
	})
	if proc == nil {
		t.Fatal("expected event processor instance")
	}
}

func TestRegisterLifecycleStartStop(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	proc := newTestEventProcessor()
	cfg := &config.Config{ShutdownTimeout: 100 * time.Millisecond}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     discardLogger(),
		Server:     server,
		Worker:     proc,
		Stream:     changestream.Disabled(),
		Config:     cfg,
	})

	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}

	hook := recorder.Hooks[0]
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := hook.OnStart(ctx); err != nil {
		t.Fatalf("on start failed: %v", err)
	}
	if err := proc.Submit(model.ChangeEvent{TenantID: "store-1"}); err != nil {
		t.Fatalf("expected running worker, got %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hook.OnStop(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected on stop to finish")
	}
	if err := proc.Submit(model.ChangeEvent{}); !errors.Is(err, worker.ErrStopped) {
		t.Fatalf("expected stopped worker, got %v", err)
	}
}

func TestRegisterLifecycleStreamFailureStopsWorker(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	proc := newTestEventProcessor()
	stream := changestream.NewConsumer(failingWatcher{}, emptyCheckpoints{}, &testhelpers.EventHandlerStub{}, changestream.Options{Name: "orders"}, discardLogger(), nil)

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)},
		Logger:     discardLogger(),
		Server:     &http.Server{Addr: "127.0.0.1:0"},
		Worker:     proc,
		Stream:     stream,
		Config:     &config.Config{ShutdownTimeout: time.Second},
	})

	if err := recorder.Hooks[0].OnStart(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	if err := proc.Submit(model.ChangeEvent{}); !errors.Is(err, worker.ErrStopped) {
		t.Fatalf("expected worker to be stopped, got %v", err)
	}
}

func TestRegisterLifecycleShutdownOnServerError(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     discardLogger(),
		Server:     &http.Server{Addr: "bad addr"},
		Worker:     newTestEventProcessor(),
		Stream:     changestream.Disabled(),
		Config:     &config.Config{ShutdownTimeout: time.Second},
	})

	hook := recorder.Hooks[0]
	if err := hook.OnStart(context.Background()); err != nil {
		t.Fatalf("on start returned error: %v", err)
	}

	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}

	_ = hook.OnStop(context.Background())
}

func TestLifecycleRecorderAppend(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	recorder.Append(fx.Hook{})
	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected hook to be appended")
	}
}
