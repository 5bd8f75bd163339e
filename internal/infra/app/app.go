package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dan-divy/spruce-sub000/internal/core/port"
	"github.com/dan-divy/spruce-sub000/internal/infra/authority"
	"github.com/dan-divy/spruce-sub000/internal/infra/config"
	kafkainfra "github.com/dan-divy/spruce-sub000/internal/infra/kafka"
	"github.com/dan-divy/spruce-sub000/internal/infra/logger"
	"github.com/dan-divy/spruce-sub000/internal/infra/realtime"
	redisinfra "github.com/dan-divy/spruce-sub000/internal/infra/redis"
	"github.com/dan-divy/spruce-sub000/internal/infra/security"
	"github.com/dan-divy/spruce-sub000/internal/infra/telemetry"
	filerepo "github.com/dan-divy/spruce-sub000/internal/repository/file"
	redisrepo "github.com/dan-divy/spruce-sub000/internal/repository/redis"
	"github.com/dan-divy/spruce-sub000/internal/transport/http/middleware"
	"github.com/dan-divy/spruce-sub000/internal/transport/http/routes"
	"github.com/dan-divy/spruce-sub000/internal/transport/terminal"
	"github.com/dan-divy/spruce-sub000/internal/usecase"
)

// Application owns every client component and their shutdown order.
type Application struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	out    io.Writer

	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
	registry *prometheus.Registry

	lifecycle     *usecase.SessionLifecycle
	chat          *usecase.ChatChannel
	notifications *usecase.NotificationChannel
	queue         *usecase.NotificationQueue
	presenter     *terminal.Presenter
	renderer      *terminal.Renderer
	router        *usecase.ViewRouter

	status *http.Server
}

// New wires the client from configuration. Output from views, chat and
// notifications is written to out.
func New(ctx context.Context, cfg *config.AppConfig, out io.Writer) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	log, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log, out: out, registry: prometheus.NewRegistry()}

	a.tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	metrics, err := telemetry.NewClientMetrics(telemetry.MetricsOptions{Registerer: a.registry})
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	tokens, err := a.tokenStore(ctx)
	if err != nil {
		return nil, err
	}

	var events port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		a.producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			return nil, fmt.Errorf("init kafka producer: %w", err)
		}
		events = kafkainfra.NewEventPublisher(a.producer, cfg.App, log)
	} else {
		log.Info("no kafka brokers configured, session events are logged only")
		events = kafkainfra.NewStubPublisher(log)
	}

	client := authority.NewClient(cfg.Authority.BaseURL, cfg.Authority.Timeout, log)

	a.lifecycle = usecase.NewSessionLifecycle(tokens, client, security.NewClaimsDecoder(), log).
		WithClockSkew(cfg.Session.ClockSkew).
		WithEventPublisher(events).
		WithRegistrationValidator(security.NewRegistrationPolicy()).
		WithMetrics(metrics)

	a.renderer = terminal.NewRenderer(out)
	a.presenter = terminal.NewPresenter(out, cfg.Notifications.DisplayDuration)
	a.queue = usecase.NewNotificationQueue(a.presenter).WithMetrics(metrics)
	a.presenter.OnComplete(a.queue.OnPresentationComplete)

	dialer := realtime.NewDialer(cfg.Realtime, log)
	a.chat = usecase.NewChatChannel(cfg.Realtime.ChatNamespace, dialer, a.lifecycle.CurrentAccessToken, log).
		WithMetrics(metrics)
	a.chat.SetHandlers(a.renderer.ChatHandlers())
	a.notifications = usecase.NewNotificationChannel(cfg.Realtime.NotificationNamespace, dialer, a.lifecycle.CurrentAccessToken, a.queue, log).
		WithMetrics(metrics)

	a.router = usecase.NewViewRouter(a.lifecycle, a.chat, a.notifications, client, a.renderer, log).
		WithMetrics(metrics)

	if cfg.Status.Enabled {
		a.status = a.statusServer()
	}

	return a, nil
}

func (a *Application) tokenStore(ctx context.Context) (port.TokenStore, error) {
	switch a.cfg.Storage.Backend {
	case "redis":
		client, err := redisinfra.NewClient(ctx, a.cfg.Redis, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.redis = client
		return redisrepo.NewTokenStore(client.Client(), a.cfg.Storage.KeyPrefix, a.logger), nil
	case "", "file":
		return filerepo.NewTokenStore(a.cfg.Storage.Path, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
}

func (a *Application) statusServer() *http.Server {
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: a.registry})
	if err != nil {
		a.logger.Warn("status server metrics unavailable", zap.Error(err))
	}

	deps := routes.Dependencies{
		Config:   a.cfg,
		Logger:   a.logger,
		Metrics:  httpMetrics,
		Gatherer: a.registry,
		State:    a.router,
		Realtime: a.notifications,
	}
	if a.redis != nil {
		deps.Cache = a.redis
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.Status.Host, a.cfg.Status.Port),
		Handler:           routes.Register(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (a *Application) Logger() *zap.Logger { return a.logger }

func (a *Application) Lifecycle() *usecase.SessionLifecycle { return a.lifecycle }

func (a *Application) Router() *usecase.ViewRouter { return a.router }

// Run navigates to the initial fragment, serves the status server if enabled and
// processes console input until ctx is done or the input ends.
func (a *Application) Run(ctx context.Context, in io.Reader, fragment string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErrCh := make(chan error, 1)
	if a.status != nil {
		a.logger.Info("starting status server", zap.String("address", a.status.Addr))
		go func() {
			if err := a.status.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrCh <- fmt.Errorf("run status server: %w", err)
			}
		}()
	}

	consoleErrCh := make(chan error, 1)
	go func() {
		consoleErrCh <- newConsole(a, in).run(ctx, fragment)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-consoleErrCh:
		runErr = err
	case err := <-serverErrCh:
		runErr = err
	}

	if a.status != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := a.status.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("status server shutdown failed", zap.Error(err))
		}
	}
	return runErr
}

// Close tears down channels and flushes telemetry and events.
func (a *Application) Close(ctx context.Context) error {
	var errs []error

	if a.chat != nil {
		errs = append(errs, a.chat.Close())
	}
	if a.notifications != nil {
		errs = append(errs, a.notifications.Close())
	}
	if a.presenter != nil {
		a.presenter.Stop()
	}
	if a.producer != nil {
		errs = append(errs, a.producer.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.tracer.Shutdown(ctx))

	_ = a.logger.Sync()
	return errors.Join(errs...)
}
