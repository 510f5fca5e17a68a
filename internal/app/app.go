package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"

	"github.com/cinemaxhq/reservation-service/internal/domain"
	"github.com/cinemaxhq/reservation-service/internal/event"
	"github.com/cinemaxhq/reservation-service/internal/fanout"
	"github.com/cinemaxhq/reservation-service/internal/mailer"
	"github.com/cinemaxhq/reservation-service/internal/payment"
	"github.com/cinemaxhq/reservation-service/internal/repository"
	"github.com/cinemaxhq/reservation-service/internal/reservation"
	appvalidator "github.com/cinemaxhq/reservation-service/internal/validator"
	"github.com/cinemaxhq/reservation-service/internal/vcs"
)

var (
	version = vcs.Version()
)

type Application struct {
	config         Config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	mailer         mailer.Mailer
	sessionManager *scs.SessionManager

	userRepo    domain.UserRepository
	seatRepo    domain.SeatRepository
	bookingRepo domain.BookingRepository

	seatMap *reservation.SeatMap
	holds   *reservation.HoldManager
	ledger  *reservation.BookingLedger
	fanout  *fanout.Fanout

	paymentProvider domain.PaymentProvider
	publisher       domain.EventPublisher
}

type Config struct {
	Port             int
	Env              string
	DB               DBConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
	AMQP             AMQPConfig
	Payment          PaymentConfig
	HoldTTL          time.Duration
	CancelCutoff     time.Duration
	OtelCollectorUrl string
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type AMQPConfig struct {
	URL   string
	Queue string
}

type PaymentConfig struct {
	Provider  string
	StripeKey string
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.SMTP.Host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.SMTP.Port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.SMTP.Username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.SMTP.Password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.SMTP.Sender, "smtp-sender", "CineMax <no-reply@cinemax.example.com>", "SMTP sender")

	flag.StringVar(&cfg.AMQP.URL, "amqp-url", "", "RabbitMQ URL for booking events (empty disables publishing)")
	flag.StringVar(&cfg.AMQP.Queue, "amqp-queue", event.DefaultQueue, "RabbitMQ queue for booking events")

	flag.StringVar(&cfg.Payment.Provider, "payment-provider", "mock", "Payment provider (mock|stripe)")
	flag.StringVar(&cfg.Payment.StripeKey, "stripe-key", "", "Stripe secret key")

	flag.DurationVar(&cfg.HoldTTL, "hold-ttl", reservation.DefaultHoldTTL, "Default seat hold duration")
	flag.DurationVar(&cfg.CancelCutoff, "cancel-cutoff", reservation.DefaultCancelCutoff, "Cancellation cutoff before showtime start")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	db, err := NewDatabasePool(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return err
	}
	defer db.Close()

	redisClient, err := NewRedisClient(cfg)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		return err
	}
	defer redisClient.Close()

	userRepo := repository.NewPostgresUserRepository(db)
	seatRepo := repository.NewPostgresSeatRepository(db)
	bookingRepo := repository.NewPostgresBookingRepository(db)
	holdStore := repository.NewRedisHoldStore(redisClient)

	paymentProvider, err := newPaymentProvider(cfg)
	if err != nil {
		logger.Error("failed to configure payment provider", "error", err)
		return err
	}

	publisher, closePublisher, err := newEventPublisher(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to message broker", "error", err)
		return err
	}
	defer closePublisher()

	app := NewApp(
		cfg,
		logger,
		db,
		redisClient,
		appvalidator.NewValidator(),
		mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender),
		NewSessionManager(redisClient),
		userRepo,
		seatRepo,
		bookingRepo,
		holdStore,
		paymentProvider,
		publisher,
	)

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		return err
	}
	defer shutdownTelemetry(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start reservation core", "error", err)
		return err
	}

	return app.serve(ctx)
}

// NewApp assembles the application from its dependencies. The seat map, hold
// manager, booking ledger and event fan-out are built here so that every
// caller shares a single reservation core.
func NewApp(
	cfg Config,
	logger *slog.Logger,
	db *pgxpool.Pool,
	redisClient redis.UniversalClient,
	validator *validator.Validate,
	mailer mailer.Mailer,
	sessionManager *scs.SessionManager,
	userRepo domain.UserRepository,
	seatRepo domain.SeatRepository,
	bookingRepo domain.BookingRepository,
	holdStore domain.HoldStore,
	paymentProvider domain.PaymentProvider,
	publisher domain.EventPublisher,
) *Application {
	seatEvents := fanout.New()
	seatMap := reservation.NewSeatMap(seatRepo, bookingRepo, seatEvents)
	holds := reservation.NewHoldManager(seatMap, seatRepo, holdStore, logger)
	ledger := reservation.NewBookingLedger(seatMap, holds, bookingRepo, publisher, logger, cfg.CancelCutoff)

	return &Application{
		config:          cfg,
		logger:          logger,
		db:              db,
		redis:           redisClient,
		validator:       validator,
		mailer:          mailer,
		sessionManager:  sessionManager,
		userRepo:        userRepo,
		seatRepo:        seatRepo,
		bookingRepo:     bookingRepo,
		seatMap:         seatMap,
		holds:           holds,
		ledger:          ledger,
		fanout:          seatEvents,
		paymentProvider: paymentProvider,
		publisher:       publisher,
	}
}

// Start recovers persisted holds and launches the expiry scheduler. Must be
// called before the server accepts traffic.
func (app *Application) Start(ctx context.Context) error {
	if err := app.holds.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover holds: %w", err)
	}

	app.holds.Start(ctx)

	return nil
}

func newPaymentProvider(cfg Config) (domain.PaymentProvider, error) {
	switch cfg.Payment.Provider {
	case "stripe":
		stripe.Key = cfg.Payment.StripeKey
		return payment.NewStripePaymentProvider(), nil
	case "mock":
		return payment.NewMockPaymentProvider(), nil
	default:
		return nil, fmt.Errorf("unknown payment provider: %q", cfg.Payment.Provider)
	}
}

func newEventPublisher(cfg Config, logger *slog.Logger) (domain.EventPublisher, func(), error) {
	if cfg.AMQP.URL == "" {
		return &event.NoopPublisher{Logger: logger}, func() {}, nil
	}

	publisher, err := event.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
	if err != nil {
		return nil, nil, err
	}

	closePublisher := func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close event publisher", "error", err)
		}
	}

	return publisher, closePublisher, nil
}

func NewSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func NewRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:        fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:     app.Routes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 5 * time.Second,
		// No write timeout: event streams stay open indefinitely.
		ErrorLog: slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		<-ctx.Done()

		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		shutdownError <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
