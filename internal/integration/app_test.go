package integration_test

import (
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cinemaxhq/reservation-service/internal/app"
	"github.com/cinemaxhq/reservation-service/internal/event"
	"github.com/cinemaxhq/reservation-service/internal/mailer"
	"github.com/cinemaxhq/reservation-service/internal/payment"
	"github.com/cinemaxhq/reservation-service/internal/repository"
	appvalidator "github.com/cinemaxhq/reservation-service/internal/validator"
)

type TestApp struct {
	App         *app.Application
	DB          *pgxpool.Pool
	RedisClient *redis.Client
	Mailer      *mailer.MockMailer
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	validator := appvalidator.NewValidator()
	mockMailer := &mailer.MockMailer{}

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	sessionManager := app.NewSessionManager(redisClient)

	userRepo := repository.NewPostgresUserRepository(db)
	seatRepo := repository.NewPostgresSeatRepository(db)
	bookingRepo := repository.NewPostgresBookingRepository(db)
	holdStore := repository.NewRedisHoldStore(redisClient)

	paymentProvider := payment.NewMockPaymentProvider()
	publisher := &event.NoopPublisher{Logger: logger}

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		validator,
		mockMailer,
		sessionManager,
		userRepo,
		seatRepo,
		bookingRepo,
		holdStore,
		paymentProvider,
		publisher,
	)

	return &TestApp{
		App:         application,
		DB:          db,
		RedisClient: redisClient,
		Mailer:      mockMailer,
	}, nil
}
