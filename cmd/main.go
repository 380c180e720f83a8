package main

import (
	"context"
	"log"
	nethttp "net/http"
	"os/signal"
	"syscall"

	"bed-booking-service/config"
	"bed-booking-service/internal/module/booking/availability"
	"bed-booking-service/internal/module/booking/events"
	"bed-booking-service/internal/module/booking/handler"
	"bed-booking-service/internal/module/booking/repositories"
	"bed-booking-service/internal/module/booking/sweeper"
	"bed-booking-service/internal/module/booking/usecases"
	"bed-booking-service/internal/pkg/database"
	"bed-booking-service/internal/pkg/http"
	"bed-booking-service/internal/pkg/httpclient"
	log_internal "bed-booking-service/internal/pkg/log"
	"bed-booking-service/internal/pkg/messagestream"
	"bed-booking-service/internal/pkg/middleware"
	"bed-booking-service/internal/pkg/redis"
	"bed-booking-service/internal/pkg/scheduler"
	router "bed-booking-service/internal/route"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
)

func main() {
	cfg := config.InitConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, messageRouters, background := initService(ctx, cfg)

	for _, router := range messageRouters {
		go func(router *message.Router) {
			err := router.Run(ctx)
			if err != nil {
				log.Fatal(err)
			}
		}(router)
	}

	for _, run := range background {
		go run()
	}

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	// start http server
	http.StartHttpServer(app, cfg.HttpServer.Port)
}

func initService(ctx context.Context, cfg *config.Config) (*fiber.App, []*message.Router, []func()) {
	// init logger
	logZap := log_internal.SetupLogger()
	log_internal.Init(logZap)
	logger := log_internal.GetLogger()
	otelLogger := log_internal.Setup()

	// init database
	db := database.GetConnection(&cfg.Database)
	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("error migrate database: %v", err)
		}
	}

	// init redis
	redisClient := redis.SetupClient(&cfg.Redis)

	// init http client
	cb := httpclient.InitCircuitBreaker(&cfg.HttpClient, cfg.HttpClient.Type)
	httpClient := httpclient.InitHttpClient(&cfg.HttpClient, cb)

	// init message stream
	amqp := messagestream.NewAmpq(&cfg.MessageStream)

	// Init Subscriber
	subscriber, err := amqp.NewSubscriber()
	if err != nil {
		logger.Error(ctx, "Failed to create subscriber", err)
	}

	// Init Publisher
	publisher, err := amqp.NewPublisher()
	if err != nil {
		logger.Error(ctx, "Failed to create publisher", err)
	}

	// init scheduler
	taskScheduler := &scheduler.Scheduler{Log: logger}
	taskScheduler.InitClient(&cfg.Redis)

	bookingRepo := repositories.New(db, logger)
	identity := repositories.NewIdentity(logger, httpClient, &cfg.UserService)
	index := availability.New(bookingRepo, availability.NewRedisCache(redisClient, cfg.Reservation.AvailabilityCacheTTL), logger)
	emitter := events.New(publisher, logger)

	bookingUsecase := usecases.New(bookingRepo, index, emitter, taskScheduler, &cfg.Reservation, logger)

	lease := redis.NewLease(redisClient, "sweeper:lease", 2*cfg.Reservation.SweepInterval)
	bookingSweeper := sweeper.New(bookingRepo, index, emitter, lease, &cfg.Reservation, logger)

	middleware := middleware.Middleware{
		Log:      otelLogger,
		Identity: identity,
	}

	validator := validator.New()
	bookingHandler := handler.BookingHandler{
		Log:       otelLogger,
		Validator: validator,
		Usecase:   bookingUsecase,
		Sweeper:   bookingSweeper,
	}

	var messageRouters []*message.Router

	paymentCallbackRouter, err := messagestream.NewRouter(publisher, events.TopicPoisoned, "payment_callback_handler", events.TopicPaymentCallback, subscriber, bookingHandler.ConsumePaymentCallback)
	if err != nil {
		logger.Error(ctx, "Failed to create payment_callback router", err)
	} else {
		messageRouters = append(messageRouters, paymentCallbackRouter)
	}

	background := []func(){
		func() { bookingSweeper.Run(ctx) },
		func() {
			taskScheduler.StartHandler(&cfg.Redis,
				[]string{scheduler.TypeExpireReservation},
				[]func(ctx context.Context, t *asynq.Task) error{bookingHandler.ExpireReservation},
			)
		},
	}

	serverHttp := http.SetupHttpEngine(&cfg.HttpServer)

	var monitoring nethttp.Handler
	if cfg.HttpServer.Monitoring {
		monitoring = taskScheduler.Monitoring(&cfg.Redis)
	}

	r := router.Initialize(serverHttp, &bookingHandler, &middleware, monitoring)

	return r, messageRouters, background

}
