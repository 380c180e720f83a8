package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bed-booking-service/config"
	"bed-booking-service/internal/pkg/log"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
)

const (
	TypeExpireReservation = "booking:expire_reservation"
)

type ExpireReservationPayload struct {
	BookingID int64 `json:"booking_id" validate:"required"`
}

type Scheduler struct {
	Log    log.Logger
	Client *asynq.Client
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Monitoring returns the asynqmon UI rooted at /monitoring, mounted by the http router.
func (s *Scheduler) Monitoring(cfg *config.RedisConfig) http.Handler {
	return asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: redisOpt(cfg),
	})
}

func (s *Scheduler) InitClient(cfg *config.RedisConfig) *asynq.Client {
	s.Client = asynq.NewClient(redisOpt(cfg))
	return s.Client
}

// ScheduleExpiry enqueues a one-off expiry check at the given time. A booking gets at most one such task.
func (s *Scheduler) ScheduleExpiry(ctx context.Context, bookingID int64, at time.Time) error {
	payload, err := json.Marshal(ExpireReservationPayload{BookingID: bookingID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeExpireReservation, payload)
	_, err = s.Client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID(fmt.Sprintf("expire:%d", bookingID)),
		asynq.MaxRetry(3),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func (s *Scheduler) StartHandler(cfg *config.RedisConfig, taskTypes []string, handlerFunc []func(ctx context.Context, t *asynq.Task) error) {
	ctx := context.Background()
	srv := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 10,
			},
		},
	)
	mux := asynq.NewServeMux()

	for i, taskType := range taskTypes {
		mux = s.registerHandlers(mux, taskType, handlerFunc[i])
	}

	if err := srv.Run(mux); err != nil {
		s.Log.Error(ctx, "error start handler scheduler", err)
	}
}

func (s *Scheduler) registerHandlers(mux *asynq.ServeMux, typeTask string, handlerFunc func(ctx context.Context, t *asynq.Task) error) *asynq.ServeMux {
	mux.HandleFunc(typeTask, handlerFunc)
	return mux
}
