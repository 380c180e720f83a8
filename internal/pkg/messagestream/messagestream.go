package messagestream

import (
	"fmt"
	"time"

	"bed-booking-service/config"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

type Ampq struct {
	cfg    *config.MessageStreamConfig
	logger watermill.LoggerAdapter
}

func NewAmpq(cfg *config.MessageStreamConfig) *Ampq {
	return &Ampq{
		cfg:    cfg,
		logger: watermill.NewStdLogger(false, false),
	}
}

func (a *Ampq) uri() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", a.cfg.Username, a.cfg.Password, a.cfg.Host, a.cfg.Port)
}

// pubSubConfig declares one durable fanout exchange per topic; each service gets its own queue.
func (a *Ampq) pubSubConfig() amqp.Config {
	return amqp.NewDurablePubSubConfig(a.uri(), amqp.GenerateQueueNameTopicNameWithSuffix(a.cfg.QueueSuffix))
}

// NewPublisher returns a nil interface on error, never a nil *amqp.Publisher.
func (a *Ampq) NewPublisher() (message.Publisher, error) {
	pub, err := amqp.NewPublisher(a.pubSubConfig(), a.logger)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

func (a *Ampq) NewSubscriber() (message.Subscriber, error) {
	sub, err := amqp.NewSubscriber(a.pubSubConfig(), a.logger)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// NewRouter consumes topic with handlerFunc. Messages that still fail after retries land on poisonedTopic.
func NewRouter(pub message.Publisher, poisonedTopic, handlerName, topic string, subscriber message.Subscriber, handlerFunc message.NoPublishHandlerFunc) (*message.Router, error) {
	if pub == nil || subscriber == nil {
		return nil, fmt.Errorf("router %s: publisher and subscriber are required", handlerName)
	}

	logger := watermill.NewStdLogger(false, false)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	poisonQueue, err := middleware.PoisonQueue(pub, poisonedTopic)
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(
		middleware.Recoverer,
		poisonQueue,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			Logger:          logger,
		}.Middleware,
	)

	router.AddNoPublisherHandler(handlerName, topic, subscriber, handlerFunc)

	return router, nil
}
