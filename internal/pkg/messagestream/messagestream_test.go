package messagestream_test

import (
	"testing"

	"bed-booking-service/config"
	"bed-booking-service/internal/module/booking/mocks"
	"bed-booking-service/internal/pkg/messagestream"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(msg *message.Message) error { return nil }

func TestNewPublisherWithoutBroker(t *testing.T) {
	a := messagestream.NewAmpq(&config.MessageStreamConfig{Host: "127.0.0.1", Port: "1", Username: "guest", Password: "guest"})

	pub, err := a.NewPublisher()
	require.Error(t, err)
	assert.True(t, pub == nil, "publisher must be a nil interface")

	sub, err := a.NewSubscriber()
	require.Error(t, err)
	assert.True(t, sub == nil, "subscriber must be a nil interface")
}

func TestNewRouterNeedsConnections(t *testing.T) {
	_, err := messagestream.NewRouter(nil, "poisoned", "handler", "topic", nil, noop)
	assert.Error(t, err)

	_, err = messagestream.NewRouter(mocks.NewPublisher(), "poisoned", "handler", "topic", nil, noop)
	assert.Error(t, err)
}
