package mocks

import (
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher records published messages per topic.
type Publisher struct {
	mu       sync.Mutex
	Messages map[string][]*message.Message
	Err      error
}

func NewPublisher() *Publisher {
	return &Publisher{Messages: map[string][]*message.Message{}}
}

// Publish implements message.Publisher.
func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Messages[topic] = append(p.Messages[topic], messages...)
	return nil
}

// Close implements message.Publisher.
func (p *Publisher) Close() error {
	return nil
}

func (p *Publisher) Count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Messages[topic])
}
