package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	gochannel "github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
)

// Bus is an in-process watermill pub/sub with a router for handlers.
type Bus struct {
	Router     *message.Router
	Publisher  message.Publisher
	Subscriber message.Subscriber

	runOnce sync.Once
}

var _ Publisher = (*Bus)(nil)

func NewInMemoryBus() (*Bus, error) {
	logger := watermill.NopLogger{}
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1024}, logger)

	r, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "new watermill router")
	}
	return &Bus{Router: r, Publisher: pubsub, Subscriber: pubsub}, nil
}

func (b *Bus) Publish(_ context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	return b.Publisher.Publish(TopicStackEvents, message.NewMessage(watermill.NewUUID(), payload))
}

// AddHandler registers fn for every event. Must be called before Run.
func (b *Bus) AddHandler(name string, fn func(Event) error) {
	b.Router.AddConsumerHandler(name, TopicStackEvents, b.Subscriber, func(msg *message.Message) error {
		ev, err := Decode(msg.Payload)
		if err != nil {
			// Poison message; ack so it is not redelivered.
			return nil
		}
		return fn(ev)
	})
}

// Running is closed once the router is ready to deliver.
func (b *Bus) Running() chan struct{} {
	return b.Router.Running()
}

func (b *Bus) Run(ctx context.Context) error {
	var runErr error
	b.runOnce.Do(func() {
		go func() {
			<-ctx.Done()
			_ = b.Router.Close()
		}()
		runErr = b.Router.Run(ctx)
	})
	return runErr
}

func (b *Bus) Close() error {
	return b.Router.Close()
}

func Decode(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, errors.Wrap(err, "unmarshal event")
	}
	return ev, nil
}
