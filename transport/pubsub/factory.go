package pubsub

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nats-io/nats.go/micro"
	"go.uber.org/zap"

	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/events"
)

// NATSPubSub is the event bus backed by NATS JetStream. Domain events flow
// out through Publish; PullConsume feeds them back in through a durable
// consumer, so provisioning survives restarts.
type NATSPubSub interface {
	events.Bus

	AddJetStream() error
	AddStreamAndConsumer(ctx context.Context, cfg conf.StreamConsumer) error
	PullConsume(pair ConsumerStreamPair, handler events.MessageHandler) error
	AddService(cfg micro.Config) (micro.Service, error)
}

type ConsumerStreamPair struct {
	Consumer string
	Stream   string
}

func NewNATSPubSub(url string, name string, credsFile string) (NATSPubSub, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}

	if credsFile != "" {
		opts = append(opts, nats.UserCredentials(credsFile))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	ps := new(natsPubSub)
	ps.nc = nc
	return ps, nil
}

type natsPubSub struct {
	nc        *nats.Conn
	js        jetstream.JetStream
	consumers []jetstream.ConsumeContext
}

func (ps *natsPubSub) AddJetStream() error {
	js, err := jetstream.New(ps.nc)
	if err != nil {
		return err
	}

	ps.js = js
	return nil
}

func (ps *natsPubSub) AddStreamAndConsumer(ctx context.Context, cfg conf.StreamConsumer) error {
	stream, err := ps.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream.Name,
		Subjects: cfg.Stream.Subjects,
	})
	if err != nil {
		return err
	}

	_, err = stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:   cfg.Consumer.Name,
		AckPolicy: jetstream.AckExplicitPolicy,
	})

	return err
}

func (ps *natsPubSub) PullConsume(pair ConsumerStreamPair, handler events.MessageHandler) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cons, err := ps.js.Consumer(ctx, pair.Stream, pair.Consumer)
	if err != nil {
		return err
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		m := &events.Message{
			Topic: msg.Subject(),
			Data:  msg.Data(),
		}

		if err := handler(context.Background(), m); err != nil {
			zap.L().Error(err.Error(),
				zap.String("infra", "pubsub"),
				zap.String("topic", m.Topic),
			)

			msg.Nak()
			return
		}

		msg.Ack()
	})

	if err != nil {
		return err
	}

	ps.consumers = append(ps.consumers, cc)
	return nil
}

func (ps *natsPubSub) AddService(cfg micro.Config) (micro.Service, error) {
	return micro.AddService(ps.nc, cfg)
}

func (ps *natsPubSub) Publish(topic string, data []byte) error {
	if ps.js != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := ps.js.Publish(ctx, topic, data)
		return err
	}

	return ps.nc.Publish(topic, data)
}

func (ps *natsPubSub) Close() error {
	for _, cc := range ps.consumers {
		cc.Stop()
	}

	return ps.nc.Drain()
}
