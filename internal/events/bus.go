// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/paperbound/paperbound/internal/config"
)

// Bus owns the pub/sub transport for domain events.
//
// The default transport is watermill's in-process gochannel, which is
// enough for a single-node deployment: events published by request
// handlers are consumed by the router in the same process. When
// events.nats_enabled is set the bus speaks NATS JetStream instead
// (optionally against an embedded nats-server), giving durable delivery
// across restarts and horizontal fan-out. Router and handler code is
// identical either way.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	embedded   *server.Server
	logger     watermill.LoggerAdapter
}

// NewBus creates the event transport from configuration.
func NewBus(cfg config.EventsConfig) (*Bus, error) {
	logger := NewWatermillLogger()

	if !cfg.NATSEnabled {
		channel := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, logger)
		return &Bus{
			publisher:  channel,
			subscriber: channel,
			logger:     logger,
		}, nil
	}

	bus := &Bus{logger: logger}

	url := cfg.NATSURL
	if cfg.EmbeddedServer {
		ns, err := startEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		bus.embedded = ns
		url = ns.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	publisher, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true, // Event IDs double as Nats-Msg-Id for dedup
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		bus.shutdownEmbedded()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	subscriber, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Unmarshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			AckAsync:      false,
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.MaxDeliver(5),
				natsgo.AckWait(30 * time.Second),
			},
		},
	}, logger)
	if err != nil {
		_ = publisher.Close()
		bus.shutdownEmbedded()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	bus.publisher = publisher
	bus.subscriber = subscriber
	return bus, nil
}

// Publisher returns the transport publisher.
func (b *Bus) Publisher() message.Publisher {
	return b.publisher
}

// Subscriber returns the transport subscriber.
func (b *Bus) Subscriber() message.Subscriber {
	return b.subscriber
}

// Close shuts down the transport and, when embedded, the NATS server.
func (b *Bus) Close() error {
	var firstErr error

	// gochannel is a single object serving both roles; closing it twice
	// is safe, so close publisher and subscriber unconditionally.
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.subscriber != nil {
		if err := b.subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	b.shutdownEmbedded()
	return firstErr
}

func (b *Bus) shutdownEmbedded() {
	if b.embedded == nil {
		return
	}
	b.embedded.Shutdown()
	b.embedded.WaitForShutdown()
	b.embedded = nil
}

// startEmbeddedServer boots an in-process NATS JetStream server so a
// single-binary deployment gets durable events without external infra.
func startEmbeddedServer(cfg config.EventsConfig) (*server.Server, error) {
	opts := &server.Options{
		ServerName: "paperbound-events",
		Host:       "127.0.0.1",
		Port:       -1, // Random free port; clients use ClientURL()
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		NoLog:      true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within timeout")
	}

	return ns, nil
}
