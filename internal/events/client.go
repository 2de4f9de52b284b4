// Package events connects the conversation core to the voice platform over
// NATS: call lifecycle events in, turn replies and escalation signals out.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects for the voice call event stream.
const (
	SubjectCallStarted = "voice.call.started"
	SubjectCallTurn    = "voice.call.turn"
	SubjectCallEnded   = "voice.call.ended"
	SubjectEscalation  = "voice.call.escalated"
	SubjectExtraction  = "voice.extraction.completed"
)

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// SubscribeReply subscribes for request-reply traffic. The handler's return
// value is sent back on the message's reply subject; the voice gateway blocks
// on that reply, so handlers must answer within the turn latency budget.
func (c *Client) SubscribeReply(subject string, handler func(subject string, data []byte) any) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		out := handler(msg.Subject, msg.Data)
		if msg.Reply == "" || out == nil {
			return
		}
		payload, err := json.Marshal(out)
		if err != nil {
			c.logger.Error("marshal reply", "subject", subject, "error", err)
			return
		}
		if err := msg.Respond(payload); err != nil {
			c.logger.Error("send reply", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject, "mode", "request-reply")
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
