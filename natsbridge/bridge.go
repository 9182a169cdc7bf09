// Package natsbridge delivers NATS messages to event handlers.
package natsbridge

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/tanerius/eventhandler"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Decoder turns a message body into a payload
type Decoder[T any] func(data []byte) (T, error)

// JSON decodes message bodies as JSON into T
func JSON[T any]() Decoder[T] {
	return func(data []byte) (T, error) {
		var v T
		err := json.Unmarshal(data, &v)
		return v, err
	}
}

// Handler adapts h to receive raw NATS messages. Messages that fail to decode
// are logged and dropped; h is not called for them.
func Handler[T any](h eventhandler.EventHandler[T], decode Decoder[T], log logrus.FieldLogger) eventhandler.EventHandler[*nats.Msg] {
	if log == nil {
		log = discardLogger()
	}
	return eventhandler.FilterMap(h, func(msg *nats.Msg) (T, bool) {
		v, err := decode(msg.Data)
		if err != nil {
			log.WithError(err).WithField("subject", msg.Subject).Warn("dropping undecodable message")
			return v, false
		}
		return v, true
	})
}

type options struct {
	queue string
	log   logrus.FieldLogger
}

// Option configures Subscribe
type Option func(*options)

// WithQueue joins the queue group so each message goes to one member only
func WithQueue(queue string) Option {
	return func(o *options) {
		o.queue = queue
	}
}

// WithLogger sets where decoding failures are reported
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Subscribe decodes messages on subject with decode and calls h with each payload.
//
// NATS delivers a subscription's messages one at a time, but h must not be
// called from elsewhere at the same moment. Pass an EventLoop poster to move
// delivery onto the loop goroutine.
func Subscribe[T any](nc *nats.Conn, subject string, h eventhandler.EventHandler[T], decode Decoder[T], opts ...Option) (*nats.Subscription, error) {
	o := &options{log: discardLogger()}
	for _, opt := range opts {
		opt(o)
	}

	msgs := Handler(h, decode, o.log.WithField("subject", subject))
	cb := func(msg *nats.Msg) {
		msgs.Call(msg)
	}

	var (
		sub *nats.Subscription
		err error
	)
	if o.queue != "" {
		sub, err = nc.QueueSubscribe(subject, o.queue, cb)
	} else {
		sub, err = nc.Subscribe(subject, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	o.log.WithFields(logrus.Fields{"subject": subject, "queue": o.queue}).Info("subscribed")
	return sub, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
