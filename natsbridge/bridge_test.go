package natsbridge

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanerius/eventhandler"
)

type counterCommand struct {
	Op    string `json:"op"`
	Delta int    `json:"delta"`
}

func TestHandlerDecodesJSON(t *testing.T) {
	var got []counterCommand
	h := eventhandler.New(func(c counterCommand) { got = append(got, c) })

	msgs := Handler(h, JSON[counterCommand](), nil)
	msgs.Call(&nats.Msg{Subject: "counter", Data: []byte(`{"op":"increase","delta":2}`)})
	msgs.Call(&nats.Msg{Subject: "counter", Data: []byte(`{"op":"decrease","delta":1}`)})

	assert.Equal(t, []counterCommand{
		{Op: "increase", Delta: 2},
		{Op: "decrease", Delta: 1},
	}, got)
}

func TestHandlerDropsUndecodable(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	calls := 0
	h := eventhandler.New(func(counterCommand) { calls++ })
	msgs := Handler(h, JSON[counterCommand](), log)

	msgs.Call(&nats.Msg{Subject: "counter", Data: []byte(`not json`)})
	assert.Equal(t, 0, calls)
	assert.Contains(t, buf.String(), "dropping undecodable message")
	assert.Contains(t, buf.String(), `"subject":"counter"`)

	msgs.Call(&nats.Msg{Subject: "counter", Data: []byte(`{}`)})
	assert.Equal(t, 1, calls)
}

func TestHandlerCustomDecoder(t *testing.T) {
	var got []string
	h := eventhandler.New(func(s string) { got = append(got, s) })
	upper := func(data []byte) (string, error) {
		if len(data) == 0 {
			return "", errors.New("empty")
		}
		return string(bytes.ToUpper(data)), nil
	}

	msgs := Handler(h, upper, nil)
	msgs.Call(&nats.Msg{Data: []byte("inc")})
	msgs.Call(&nats.Msg{})
	msgs.Call(&nats.Msg{Data: []byte("dec")})

	require.Len(t, got, 2)
	assert.Equal(t, []string{"INC", "DEC"}, got)
}

func TestHandlerIntoLoopPoster(t *testing.T) {
	registry := eventhandler.NewRegistry()
	loop := eventhandler.NewEventLoop(eventhandler.DefaultTickInterval, registry, nil)
	// never started: posts are only queued
	defer loop.Stop()

	eventhandler.RegisterHandler(registry, "counter", eventhandler.New(func(counterCommand) {}))
	posted := eventhandler.Map(loop.Poster("counter"), func(c counterCommand) any { return c })

	msgs := Handler(posted, JSON[counterCommand](), nil)
	msgs.Call(&nats.Msg{Data: []byte(`{"op":"increase","delta":1}`)})
	msgs.Call(&nats.Msg{Data: []byte(`oops`)})

	assert.Equal(t, 1, loop.Pending())
}
