package services

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Fanout relays frames between relay instances so participants connected to
// different nodes still reach each other.
type Fanout interface {
	Publish(rooms []string, frame []byte) error
	Subscribe(deliver func(rooms []string, frame []byte)) error
	Close() error
}

const nodeHeader = "Chat-Node"

type fanoutEnvelope struct {
	Rooms []string        `json:"rooms"`
	Frame json.RawMessage `json:"frame"`
}

// NatsFanout publishes frames on a single subject. Frames published by this
// node are skipped on receipt.
type NatsFanout struct {
	nc      *nats.Conn
	subject string
	node    string
	sub     *nats.Subscription
}

// NewNatsFanout connects to url. node must match the WSManager's Node.
func NewNatsFanout(url, subject, node string) (*NatsFanout, error) {
	nc, err := nats.Connect(url,
		nats.Name("clinic-chat-"+node),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NatsFanout{nc: nc, subject: subject, node: node}, nil
}

func (f *NatsFanout) Publish(rooms []string, frame []byte) error {
	data, err := json.Marshal(fanoutEnvelope{Rooms: rooms, Frame: frame})
	if err != nil {
		return err
	}
	msg := nats.NewMsg(f.subject)
	msg.Header.Set(nodeHeader, f.node)
	msg.Data = data
	return f.nc.PublishMsg(msg)
}

func (f *NatsFanout) Subscribe(deliver func(rooms []string, frame []byte)) error {
	sub, err := f.nc.Subscribe(f.subject, func(msg *nats.Msg) {
		if msg.Header.Get(nodeHeader) == f.node {
			return
		}
		var env fanoutEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.Warn().Err(err).Msg("dropping malformed fan-out frame")
			return
		}
		deliver(env.Rooms, env.Frame)
	})
	if err != nil {
		return err
	}
	f.sub = sub
	return nil
}

func (f *NatsFanout) Close() error {
	if f.sub != nil {
		f.sub.Unsubscribe()
	}
	return f.nc.Drain()
}
