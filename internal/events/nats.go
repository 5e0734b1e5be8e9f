package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName     = "FAUCET"
	StreamSubjects = "faucet.>"
)

// JetStream is a Broker backed by a NATS JetStream stream.
type JetStream struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
}

// ConnectJetStream connects to url and creates or updates the FAUCET stream.
func ConnectJetStream(ctx context.Context, url string) (*JetStream, error) {
	conn, err := nats.Connect(url, nats.Name("solana-token-faucet"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{StreamSubjects},
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &JetStream{
		conn:   conn,
		js:     js,
		stream: stream,
	}, nil
}

// Stream returns the FAUCET stream handle.
func (b *JetStream) Stream() jetstream.Stream {
	return b.stream
}

func (b *JetStream) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := b.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (b *JetStream) Close() error {
	b.conn.Close()
	return nil
}
