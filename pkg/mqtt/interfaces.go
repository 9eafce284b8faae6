package mqtt

import "context"

// Client is the broker connection the hydration agent talks through. The
// concrete paho-backed implementation lives in client.go; tests substitute
// their own.
type Client interface {
	// Connect dials the broker and blocks until the session is up or ctx
	// is cancelled.
	Connect(ctx context.Context) error

	// Disconnect tears down the broker session.
	Disconnect()

	// Subscribe registers handler for messages arriving on topic at the
	// given QoS.
	Subscribe(topic string, qos byte, handler MessageHandler) error

	// Publish sends payload to topic.
	Publish(topic string, qos byte, retained bool, payload []byte) error

	// IsConnected reports whether the broker session is currently up.
	IsConnected() bool
}

// MessageHandler receives inbound messages for a subscribed topic.
type MessageHandler func(Message)

// Message is a single inbound broker message.
type Message interface {
	// Topic returns the topic the message arrived on.
	Topic() string

	// Payload returns the raw message body.
	Payload() []byte

	// Ack acknowledges receipt (meaningful for QoS > 0 only).
	Ack()
}
