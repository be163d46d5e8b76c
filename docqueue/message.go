package docqueue

import (
	"encoding/json"
	"time"

	"github.com/code19m/errx"
)

// Document is the persisted form of a queue message.
type Document struct {
	// ID is assigned by the store on insert and never changes.
	ID string

	// Payload is the JSON encoded value passed to Add. The queue never inspects it.
	Payload json.RawMessage

	// Visible is the earliest time the message can be claimed.
	Visible time.Time

	// Ack is the token of the latest claim. Empty until the first claim.
	Ack string

	// Tries counts successful claims.
	Tries int

	// Deleted is set once the message is acknowledged. A deleted document is never claimed again.
	Deleted *time.Time
}

// Message is the claimed form of a document handed to consumers.
// It is also the envelope forwarded to a dead-letter queue.
type Message struct {
	ID      string          `json:"id"`
	Ack     string          `json:"ack"`
	Payload json.RawMessage `json:"payload"`
	Tries   int             `json:"tries"`
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	err := json.Unmarshal(m.Payload, v)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{"message_id": m.ID}))
	}
	return nil
}

func (d *Document) message() *Message {
	return &Message{
		ID:      d.ID,
		Ack:     d.Ack,
		Payload: d.Payload,
		Tries:   d.Tries,
	}
}
