package favorites

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// DefaultInvalidationSubject is the NATS subject invalidation messages use
// when none is configured.
const DefaultInvalidationSubject = "favorites.invalidate"

// NATSConn captures the subset of *nats.Conn used by the invalidation bus.
type NATSConn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// invalidationMsg is the wire form of one invalidation broadcast.
type invalidationMsg struct {
	Origin string   `json:"origin"`
	Tags   []string `json:"tags"`
}

type natsBus struct {
	conn    NATSConn
	subject string
	origin  string
}

// NewNATSBus returns an InvalidationBus over a plain NATS subject. An empty
// subject selects DefaultInvalidationSubject.
//
// Each bus stamps its publishes with a random origin and discards messages
// carrying that origin on receive; the publishing process already invalidated
// locally, so echoing its own broadcast back would do the work twice.
//
// Example:
//
//	nc, err := nats.Connect(nats.DefaultURL)
//	if err != nil {
//		return err
//	}
//	fav := favorites.New(store, favorites.WithBus(favorites.NewNATSBus(nc, "")))
func NewNATSBus(conn NATSConn, subject string) InvalidationBus {
	if subject == "" {
		subject = DefaultInvalidationSubject
	}
	return &natsBus{conn: conn, subject: subject, origin: uuid.NewString()}
}

// Publish implements InvalidationBus. The context is accepted for interface
// symmetry; core NATS publishes do not take one.
func (b *natsBus) Publish(_ context.Context, tags []string) error {
	if b.conn == nil {
		return fmt.Errorf("favorites: nats bus has no connection")
	}
	data, err := json.Marshal(invalidationMsg{Origin: b.origin, Tags: tags})
	if err != nil {
		return fmt.Errorf("favorites: encode invalidation: %w", err)
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		return fmt.Errorf("favorites: publish invalidation: %w", err)
	}
	return nil
}

// Subscribe implements InvalidationBus.
func (b *natsBus) Subscribe(fn func(tags []string)) (func(), error) {
	if b.conn == nil {
		return nil, fmt.Errorf("favorites: nats bus has no connection")
	}
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		var m invalidationMsg
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			return
		}
		if m.Origin == b.origin || len(m.Tags) == 0 {
			return
		}
		fn(m.Tags)
	})
	if err != nil {
		return nil, fmt.Errorf("favorites: subscribe invalidation: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}
