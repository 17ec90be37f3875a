package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"go-agentcommerce/logger"
	"go-agentcommerce/payment/intent"
)

const (
	DefaultSubject = "checkout.fulfillment"
	workerQueue    = "fulfillment-workers"
)

// Requested is published once an intent is durably paid.
type Requested struct {
	Request     Request   `json:"request"`
	RequestedAt time.Time `json:"requestedAt"`
}

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Queue defers fulfillment to a Worker over NATS. Core NATS delivers at most
// once; a lost message leaves the paid intent without a fulfillment ref.
type Queue struct {
	pub     Publisher
	subject string
	now     func() time.Time
}

func NewQueue(pub Publisher, subject string) *Queue {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Queue{pub: pub, subject: subject, now: time.Now}
}

// Dispatch publishes the request and returns no ref; the worker records it.
func (q *Queue) Dispatch(_ context.Context, in *intent.Intent) (*intent.FulfillmentRef, error) {
	req, err := RequestFor(in)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(Requested{Request: req, RequestedAt: q.now()})
	if err != nil {
		return nil, err
	}
	if err := q.pub.Publish(q.subject, data); err != nil {
		return nil, fmt.Errorf("publish fulfillment for %s: %w", in.ID, err)
	}
	return nil, nil
}

// Recorder stores the storefront order of a paid intent.
type Recorder interface {
	RecordFulfillment(ctx context.Context, id string, ref intent.FulfillmentRef) error
}

type Worker struct {
	conn    Connector
	rec     Recorder
	timeout time.Duration
	log     zerolog.Logger
}

func NewWorker(conn Connector, rec Recorder) *Worker {
	return &Worker{conn: conn, rec: rec, timeout: 30 * time.Second, log: logger.Logger}
}

// Handle processes one Requested message.
func (w *Worker) Handle(ctx context.Context, data []byte) error {
	var ev Requested
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode fulfillment request: %w", err)
	}
	if ev.Request.IntentID == "" {
		return fmt.Errorf("fulfillment request without intent id")
	}

	res, err := w.conn.CreateOrder(ctx, ev.Request)
	if err != nil {
		return fmt.Errorf("create order for %s: %w", ev.Request.IntentID, err)
	}
	if err := w.rec.RecordFulfillment(ctx, ev.Request.IntentID, *res.Ref()); err != nil {
		return fmt.Errorf("record order %s for %s: %w", res.ExternalOrderID, ev.Request.IntentID, err)
	}
	w.log.Info().
		Str("intent", ev.Request.IntentID).
		Str("order", res.ExternalOrderID).
		Msg("fulfilled")
	return nil
}

// Subscribe joins the worker queue group on subject.
func (w *Worker) Subscribe(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	return nc.QueueSubscribe(subject, workerQueue, func(m *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := w.Handle(ctx, m.Data); err != nil {
			w.log.Error().Err(err).Str("subject", m.Subject).Msg("fulfillment")
		}
	})
}

// Connect dials NATS for the fulfillment queue.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("checkout-fulfillment"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
