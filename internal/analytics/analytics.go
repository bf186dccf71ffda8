package analytics

import (
	"encoding/json"
	"time"

	"jokefeed/internal/config"
	"jokefeed/pkg/logger"

	"github.com/nats-io/nats.go"
)

const (
	DaySubject      = "usage.day"
	CategorySubject = "usage.category"
	ReviewSubject   = "usage.review"
)

// Sink receives fire-and-forget analytics events. Implementations must
// never block the caller on delivery and must swallow their own failures.
type Sink interface {
	DayIncremented(numDaysUsed int)
	CategoryViewed(categoryID string)
	ReviewAttempted(source string, prompted bool)
}

// NATS publishes analytics events to JetStream subjects. Publish failures
// are logged and dropped; events are best-effort by contract.
type NATS struct {
	conn      *nats.Conn
	jetstream nats.JetStreamContext
	cfg       config.NATSConfig
}

func New(cfg config.NATSConfig) (*NATS, error) {
	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &NATS{
		conn:      conn,
		jetstream: js,
		cfg:       cfg,
	}, nil
}

func (n *NATS) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

type dayEvent struct {
	NumDaysUsed int       `json:"num_days_used"`
	At          time.Time `json:"at"`
}

type categoryEvent struct {
	CategoryID string    `json:"category_id"`
	At         time.Time `json:"at"`
}

type reviewEvent struct {
	Source   string    `json:"source"`
	Prompted bool      `json:"prompted"`
	At       time.Time `json:"at"`
}

func (n *NATS) DayIncremented(numDaysUsed int) {
	n.publish(DaySubject, dayEvent{NumDaysUsed: numDaysUsed, At: time.Now().UTC()})
}

func (n *NATS) CategoryViewed(categoryID string) {
	n.publish(CategorySubject, categoryEvent{CategoryID: categoryID, At: time.Now().UTC()})
}

func (n *NATS) ReviewAttempted(source string, prompted bool) {
	n.publish(ReviewSubject, reviewEvent{Source: source, Prompted: prompted, At: time.Now().UTC()})
}

func (n *NATS) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal analytics event",
			logger.String("subject", subject),
			logger.Err(err),
		)
		return
	}

	if _, err := n.jetstream.PublishAsync(subject, data); err != nil {
		logger.Warn("Failed to publish analytics event",
			logger.String("subject", subject),
			logger.Err(err),
		)
		return
	}

	logger.Debug("Analytics event published", logger.String("subject", subject))
}

// Noop discards every event. Used in tests and when NATS is disabled.
type Noop struct{}

func (Noop) DayIncremented(int)           {}
func (Noop) CategoryViewed(string)        {}
func (Noop) ReviewAttempted(string, bool) {}
