package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"stylegenie/pkg/metrics"
	"stylegenie/pkg/models"
)

type Type string

const (
	TypeSearchCompleted Type = "search.completed"
	TypeSearchFeedback  Type = "search.feedback"
)

// Event is one analytics record about a conversation.
type Event struct {
	Type         Type           `json:"type"`
	SessionID    string         `json:"sessionId"`
	Time         time.Time      `json:"time"`
	Description  string         `json:"description,omitempty"`
	Filters      models.Filters `json:"filters"`
	Products     int            `json:"products,omitempty"`
	Marketplaces []string       `json:"marketplaces,omitempty"`
	Fallbacks    int            `json:"fallbacks,omitempty"`
	Found        *bool          `json:"found,omitempty"`
}

// Publisher delivers events. Implementations must not block the caller for long.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON, keyed by session id so that one
// conversation lands on one partition.
type KafkaPublisher struct {
	w   MessageWriter
	reg *metrics.Registry
}

// NewKafkaWriter builds an async writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}
}

func NewKafkaPublisher(w MessageWriter, reg *metrics.Registry) *KafkaPublisher {
	return &KafkaPublisher{w: w, reg: reg}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.SessionID),
		Value: data,
		Time:  ev.Time,
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.Ctx(ctx).Warn().Err(err).Str("event", string(ev.Type)).Msg("event publish failed")
	}
	p.reg.Inc(ctx, "events_published_total", map[string]string{"type": string(ev.Type), "outcome": outcome}, 1)
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
