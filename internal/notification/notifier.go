// Package notification publishes booking lifecycle events to kafka for
// the downstream delivery workers (email, sms). Publishing is
// fire-and-forget: failures are logged and never surface to the
// lifecycle transition that triggered them.
package notification

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"tickethub/internal/domain"
)

type BookingEvent struct {
	Type      string    `json:"type"`
	Reference string    `json:"reference"`
	BookingID int64     `json:"booking_id"`
	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	Status    string    `json:"status"`
	NetAmount string    `json:"net_amount"`
	Currency  string    `json:"currency"`
	At        time.Time `json:"at"`
}

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

type KafkaNotifier struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		topic: topic,
	}
}

func (n *KafkaNotifier) publish(ctx context.Context, eventType string, b *domain.Booking) {
	evt := BookingEvent{
		Type:      eventType,
		Reference: b.Reference,
		BookingID: b.ID,
		UserID:    b.UserID,
		EventID:   b.EventID,
		Status:    string(b.Status),
		NetAmount: b.NetAmount().String(),
		Currency:  b.Currency,
		At:        time.Now(),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("level=error msg=\"marshal notification\" type=%s reference=%s err=%v", eventType, b.Reference, err)
		return
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Topic: n.topic,
		Key:   []byte(b.Reference),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		log.Printf("level=error msg=\"publish notification\" type=%s reference=%s err=%v", eventType, b.Reference, err)
	}
}

func (n *KafkaNotifier) BookingConfirmed(ctx context.Context, b *domain.Booking) {
	n.publish(ctx, EventBookingConfirmed, b)
}

func (n *KafkaNotifier) BookingCancelled(ctx context.Context, b *domain.Booking) {
	n.publish(ctx, EventBookingCancelled, b)
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
