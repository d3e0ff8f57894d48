package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/pkg/config"
)

var _ inventory.EventPublisher = (*KafkaPublisher)(nil)

// messageWriter lo que KafkaPublisher usa de *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica eventos de transferencia en un tópico; la llave es el ID del
// documento para conservar el orden por transferencia dentro de la partición.
type KafkaPublisher struct {
	w       messageWriter
	timeout time.Duration
}

// NewKafkaPublisher construye el writer síncrono hacia los brokers configurados.
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.TransferTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w)
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w, timeout: 5 * time.Second}
}

// Publish serializa el evento como JSON y lo envía con timeout propio.
func (p *KafkaPublisher) Publish(ctx context.Context, evt inventory.TransferEvent) error {
	msg, err := buildMessage(evt)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", evt.Type, err)
	}
	return nil
}

// Close vacía y cierra el writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func buildMessage(evt inventory.TransferEvent) (kafka.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(evt.TransferID),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type)},
		},
	}, nil
}
