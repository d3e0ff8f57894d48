package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-flota/internal/application/inventory"
	"github.com/jhoicas/inventario-flota/internal/domain/entity"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (c *captureWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("se esperaba un deadline")
	}
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func sampleEvent() inventory.TransferEvent {
	return inventory.TransferEvent{
		Type:       inventory.EventTransferApproved,
		TransferID: "tr-1",
		VehicleID:  "veh-1",
		Direction:  entity.DirectionIssue,
		Status:     entity.TransferStatusApproved,
		Items: []entity.TransferItem{{
			InventoryID: "item-1",
			Layers:      []entity.TransferLayer{{LayerIndex: 0, Unit: "CTN", Quantity: 2, PiecesPerUnit: 120, BasePieces: 240}},
		}},
		Actor:      "user-1",
		OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPublish_MensajeConLlaveYCabecera(t *testing.T) {
	w := &captureWriter{}
	p := newKafkaPublisher(w)

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "tr-1", string(msg.Key), "la llave es el ID de la transferencia")
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, inventory.EventTransferApproved, string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "transfer.approved", body["type"])
	assert.Equal(t, "veh-1", body["vehicleId"])
	assert.Equal(t, "approved", body["status"])
}

func TestPublish_ErrorDelWriter(t *testing.T) {
	p := newKafkaPublisher(&captureWriter{err: errors.New("broker caído")})

	err := p.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transfer.approved")
}

func TestClose(t *testing.T) {
	w := &captureWriter{}
	require.NoError(t, newKafkaPublisher(w).Close())
	assert.True(t, w.closed)
}
