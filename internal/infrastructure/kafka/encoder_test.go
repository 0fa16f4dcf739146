package kafka

import (
	"testing"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestProtoEncoderUpsert(t *testing.T) {
	exp := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	event := &usecase.ProductEvent{
		EventID:    "7f0c",
		Type:       usecase.ProductCreated,
		OccurredAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		Product: &domain.Product{
			ID:             42,
			Name:           "Arroz",
			Price:          decimal.RequireFromString("2.5"),
			MinStock:       10,
			CurrentStock:   4,
			ExpirationDate: &exp,
			Category:       "Granos",
		},
	}

	data, err := NewProtoEncoder().Encode(event)
	require.NoError(t, err)

	msg, err := Decode(data)
	require.NoError(t, err)

	fields := msg.AsMap()
	assert.Equal(t, "7f0c", fields["event_id"])
	assert.Equal(t, "product.created", fields["event_type"])
	assert.Equal(t, "2026-10-18T12:00:00Z", fields["occurred_at"])

	product := fields["product"].(map[string]any)
	assert.Equal(t, float64(42), product["id"])
	assert.Equal(t, "2.50", product["price"])
	assert.Equal(t, "2026-10-20", product["expiration_date"])
	assert.Nil(t, product["description"])
	assert.Nil(t, product["image_url"])
}

func TestProtoEncoderDeleteCarriesOnlyID(t *testing.T) {
	data, err := NewProtoEncoder().Encode(&usecase.ProductEvent{
		EventID:    "e1",
		Type:       usecase.ProductDeleted,
		OccurredAt: time.Now(),
		Product:    &domain.Product{ID: 3, Name: "Pan"},
	})
	require.NoError(t, err)

	msg, err := Decode(data)
	require.NoError(t, err)

	product := msg.GetFields()["product"].GetStructValue()
	require.NotNil(t, product)
	assert.Len(t, product.GetFields(), 1)
	assert.Equal(t, structpb.NewNumberValue(3).GetNumberValue(), product.GetFields()["id"].GetNumberValue())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}
