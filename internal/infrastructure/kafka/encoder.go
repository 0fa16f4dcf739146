package kafka

import (
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/jimlawless/whereami"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

// ProtoEncoder сериализует события товаров в protobuf (google.protobuf.Struct).
// Цена передаётся строкой с двумя знаками после запятой.
type ProtoEncoder struct{}

func NewProtoEncoder() *ProtoEncoder {
	return &ProtoEncoder{}
}

func (p *ProtoEncoder) Encode(event *usecase.ProductEvent) ([]byte, error) {
	msg, err := structpb.NewStruct(map[string]any{
		"event_id":    event.EventID,
		"event_type":  string(event.Type),
		"product_id":  float64(event.Product.ID),
		"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339Nano),
		"product":     productFields(event.Type, event.Product),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return data, nil
}

// Decode разбирает сообщение обратно в Struct, используется потребителями и в тестах.
func Decode(data []byte) (*structpb.Struct, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &msg, nil
}

// для удаления достаточно идентификатора
func productFields(eventType usecase.OutboxEventType, product *domain.Product) map[string]any {
	fields := map[string]any{
		"id": float64(product.ID),
	}
	if eventType == usecase.ProductDeleted {
		return fields
	}

	fields["name"] = product.Name
	fields["price"] = product.Price.StringFixed(domain.PriceScale)
	fields["min_stock"] = float64(product.MinStock)
	fields["current_stock"] = float64(product.CurrentStock)
	fields["category"] = product.Category
	fields["description"] = nil
	if product.Description != nil {
		fields["description"] = *product.Description
	}
	fields["expiration_date"] = nil
	if product.ExpirationDate != nil {
		fields["expiration_date"] = product.ExpirationDate.Format(dateLayout)
	}
	fields["image_url"] = nil
	if product.ImageURL != nil {
		fields["image_url"] = *product.ImageURL
	}

	return fields
}
