package tr

import (
	"context"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
)

// Querier — общий интерфейс pgx.Tx и пула соединений.
type Querier = trmpgx.Tr

// Conn возвращает транзакцию из контекста, если она открыта менеджером, иначе пул.
func Conn(ctx context.Context, db trmpgx.Tr) Querier {
	return trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, db)
}

// NewManager создаёт менеджер транзакций поверх пула pgx.
func NewManager(db trmpgx.Transactional) *manager.Manager {
	return manager.Must(trmpgx.NewDefaultFactory(db))
}
