package aggregates

import (
	"context"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/ballot-consensus-backend/internal/domain/aggregates"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
)

// TxRunner opens the transaction one attempt of an aggregate write runs inside.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// InTx commits when fn returns nil and rolls back otherwise. A done ctx fails before a
// transaction is opened.
func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	if fn == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
