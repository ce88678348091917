package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Background is a Context with no transaction bound.
func Background() Context {
	return Context{Ctx: context.Background()}
}

// Conn returns the bound transaction or the fallback handle, scoped to Ctx.
func (c Context) Conn(fallback *gorm.DB) *gorm.DB {
	conn := c.Tx
	if conn == nil {
		conn = fallback
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return conn.WithContext(ctx)
}
