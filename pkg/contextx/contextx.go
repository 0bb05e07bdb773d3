// Package contextx 提供 context 传递事务句柄的辅助方法
package contextx

import "context"

type txKey struct{}

// WithTx 将事务句柄放入 context
func WithTx(ctx context.Context, tx any) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTx 从 context 中取出事务句柄，不存在时返回 nil
func GetTx(ctx context.Context) any {
	return ctx.Value(txKey{})
}
