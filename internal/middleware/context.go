package middleware

import "context"

type holderKey struct{}

type identityHolder struct {
	userID string
}

func withHolder(ctx context.Context, h *identityHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

func holderFrom(ctx context.Context) *identityHolder {
	h, _ := ctx.Value(holderKey{}).(*identityHolder)
	return h
}
