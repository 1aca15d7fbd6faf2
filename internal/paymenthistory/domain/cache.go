package domain

import "context"

// ListCache holds the newest-first history list between inserts.
type ListCache interface {
	Get(ctx context.Context) ([]PaymentRecord, bool)
	Set(ctx context.Context, records []PaymentRecord)
	Invalidate(ctx context.Context)
}
