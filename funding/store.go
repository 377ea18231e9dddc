package funding

import "context"

type Store interface {
	ListFundings(ctx context.Context, opts ListOpts) ([]*Record, error)
}

// ListOpts pages through records ordered oldest first.
type ListOpts struct {
	Limit  int
	Offset int
}
