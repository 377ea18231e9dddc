package pool

import "context"

type Store interface {
	// InitPool stores the singleton. It fails if one already exists.
	InitPool(ctx context.Context, s *State) error
	GetPool(ctx context.Context) (*State, error)
}
