package store

import "errors"

var (
	// ErrEmptyChangeset is returned by Apply when no pool state is supplied.
	ErrEmptyChangeset = errors.New("faucet/store: changeset has no pool state")

	// ErrDuplicateFunding is returned by Apply when the funding record ID is
	// already stored. SQL and mongo backends report their unique-key error.
	ErrDuplicateFunding = errors.New("faucet/store: funding record already exists")
)
