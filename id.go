package faucet

import "github.com/xraph/faucet/id"

// ID is the identifier type for all faucet records.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix
