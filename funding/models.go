// Package funding records accepted pool top-ups.
package funding

import (
	"time"

	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/types"
)

// Record is one accepted funding notification.
type Record struct {
	ID        id.FundingID    `json:"id"`
	Sender    types.AccountID `json:"sender"`
	Amount    types.Amount    `json:"amount"`
	Message   string          `json:"message,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
