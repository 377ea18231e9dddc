package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/share"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// poolRowID is the primary key of the single faucet_pool row.
const poolRowID = 1

// ==================== Pool models ====================

type poolModel struct {
	grove.BaseModel `grove:"table:faucet_pool"`

	ID                 int       `grove:"id,pk"`
	Owner              string    `grove:"owner"`
	TokenContract      string    `grove:"token_contract"`
	TotalBalanceShare  string    `grove:"total_balance_share"`
	TotalShared        string    `grove:"total_shared"`
	TotalAccountShared string    `grove:"total_account_shared"`
	MaxSharePerAccount string    `grove:"max_share_per_account"`
	IsPaused           bool      `grove:"is_paused"`
	Reserved           string    `grove:"reserved"`
	CreatedAt          time.Time `grove:"created_at"`
	UpdatedAt          time.Time `grove:"updated_at"`
}

func toPoolModel(p *pool.State) *poolModel {
	return &poolModel{
		ID:                 poolRowID,
		Owner:              p.Owner.String(),
		TokenContract:      p.TokenContract.String(),
		TotalBalanceShare:  p.TotalBalanceShare.String(),
		TotalShared:        p.TotalShared.String(),
		TotalAccountShared: p.TotalAccountShared.String(),
		MaxSharePerAccount: p.MaxSharePerAccount.String(),
		IsPaused:           p.IsPaused,
		Reserved:           p.Reserved.String(),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func fromPoolModel(m *poolModel) (*pool.State, error) {
	amounts, err := parseAmounts(m.TotalBalanceShare, m.TotalShared, m.TotalAccountShared, m.MaxSharePerAccount, m.Reserved)
	if err != nil {
		return nil, err
	}

	return &pool.State{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Owner:              types.AccountID(m.Owner),
		TokenContract:      types.AccountID(m.TokenContract),
		TotalBalanceShare:  amounts[0],
		TotalShared:        amounts[1],
		TotalAccountShared: amounts[2],
		MaxSharePerAccount: amounts[3],
		IsPaused:           m.IsPaused,
		Reserved:           amounts[4],
	}, nil
}

// ==================== Share models ====================

type shareModel struct {
	grove.BaseModel `grove:"table:faucet_shares"`

	AccountID string    `grove:"account_id,pk"`
	Amount    string    `grove:"amount"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toShareModel(e *share.Entry) *shareModel {
	return &shareModel{
		AccountID: e.AccountID.String(),
		Amount:    e.Amount.String(),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func fromShareModel(m *shareModel) (*share.Entry, error) {
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}

	return &share.Entry{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		AccountID: types.AccountID(m.AccountID),
		Amount:    amount,
	}, nil
}

// ==================== Transfer models ====================

type transferModel struct {
	grove.BaseModel `grove:"table:faucet_transfers"`

	ID             string     `grove:"id,pk"`
	AccountID      string     `grove:"account_id"`
	Amount         string     `grove:"amount"`
	Memo           string     `grove:"memo"`
	Status         string     `grove:"status"`
	Reason         string     `grove:"reason"`
	Mode           string     `grove:"mode"`
	CapAtAdmission string     `grove:"cap_at_admission"`
	SettledAt      *time.Time `grove:"settled_at"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
}

func toTransferModel(t *transfer.Transfer) *transferModel {
	return &transferModel{
		ID:             t.ID.String(),
		AccountID:      t.AccountID.String(),
		Amount:         t.Amount.String(),
		Memo:           t.Memo,
		Status:         string(t.Status),
		Reason:         t.Reason,
		Mode:           string(t.Mode),
		CapAtAdmission: t.CapAtAdmission.String(),
		SettledAt:      t.SettledAt,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func fromTransferModel(m *transferModel) (*transfer.Transfer, error) {
	transferID, err := id.ParseTransferID(m.ID)
	if err != nil {
		return nil, err
	}
	amounts, err := parseAmounts(m.Amount, m.CapAtAdmission)
	if err != nil {
		return nil, err
	}

	return &transfer.Transfer{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             transferID,
		AccountID:      types.AccountID(m.AccountID),
		Amount:         amounts[0],
		Memo:           m.Memo,
		Status:         transfer.Status(m.Status),
		Reason:         m.Reason,
		Mode:           transfer.Mode(m.Mode),
		CapAtAdmission: amounts[1],
		SettledAt:      m.SettledAt,
	}, nil
}

// ==================== Funding models ====================

type fundingModel struct {
	grove.BaseModel `grove:"table:faucet_fundings"`

	ID        string    `grove:"id,pk"`
	Sender    string    `grove:"sender"`
	Amount    string    `grove:"amount"`
	Message   string    `grove:"message"`
	CreatedAt time.Time `grove:"created_at"`
}

func toFundingModel(r *funding.Record) *fundingModel {
	return &fundingModel{
		ID:        r.ID.String(),
		Sender:    r.Sender.String(),
		Amount:    r.Amount.String(),
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
	}
}

func fromFundingModel(m *fundingModel) (*funding.Record, error) {
	fundingID, err := id.ParseFundingID(m.ID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}

	return &funding.Record{
		ID:        fundingID,
		Sender:    types.AccountID(m.Sender),
		Amount:    amount,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}, nil
}

// parseAmounts parses decimal columns in order.
func parseAmounts(values ...string) ([]types.Amount, error) {
	out := make([]types.Amount, len(values))
	for i, v := range values {
		a, err := types.ParseAmount(v)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}
