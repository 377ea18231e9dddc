package mongo

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

// poolDocID is the _id of the single pool document.
const poolDocID = "pool"

// ==================== Pool models ====================

// Amounts are stored as decimal strings; 128-bit values do not fit in a
// BSON integer.
type poolModel struct {
	grove.BaseModel `grove:"table:faucet_pool"`

	ID                 string    `grove:"id,pk"                 bson:"_id"`
	Owner              string    `grove:"owner"                 bson:"owner"`
	TokenContract      string    `grove:"token_contract"        bson:"token_contract"`
	TotalBalanceShare  string    `grove:"total_balance_share"   bson:"total_balance_share"`
	TotalShared        string    `grove:"total_shared"          bson:"total_shared"`
	TotalAccountShared string    `grove:"total_account_shared"  bson:"total_account_shared"`
	MaxSharePerAccount string    `grove:"max_share_per_account" bson:"max_share_per_account"`
	IsPaused           bool      `grove:"is_paused"             bson:"is_paused"`
	Reserved           string    `grove:"reserved"              bson:"reserved"`
	CreatedAt          time.Time `grove:"created_at"            bson:"created_at"`
	UpdatedAt          time.Time `grove:"updated_at"            bson:"updated_at"`
}

func toPoolModel(p *pool.State) *poolModel {
	return &poolModel{
		ID:                 poolDocID,
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
	var (
		state = &pool.State{
			Entity: types.Entity{
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Owner:         types.AccountID(m.Owner),
			TokenContract: types.AccountID(m.TokenContract),
			IsPaused:      m.IsPaused,
		}
		err error
	)
	fields := []struct {
		dst *types.Amount
		src string
	}{
		{&state.TotalBalanceShare, m.TotalBalanceShare},
		{&state.TotalShared, m.TotalShared},
		{&state.TotalAccountShared, m.TotalAccountShared},
		{&state.MaxSharePerAccount, m.MaxSharePerAccount},
		{&state.Reserved, m.Reserved},
	}
	for _, f := range fields {
		if *f.dst, err = types.ParseAmount(f.src); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// ==================== Share models ====================

type shareModel struct {
	grove.BaseModel `grove:"table:faucet_shares"`

	AccountID string    `grove:"account_id,pk" bson:"_id"`
	Amount    string    `grove:"amount"        bson:"amount"`
	CreatedAt time.Time `grove:"created_at"    bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"    bson:"updated_at"`
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

	ID             string     `grove:"id,pk"            bson:"_id"`
	AccountID      string     `grove:"account_id"       bson:"account_id"`
	Amount         string     `grove:"amount"           bson:"amount"`
	Memo           string     `grove:"memo"             bson:"memo"`
	Status         string     `grove:"status"           bson:"status"`
	Reason         string     `grove:"reason"           bson:"reason,omitempty"`
	Mode           string     `grove:"mode"             bson:"mode"`
	CapAtAdmission string     `grove:"cap_at_admission" bson:"cap_at_admission"`
	SettledAt      *time.Time `grove:"settled_at"       bson:"settled_at,omitempty"`
	CreatedAt      time.Time  `grove:"created_at"       bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"       bson:"updated_at"`
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
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	capAtAdmission, err := types.ParseAmount(m.CapAtAdmission)
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
		Amount:         amount,
		Memo:           m.Memo,
		Status:         transfer.Status(m.Status),
		Reason:         m.Reason,
		Mode:           transfer.Mode(m.Mode),
		CapAtAdmission: capAtAdmission,
		SettledAt:      m.SettledAt,
	}, nil
}

// ==================== Funding models ====================

type fundingModel struct {
	grove.BaseModel `grove:"table:faucet_fundings"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Sender    string    `grove:"sender"     bson:"sender"`
	Amount    string    `grove:"amount"     bson:"amount"`
	Message   string    `grove:"message"    bson:"message,omitempty"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
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
