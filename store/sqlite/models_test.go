package sqlite

import (
	"testing"
	"time"

	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

func TestPoolModelKeepsWideAmounts(t *testing.T) {
	wide := types.MustParseAmount("340282366920938463463374607431768211455")
	m := toPoolModel(&pool.State{
		Entity:            types.NewEntity(),
		Owner:             "owner.testnet",
		TokenContract:     "token.testnet",
		TotalBalanceShare: wide,
		IsPaused:          true,
	})

	if m.ID != poolRowID {
		t.Errorf("ID = %d, want %d", m.ID, poolRowID)
	}

	got, err := fromPoolModel(m)
	if err != nil {
		t.Fatal(err)
	}
	if !got.TotalBalanceShare.Equal(wide) {
		t.Errorf("TotalBalanceShare = %s, want %s", got.TotalBalanceShare, wide)
	}
	if !got.IsPaused || got.Owner != "owner.testnet" {
		t.Errorf("unexpected pool %+v", got)
	}
}

func TestFromModelRejectsCorruptColumns(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"pool amount", func() error {
			_, err := fromPoolModel(&poolModel{TotalBalanceShare: "x", TotalShared: "0", TotalAccountShared: "0", MaxSharePerAccount: "0", Reserved: "0"})
			return err
		}},
		{"share amount", func() error {
			_, err := fromShareModel(&shareModel{AccountID: "alice.testnet", Amount: ""})
			return err
		}},
		{"transfer id prefix", func() error {
			_, err := fromTransferModel(&transferModel{ID: id.NewFundingID().String(), Amount: "1", CapAtAdmission: "1"})
			return err
		}},
		{"funding id", func() error {
			_, err := fromFundingModel(&fundingModel{ID: "nope", Amount: "1"})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTransferModelSettledAt(t *testing.T) {
	settled := time.Now().UTC()
	tr := &transfer.Transfer{
		Entity:    types.NewEntity(),
		ID:        id.NewTransferID(),
		AccountID: "alice.testnet",
		Amount:    types.NewAmount(5),
		Status:    transfer.StatusFailed,
		Reason:    "receiver not registered",
		Mode:      transfer.ModeLegacy,
		SettledAt: &settled,
	}

	got, err := fromTransferModel(toTransferModel(tr))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID.String() != tr.ID.String() || got.Mode != transfer.ModeLegacy || got.Reason != tr.Reason {
		t.Errorf("got %+v", got)
	}
	if got.SettledAt == nil || !got.SettledAt.Equal(settled) {
		t.Errorf("SettledAt = %v, want %v", got.SettledAt, settled)
	}
}
