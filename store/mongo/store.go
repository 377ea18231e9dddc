package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/faucet"
	"github.com/xraph/faucet/funding"
	"github.com/xraph/faucet/id"
	"github.com/xraph/faucet/pool"
	"github.com/xraph/faucet/share"
	faucetstore "github.com/xraph/faucet/store"
	"github.com/xraph/faucet/transfer"
	"github.com/xraph/faucet/types"
)

// Collection name constants.
const (
	colPool      = "faucet_pool"
	colShares    = "faucet_shares"
	colTransfers = "faucet_transfers"
	colFundings  = "faucet_fundings"
)

// compile-time interface check
var _ faucetstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all faucet collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("faucet/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Pool Store ====================

func (s *Store) InitPool(ctx context.Context, p *pool.State) error {
	_, err := s.mdb.NewInsert(toPoolModel(p)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return faucet.ErrAlreadyInitialized
		}
		return fmt.Errorf("faucet/mongo: init pool: %w", err)
	}
	return nil
}

func (s *Store) GetPool(ctx context.Context) (*pool.State, error) {
	var m poolModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": poolDocID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, faucet.ErrNotInitialized
		}
		return nil, fmt.Errorf("faucet/mongo: get pool: %w", err)
	}
	return fromPoolModel(&m)
}

// ==================== Share Store ====================

func (s *Store) GetShare(ctx context.Context, account types.AccountID) (types.Amount, error) {
	var m shareModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": account.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return types.Amount{}, nil
		}
		return types.Amount{}, fmt.Errorf("faucet/mongo: get share: %w", err)
	}
	return types.ParseAmount(m.Amount)
}

func (s *Store) ListShares(ctx context.Context, opts share.ListOpts) ([]*share.Entry, error) {
	var models []shareModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("faucet/mongo: list shares: %w", err)
	}

	result := make([]*share.Entry, len(models))
	for i := range models {
		e, err := fromShareModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Transfer Store ====================

func (s *Store) GetTransfer(ctx context.Context, transferID id.TransferID) (*transfer.Transfer, error) {
	var m transferModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": transferID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, faucet.ErrTransferNotFound
		}
		return nil, fmt.Errorf("faucet/mongo: get transfer: %w", err)
	}
	return fromTransferModel(&m)
}

func (s *Store) ListTransfers(ctx context.Context, opts transfer.ListOpts) ([]*transfer.Transfer, error) {
	var models []transferModel

	filter := bson.M{}
	if opts.AccountID != "" {
		filter["account_id"] = opts.AccountID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("faucet/mongo: list transfers: %w", err)
	}

	result := make([]*transfer.Transfer, len(models))
	for i := range models {
		t, err := fromTransferModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// ==================== Funding Store ====================

func (s *Store) ListFundings(ctx context.Context, opts funding.ListOpts) ([]*funding.Record, error) {
	var models []fundingModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("faucet/mongo: list fundings: %w", err)
	}

	result := make([]*funding.Record, len(models))
	for i := range models {
		r, err := fromFundingModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Changeset ====================

// Apply writes the documents of cs in one multi-document transaction, so
// the deployment must be a replica set or a sharded cluster.
func (s *Store) Apply(ctx context.Context, cs *faucetstore.Changeset) error {
	if err := cs.Validate(); err != nil {
		return err
	}

	sess, err := s.mdb.Collection(colPool).Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("faucet/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, s.applyDocuments(ctx, cs)
	})
	return err
}

// applyDocuments runs inside the Apply transaction and may be retried.
func (s *Store) applyDocuments(ctx context.Context, cs *faucetstore.Changeset) error {
	upsert := options.UpdateOne().SetUpsert(true)

	if e := cs.Share; e != nil {
		_, err := s.mdb.Collection(colShares).UpdateOne(ctx,
			bson.M{"_id": e.AccountID.String()},
			bson.M{
				"$set": bson.M{
					"amount":     e.Amount.String(),
					"updated_at": e.UpdatedAt,
				},
				"$setOnInsert": bson.M{"created_at": e.CreatedAt},
			},
			upsert,
		)
		if err != nil {
			return fmt.Errorf("faucet/mongo: upsert share: %w", err)
		}
	}
	if cs.Transfer != nil {
		m := toTransferModel(cs.Transfer)
		_, err := s.mdb.Collection(colTransfers).UpdateOne(ctx,
			bson.M{"_id": m.ID},
			bson.M{"$set": bson.M{
				"account_id":       m.AccountID,
				"amount":           m.Amount,
				"memo":             m.Memo,
				"status":           m.Status,
				"reason":           m.Reason,
				"mode":             m.Mode,
				"cap_at_admission": m.CapAtAdmission,
				"settled_at":       m.SettledAt,
				"created_at":       m.CreatedAt,
				"updated_at":       m.UpdatedAt,
			}},
			upsert,
		)
		if err != nil {
			return fmt.Errorf("faucet/mongo: upsert transfer: %w", err)
		}
	}
	if cs.Funding != nil {
		m := toFundingModel(cs.Funding)
		_, err := s.mdb.Collection(colFundings).InsertOne(ctx, bson.M{
			"_id":        m.ID,
			"sender":     m.Sender,
			"amount":     m.Amount,
			"message":    m.Message,
			"created_at": m.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("faucet/mongo: insert funding: %w", err)
		}
	}

	m := toPoolModel(cs.Pool)
	res, err := s.mdb.Collection(colPool).UpdateOne(ctx,
		bson.M{"_id": poolDocID},
		bson.M{"$set": bson.M{
			"owner":                 m.Owner,
			"token_contract":        m.TokenContract,
			"total_balance_share":   m.TotalBalanceShare,
			"total_shared":          m.TotalShared,
			"total_account_shared":  m.TotalAccountShared,
			"max_share_per_account": m.MaxSharePerAccount,
			"is_paused":             m.IsPaused,
			"reserved":              m.Reserved,
			"updated_at":            m.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("faucet/mongo: update pool: %w", err)
	}
	if res.MatchedCount == 0 {
		return faucet.ErrNotInitialized
	}
	return nil
}

// migrationIndexes returns the index definitions for all faucet collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPool: {},
		colShares: {
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		},
		colTransfers: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colFundings: {
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
	}
}

// isNoDocuments checks for the MongoDB no-documents sentinel.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
