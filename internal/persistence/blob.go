package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saripos/saripos/internal/credit"
	"github.com/saripos/saripos/internal/sales"
)

// DefaultPrefix namespaces the snapshot keys when none is configured.
const DefaultPrefix = "saripos"

// Store reads and writes whole snapshots.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}

// BlobStore keeps the snapshot in three Redis keys: the inventory CSV table,
// the credit accounts JSON and the sales history JSON.
type BlobStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewBlobStore constructs a BlobStore.
func NewBlobStore(client *redis.Client, prefix string, logger *slog.Logger) *BlobStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{client: client, prefix: prefix, logger: logger}
}

func (s *BlobStore) key(name string) string {
	return s.prefix + ":" + name
}

// InventoryKey, CreditKey and SalesKey expose the storage layout.
func (s *BlobStore) InventoryKey() string { return s.key("inventory") }
func (s *BlobStore) CreditKey() string    { return s.key("credit") }
func (s *BlobStore) SalesKey() string     { return s.key("sales") }
func (s *BlobStore) savedAtKey() string   { return s.key("saved_at") }

// Save writes all keys in one MULTI/EXEC.
func (s *BlobStore) Save(ctx context.Context, snap Snapshot) error {
	inv, err := EncodeInventoryCSV(snap.Products)
	if err != nil {
		return err
	}
	accounts := snap.Credit
	if accounts == nil {
		accounts = map[string][]credit.DebtEntry{}
	}
	cred, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("persistence: encode credit: %w", err)
	}
	history := snap.Sales
	if history == nil {
		history = []sales.Record{}
	}
	hist, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("persistence: encode sales: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.InventoryKey(), inv, 0)
		pipe.Set(ctx, s.CreditKey(), cred, 0)
		pipe.Set(ctx, s.SalesKey(), hist, 0)
		pipe.Set(ctx, s.savedAtKey(), snap.SavedAt.UTC().Format(time.RFC3339Nano), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("persistence: save snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot. Missing keys yield empty sections and corrupt
// JSON sections are replaced by empty ones.
func (s *BlobStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	inv, err := s.get(ctx, s.InventoryKey())
	if err != nil {
		return Snapshot{}, err
	}
	if len(inv) > 0 {
		if snap.Products, err = DecodeInventoryCSV(inv); err != nil {
			return Snapshot{}, err
		}
	}

	cred, err := s.get(ctx, s.CreditKey())
	if err != nil {
		return Snapshot{}, err
	}
	snap.Credit = map[string][]credit.DebtEntry{}
	if len(cred) > 0 {
		if err := json.Unmarshal(cred, &snap.Credit); err != nil || snap.Credit == nil {
			s.logger.Warn("discarding corrupt credit snapshot", slog.String("key", s.CreditKey()), slog.Any("error", err))
			snap.Credit = map[string][]credit.DebtEntry{}
		}
	}

	hist, err := s.get(ctx, s.SalesKey())
	if err != nil {
		return Snapshot{}, err
	}
	if len(hist) > 0 {
		if err := json.Unmarshal(hist, &snap.Sales); err != nil {
			s.logger.Warn("discarding corrupt sales snapshot", slog.String("key", s.SalesKey()), slog.Any("error", err))
			snap.Sales = nil
		}
	}

	if raw, err := s.get(ctx, s.savedAtKey()); err == nil && len(raw) > 0 {
		snap.SavedAt, _ = time.Parse(time.RFC3339Nano, string(raw))
	}
	return snap, nil
}

func (s *BlobStore) get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: get %s: %w", key, err)
	}
	return raw, nil
}
