package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/flock"

	"cpamm/internal/model"
)

const snapshotVersion = 1

// ErrStateLocked is returned when another process holds the state file.
var ErrStateLocked = errors.New("state file is in use by another process")

// FileStore is a MemoryStore persisted to a JSON file on every commit. The
// store holds an exclusive lock on <path>.lock until Close.
type FileStore struct {
	*MemoryStore
	path string
	lock *flock.Flock
}

type snapshot struct {
	Version   int             `json:"version"`
	Assets    []assetRecord   `json:"assets"`
	Accounts  []accountRecord `json:"accounts"`
	Pools     []model.Pool    `json:"pools"`
	UpdatedAt string          `json:"updated_at"`
}

type assetRecord struct {
	Asset         common.Address `json:"asset"`
	Supply        uint64         `json:"supply"`
	MintAuthority common.Address `json:"mint_authority"`
	Derived       bool           `json:"derived"`
}

type accountRecord struct {
	Asset     common.Address  `json:"asset"`
	Account   common.Address  `json:"account"`
	Balance   uint64          `json:"balance"`
	Authority *common.Address `json:"authority,omitempty"`
	Derived   bool            `json:"derived,omitempty"`
}

// OpenFileStore locks and loads path. A missing file is an empty ledger.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock state: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrStateLocked, path)
	}

	store := &FileStore{MemoryStore: NewMemoryStore(), path: path, lock: lock}
	if err := store.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	store.persist = store.save
	return store, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse state: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported state version %d", snap.Version)
	}
	s.state = fromSnapshot(snap)
	return nil
}

// Close releases the state file lock.
func (s *FileStore) Close() error {
	return s.lock.Unlock()
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) save(state *ledgerState) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(toSnapshot(state), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

func toSnapshot(state *ledgerState) snapshot {
	snap := snapshot{
		Version:   snapshotVersion,
		Assets:    make([]assetRecord, 0, len(state.assets)),
		Pools:     make([]model.Pool, 0, len(state.pools)),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	for asset, info := range state.assets {
		snap.Assets = append(snap.Assets, assetRecord{
			Asset:         asset,
			Supply:        info.Supply,
			MintAuthority: info.MintAuthority,
			Derived:       info.Derived,
		})
	}
	sort.Slice(snap.Assets, func(i, j int) bool {
		return bytes.Compare(snap.Assets[i].Asset[:], snap.Assets[j].Asset[:]) < 0
	})

	keys := make(map[accountKey]struct{}, len(state.balances)+len(state.authorities))
	for key := range state.balances {
		keys[key] = struct{}{}
	}
	for key := range state.authorities {
		keys[key] = struct{}{}
	}
	snap.Accounts = make([]accountRecord, 0, len(keys))
	for key := range keys {
		rec := accountRecord{Asset: key.Asset, Account: key.Account, Balance: state.balances[key]}
		if auth, ok := state.authorities[key]; ok {
			addr := auth.Address
			rec.Authority = &addr
			rec.Derived = auth.Derived
		}
		snap.Accounts = append(snap.Accounts, rec)
	}
	sort.Slice(snap.Accounts, func(i, j int) bool {
		a, b := snap.Accounts[i], snap.Accounts[j]
		if c := bytes.Compare(a.Asset[:], b.Asset[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Account[:], b.Account[:]) < 0
	})

	for _, pool := range state.pools {
		snap.Pools = append(snap.Pools, clonePool(pool))
	}
	sort.Slice(snap.Pools, func(i, j int) bool {
		return bytes.Compare(snap.Pools[i].Address[:], snap.Pools[j].Address[:]) < 0
	})

	return snap
}

func fromSnapshot(snap snapshot) *ledgerState {
	state := newLedgerState()
	for _, rec := range snap.Assets {
		state.assets[rec.Asset] = assetInfo{
			Supply:        rec.Supply,
			MintAuthority: rec.MintAuthority,
			Derived:       rec.Derived,
		}
	}
	for _, rec := range snap.Accounts {
		key := accountKey{Asset: rec.Asset, Account: rec.Account}
		if rec.Balance > 0 {
			state.balances[key] = rec.Balance
		}
		if rec.Authority != nil {
			state.authorities[key] = authority{Address: *rec.Authority, Derived: rec.Derived}
		}
	}
	for _, pool := range snap.Pools {
		state.pools[pool.Address] = clonePool(pool)
	}
	return state
}
