package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborfi/vaultguard/internal/domain"
)

// Ledger implements domain.RegistryLedger using PostgreSQL. Every save is an
// idempotent upsert keyed by the row's natural identity, so a retried write
// after a partial failure converges instead of conflicting.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a Ledger backed by the given connection pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// SaveOwner upserts the governance owner into the registry meta row.
func (l *Ledger) SaveOwner(ctx context.Context, owner common.Address) error {
	const query = `
		INSERT INTO registry_meta (id, owner_address, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET owner_address = EXCLUDED.owner_address, updated_at = NOW()`
	if _, err := l.pool.Exec(ctx, query, owner.Hex()); err != nil {
		return fmt.Errorf("postgres: save owner: %w", err)
	}
	return nil
}

// SaveTransition upserts the pending ownership transition. A zero transition
// clears the pending columns.
func (l *Ledger) SaveTransition(ctx context.Context, t domain.GovernanceTransition) error {
	var pendingOwner *string
	var startedAt *time.Time
	if t.Pending() {
		hex := t.PendingOwner.Hex()
		pendingOwner = &hex
		startedAt = &t.StartedAt
	}

	const query = `
		INSERT INTO registry_meta (id, owner_address, pending_owner, transition_started_at, updated_at)
		VALUES (1, COALESCE((SELECT owner_address FROM registry_meta WHERE id = 1), ''), $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			pending_owner = EXCLUDED.pending_owner,
			transition_started_at = EXCLUDED.transition_started_at,
			updated_at = NOW()`
	if _, err := l.pool.Exec(ctx, query, pendingOwner, startedAt); err != nil {
		return fmt.Errorf("postgres: save transition: %w", err)
	}
	return nil
}

// SaveAddress upserts one slot of the address-config table.
func (l *Ledger) SaveAddress(ctx context.Context, slot uint32, addr common.Address) error {
	const query = `
		INSERT INTO registry_addresses (slot, address, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (slot) DO UPDATE SET address = EXCLUDED.address, updated_at = NOW()`
	if _, err := l.pool.Exec(ctx, query, int64(slot), addr.Hex()); err != nil {
		return fmt.Errorf("postgres: save address slot %d: %w", slot, err)
	}
	return nil
}

// SavePosition upserts one position record.
func (l *Ledger) SavePosition(ctx context.Context, rec domain.PositionRecord) error {
	const query = `
		INSERT INTO registry_positions
			(id, adaptor_ref, is_debt, adaptor_data, configuration_data, hash, trusted, trusted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			trusted = EXCLUDED.trusted,
			updated_at = NOW()`
	_, err := l.pool.Exec(ctx, query,
		int64(rec.ID), rec.AdaptorRef.Hex(), rec.IsDebt,
		rec.AdaptorData, rec.ConfigurationData,
		rec.Hash.Hex(), rec.Trusted, rec.TrustedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save position %d: %w", rec.ID, err)
	}
	return nil
}

// SaveAdaptor upserts one adaptor trust entry.
func (l *Ledger) SaveAdaptor(ctx context.Context, entry domain.AdaptorTrustEntry) error {
	const query = `
		INSERT INTO registry_adaptors (ref, identifier, is_debt, trusted, trusted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (ref) DO UPDATE SET
			trusted = EXCLUDED.trusted,
			updated_at = NOW()`
	_, err := l.pool.Exec(ctx, query,
		entry.Ref.Hex(), entry.Identifier.Hex(), entry.IsDebt, entry.Trusted, entry.TrustedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save adaptor %s: %w", entry.Ref, err)
	}
	return nil
}

// SaveFund upserts one fund record.
func (l *Ledger) SaveFund(ctx context.Context, rec domain.FundRecord) error {
	const query = `
		INSERT INTO registry_funds (address, paused, registered_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (address) DO UPDATE SET paused = EXCLUDED.paused, updated_at = NOW()`
	if _, err := l.pool.Exec(ctx, query, rec.Address.Hex(), rec.Paused, rec.RegisteredAt); err != nil {
		return fmt.Errorf("postgres: save fund %s: %w", rec.Address, err)
	}
	return nil
}

// SaveVolumeWindow upserts one fund's volume window.
func (l *Ledger) SaveVolumeWindow(ctx context.Context, w domain.FundVolumeWindow) error {
	const query = `
		INSERT INTO registry_volume_windows
			(fund_address, last_update, period_seconds, volume_usd, max_volume, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (fund_address) DO UPDATE SET
			last_update = EXCLUDED.last_update,
			period_seconds = EXCLUDED.period_seconds,
			volume_usd = EXCLUDED.volume_usd,
			max_volume = EXCLUDED.max_volume,
			updated_at = NOW()`
	_, err := l.pool.Exec(ctx, query,
		w.Fund.Hex(), w.LastUpdate, int64(w.Period/time.Second),
		numericFromUint64(w.VolumeInUSD), numericFromUint64(w.MaxVolume),
	)
	if err != nil {
		return fmt.Errorf("postgres: save volume window %s: %w", w.Fund, err)
	}
	return nil
}

// Load reads the full registry snapshot.
func (l *Ledger) Load(ctx context.Context) (domain.RegistrySnapshot, error) {
	snap := domain.RegistrySnapshot{
		Addresses: make(map[uint32]common.Address),
	}

	if err := l.loadMeta(ctx, &snap); err != nil {
		return domain.RegistrySnapshot{}, err
	}
	if err := l.loadAddresses(ctx, &snap); err != nil {
		return domain.RegistrySnapshot{}, err
	}
	if err := l.loadAdaptors(ctx, &snap); err != nil {
		return domain.RegistrySnapshot{}, err
	}
	if err := l.loadPositions(ctx, &snap); err != nil {
		return domain.RegistrySnapshot{}, err
	}
	if err := l.loadFunds(ctx, &snap); err != nil {
		return domain.RegistrySnapshot{}, err
	}
	if err := l.loadWindows(ctx, &snap); err != nil {
		return domain.RegistrySnapshot{}, err
	}
	return snap, nil
}

func (l *Ledger) loadMeta(ctx context.Context, snap *domain.RegistrySnapshot) error {
	const query = `SELECT owner_address, pending_owner, transition_started_at FROM registry_meta WHERE id = 1`

	var ownerHex string
	var pendingOwner *string
	var startedAt *time.Time
	err := l.pool.QueryRow(ctx, query).Scan(&ownerHex, &pendingOwner, &startedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("postgres: load registry meta: %w", err)
	}

	snap.Owner = common.HexToAddress(ownerHex)
	if pendingOwner != nil && startedAt != nil {
		snap.Transition = domain.GovernanceTransition{
			PendingOwner: common.HexToAddress(*pendingOwner),
			StartedAt:    *startedAt,
		}
	}
	return nil
}

func (l *Ledger) loadAddresses(ctx context.Context, snap *domain.RegistrySnapshot) error {
	rows, err := l.pool.Query(ctx, `SELECT slot, address FROM registry_addresses ORDER BY slot`)
	if err != nil {
		return fmt.Errorf("postgres: load addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slot int64
		var hex string
		if err := rows.Scan(&slot, &hex); err != nil {
			return fmt.Errorf("postgres: scan address: %w", err)
		}
		snap.Addresses[uint32(slot)] = common.HexToAddress(hex)
		if uint32(slot) >= snap.NextSlot {
			snap.NextSlot = uint32(slot) + 1
		}
	}
	return rows.Err()
}

func (l *Ledger) loadAdaptors(ctx context.Context, snap *domain.RegistrySnapshot) error {
	rows, err := l.pool.Query(ctx,
		`SELECT ref, identifier, is_debt, trusted, trusted_at FROM registry_adaptors`)
	if err != nil {
		return fmt.Errorf("postgres: load adaptors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var refHex, idHex string
		var entry domain.AdaptorTrustEntry
		if err := rows.Scan(&refHex, &idHex, &entry.IsDebt, &entry.Trusted, &entry.TrustedAt); err != nil {
			return fmt.Errorf("postgres: scan adaptor: %w", err)
		}
		entry.Ref = common.HexToAddress(refHex)
		entry.Identifier = common.HexToHash(idHex)
		snap.Adaptors = append(snap.Adaptors, entry)
	}
	return rows.Err()
}

func (l *Ledger) loadPositions(ctx context.Context, snap *domain.RegistrySnapshot) error {
	rows, err := l.pool.Query(ctx, `
		SELECT id, adaptor_ref, is_debt, adaptor_data, configuration_data, hash, trusted, trusted_at
		FROM registry_positions`)
	if err != nil {
		return fmt.Errorf("postgres: load positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var refHex, hashHex string
		var rec domain.PositionRecord
		err := rows.Scan(&id, &refHex, &rec.IsDebt, &rec.AdaptorData,
			&rec.ConfigurationData, &hashHex, &rec.Trusted, &rec.TrustedAt)
		if err != nil {
			return fmt.Errorf("postgres: scan position: %w", err)
		}
		rec.ID = domain.PositionID(id)
		rec.AdaptorRef = common.HexToAddress(refHex)
		rec.Hash = common.HexToHash(hashHex)
		snap.Positions = append(snap.Positions, rec)
	}
	return rows.Err()
}

func (l *Ledger) loadFunds(ctx context.Context, snap *domain.RegistrySnapshot) error {
	rows, err := l.pool.Query(ctx, `SELECT address, paused, registered_at FROM registry_funds`)
	if err != nil {
		return fmt.Errorf("postgres: load funds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hex string
		var rec domain.FundRecord
		if err := rows.Scan(&hex, &rec.Paused, &rec.RegisteredAt); err != nil {
			return fmt.Errorf("postgres: scan fund: %w", err)
		}
		rec.Address = common.HexToAddress(hex)
		snap.Funds = append(snap.Funds, rec)
	}
	return rows.Err()
}

func (l *Ledger) loadWindows(ctx context.Context, snap *domain.RegistrySnapshot) error {
	rows, err := l.pool.Query(ctx, `
		SELECT fund_address, last_update, period_seconds, volume_usd, max_volume
		FROM registry_volume_windows`)
	if err != nil {
		return fmt.Errorf("postgres: load volume windows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hex string
		var periodSeconds int64
		var volume, maxVolume pgtype.Numeric
		var w domain.FundVolumeWindow
		if err := rows.Scan(&hex, &w.LastUpdate, &periodSeconds, &volume, &maxVolume); err != nil {
			return fmt.Errorf("postgres: scan volume window: %w", err)
		}
		w.Fund = common.HexToAddress(hex)
		w.Period = time.Duration(periodSeconds) * time.Second
		if w.VolumeInUSD, err = uint64FromNumeric(volume); err != nil {
			return fmt.Errorf("postgres: volume window %s: %w", hex, err)
		}
		if w.MaxVolume, err = uint64FromNumeric(maxVolume); err != nil {
			return fmt.Errorf("postgres: volume window %s: %w", hex, err)
		}
		snap.Windows = append(snap.Windows, w)
	}
	return rows.Err()
}

// numericFromUint64 converts an unsigned 64-bit figure to NUMERIC(20,0).
// BIGINT cannot hold the upper half of the range, in particular the
// unlimited-volume sentinel.
func numericFromUint64(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}

func uint64FromNumeric(n pgtype.Numeric) (uint64, error) {
	if !n.Valid || n.Int == nil {
		return 0, fmt.Errorf("null numeric")
	}
	v := new(big.Int).Set(n.Int)
	for i := int32(0); i < n.Exp; i++ {
		v.Mul(v, big.NewInt(10))
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("numeric %s out of uint64 range", v)
	}
	return v.Uint64(), nil
}

// Compile-time interface check.
var _ domain.RegistryLedger = (*Ledger)(nil)
