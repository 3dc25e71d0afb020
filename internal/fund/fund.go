// Package fund provides the reference Fund collaborator: a token ledger with
// adopted positions and approval bookkeeping. Adaptors never touch a fund's
// state directly; they receive a snapshot-backed transaction handle from
// Execute, so a failed rebalance step discards every partial mutation.
//
// Share accounting (deposit/withdraw/mint/redeem math) is deliberately out of
// scope; this ledger covers only what the trust and risk layer needs.
package fund

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// PositionResolver is the slice of the registry a fund needs to adopt a
// position: id resolution plus trust verification.
type PositionResolver interface {
	AddPositionToFund(ctx context.Context, id domain.PositionID) (domain.PositionRecord, error)
}

// allowanceKey identifies a (token, spender) pair.
type allowanceKey struct {
	token   common.Address
	spender common.Address
}

// state is the fund's mutable ledger. It is cloned for every Execute call.
type state struct {
	balances   map[common.Address]*big.Int
	allowances map[allowanceKey]*big.Int
	positions  map[domain.PositionID]domain.PositionRecord
}

func newState() *state {
	return &state{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
		positions:  make(map[domain.PositionID]domain.PositionRecord),
	}
}

func (s *state) clone() *state {
	c := &state{
		balances:   make(map[common.Address]*big.Int, len(s.balances)),
		allowances: make(map[allowanceKey]*big.Int, len(s.allowances)),
		positions:  make(map[domain.PositionID]domain.PositionRecord, len(s.positions)),
	}
	for token, bal := range s.balances {
		c.balances[token] = new(big.Int).Set(bal)
	}
	for key, amt := range s.allowances {
		c.allowances[key] = new(big.Int).Set(amt)
	}
	for id, rec := range s.positions {
		c.positions[id] = rec
	}
	return c
}

// Fund is a single vault identity. All mutation flows through Execute, which
// enforces single-writer discipline and all-or-nothing semantics.
type Fund struct {
	mu       sync.Mutex
	addr     common.Address
	st       *state
	resolver PositionResolver
	logger   *slog.Logger
}

// New creates an empty fund with the given identity.
func New(addr common.Address, resolver PositionResolver, logger *slog.Logger) *Fund {
	return &Fund{
		addr:     addr,
		st:       newState(),
		resolver: resolver,
		logger:   logger.With(slog.String("component", "fund"), slog.String("fund", addr.Hex())),
	}
}

// Address returns the fund's identity.
func (f *Fund) Address() common.Address { return f.addr }

// Mint credits the fund's idle balance of a token outside a rebalance. Used
// by deposits and test fixtures.
func (f *Fund) Mint(token common.Address, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bal, ok := f.st.balances[token]
	if !ok {
		bal = new(big.Int)
		f.st.balances[token] = bal
	}
	bal.Add(bal, amount)
}

// BalanceOf reports the fund's committed balance of a token.
func (f *Fund) BalanceOf(token common.Address) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	bal, ok := f.st.balances[token]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(bal)
}

// UsesPosition reports whether the fund has adopted the position.
func (f *Fund) UsesPosition(id domain.PositionID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.st.positions[id]
	return ok
}

// AdoptPosition resolves a position through the registry and records it in
// the fund's adopted set. Resolution fails for unknown and distrusted ids, so
// a fund can never adopt an untracked position.
func (f *Fund) AdoptPosition(ctx context.Context, id domain.PositionID) error {
	rec, err := f.resolver.AddPositionToFund(ctx, id)
	if err != nil {
		return fmt.Errorf("fund: adopt position %d: %w", id, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.st.positions[id]; ok {
		return fmt.Errorf("fund: position %d: %w", id, domain.ErrAlreadyExists)
	}
	f.st.positions[id] = rec

	f.logger.InfoContext(ctx, "position adopted",
		slog.Uint64("position_id", uint64(id)),
		slog.String("adaptor", rec.AdaptorRef.Hex()),
	)
	return nil
}

// DropPosition removes a position from the adopted set.
func (f *Fund) DropPosition(id domain.PositionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.st.positions[id]; !ok {
		return fmt.Errorf("fund: position %d: %w", id, domain.ErrNotFound)
	}
	delete(f.st.positions, id)
	return nil
}

// Execute runs fn against a snapshot-backed transaction handle. The handle is
// the only way adaptor code can mutate this fund. When fn returns an error,
// the snapshot is discarded and the fund's committed state is untouched.
func (f *Fund) Execute(ctx context.Context, fn func(h domain.FundHandle) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	scratch := f.st.clone()
	tx := &handle{addr: f.addr, st: scratch}
	if err := fn(tx); err != nil {
		return err
	}
	f.st = scratch

	f.logger.DebugContext(ctx, "rebalance step committed")
	return nil
}

// handle implements domain.FundHandle over a scratch state.
type handle struct {
	addr common.Address
	st   *state
}

func (h *handle) Address() common.Address { return h.addr }

func (h *handle) BalanceOf(token common.Address) *big.Int {
	bal, ok := h.st.balances[token]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(bal)
}

func (h *handle) Credit(token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("fund: credit %v: %w", amount, domain.ErrInvalidInput)
	}
	bal, ok := h.st.balances[token]
	if !ok {
		bal = new(big.Int)
		h.st.balances[token] = bal
	}
	bal.Add(bal, amount)
	return nil
}

func (h *handle) Debit(token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("fund: debit %v: %w", amount, domain.ErrInvalidInput)
	}
	bal, ok := h.st.balances[token]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("fund: insufficient balance of %s: %w", token, domain.ErrInvalidInput)
	}
	bal.Sub(bal, amount)
	return nil
}

func (h *handle) Approve(token, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("fund: approve %v: %w", amount, domain.ErrInvalidInput)
	}
	key := allowanceKey{token: token, spender: spender}
	if amount.Sign() == 0 {
		delete(h.st.allowances, key)
		return nil
	}
	h.st.allowances[key] = new(big.Int).Set(amount)
	return nil
}

func (h *handle) Allowance(token, spender common.Address) *big.Int {
	amt, ok := h.st.allowances[allowanceKey{token: token, spender: spender}]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(amt)
}

func (h *handle) UsesPosition(id domain.PositionID) bool {
	_, ok := h.st.positions[id]
	return ok
}

// Compile-time interface check.
var _ domain.FundHandle = (*handle)(nil)
