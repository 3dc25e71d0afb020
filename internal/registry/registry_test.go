package registry

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/pricing"
)

// manualClock is a settable clock for time-dependent assertions.
type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time          { return c.now }
func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *manualClock) Set(t time.Time)         { c.now = t }

// stubAdaptor is a minimal adaptor unit for trust tests.
type stubAdaptor struct {
	addr   common.Address
	tag    string
	debt   bool
	assets []common.Address
}

func (s *stubAdaptor) Address() common.Address    { return s.addr }
func (s *stubAdaptor) Identifier() common.Hash    { return domain.Identifier(s.tag) }
func (s *stubAdaptor) IsDebt() bool               { return s.debt }
func (s *stubAdaptor) AssetsUsed([]byte) ([]common.Address, error) {
	return s.assets, nil
}
func (s *stubAdaptor) Deposit(context.Context, domain.FundHandle, *big.Int, []byte) error {
	return domain.ErrNotSupported
}
func (s *stubAdaptor) Withdraw(context.Context, domain.FundHandle, *big.Int, common.Address, []byte) error {
	return domain.ErrNotSupported
}
func (s *stubAdaptor) BalanceOf(context.Context, domain.FundHandle, []byte) (*big.Int, error) {
	return nil, domain.ErrNotSupported
}
func (s *stubAdaptor) WithdrawableFrom(context.Context, domain.FundHandle, []byte) (*big.Int, error) {
	return nil, domain.ErrNotSupported
}
func (s *stubAdaptor) AssetOf([]byte) (common.Address, error) {
	return common.Address{}, domain.ErrNotSupported
}

func addr(b byte) common.Address {
	return common.BytesToAddress([]byte{b})
}

var (
	owner  = addr(0x01)
	zeroID = addr(0x02)
	tokenT = addr(0xA1)
	tokenU = addr(0xA2)
)

func usd(n int64) *big.Int {
	price := big.NewInt(n)
	return price.Mul(price, big.NewInt(100_000_000)) // PriceDecimals fixed point
}

// newTestRegistry builds a registry with a live clock, a static oracle that
// prices tokenT and tokenU, and the zero-id principal registered in slot 0.
func newTestRegistry(t *testing.T) (*Registry, *manualClock, *pricing.StaticOracle) {
	t.Helper()

	clock := &manualClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	oracle := pricing.NewStaticOracle(map[common.Address]*big.Int{
		tokenT: usd(2),
		tokenU: usd(4),
	})
	r := New(Config{
		Owner:  owner,
		Oracle: oracle,
		Clock:  clock,
	})

	slot, err := r.Register(context.Background(), owner, zeroID)
	require.NoError(t, err)
	require.Equal(t, uint32(0), slot)
	return r, clock, oracle
}

func trustStubAdaptor(t *testing.T, r *Registry, unitAddr common.Address, tag string) *stubAdaptor {
	t.Helper()
	unit := &stubAdaptor{addr: unitAddr, tag: tag, assets: []common.Address{tokenT}}
	require.NoError(t, r.TrustAdaptor(context.Background(), owner, unit))
	return unit
}

func TestTrustPosition_BindsExactlyOnce(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	trustStubAdaptor(t, r, addr(0x10), "stub-a")

	require.NoError(t, r.TrustPosition(ctx, owner, 5, addr(0x10), []byte("data"), nil))

	// Rebinding the same id fails with any arguments.
	err := r.TrustPosition(ctx, owner, 5, addr(0x10), []byte("other"), nil)
	assert.ErrorIs(t, err, domain.ErrPositionBound)
}

func TestTrustPosition_RejectsIDZero(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	trustStubAdaptor(t, r, addr(0x10), "stub-a")

	err := r.TrustPosition(context.Background(), owner, 0, addr(0x10), nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTrustPosition_RequiresTrustedAdaptor(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	err := r.TrustPosition(context.Background(), owner, 1, addr(0x99), nil, nil)
	assert.ErrorIs(t, err, domain.ErrAdaptorNotTrusted)
}

func TestTrustPosition_RejectsHashCollision(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	trustStubAdaptor(t, r, addr(0x10), "stub-a")

	require.NoError(t, r.TrustPosition(ctx, owner, 1, addr(0x10), []byte("same"), nil))

	// A different id describing the same logical position is rejected.
	err := r.TrustPosition(ctx, owner, 2, addr(0x10), []byte("same"), nil)
	assert.ErrorIs(t, err, domain.ErrHashCollision)
}

func TestTrustPosition_RejectsUnpricedAssets(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	unit := &stubAdaptor{addr: addr(0x10), tag: "stub-a", assets: []common.Address{addr(0xEE)}}
	require.NoError(t, r.TrustAdaptor(ctx, owner, unit))

	err := r.TrustPosition(ctx, owner, 1, addr(0x10), nil, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedAsset)
}

func TestTrustPosition_OwnerOnly(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	trustStubAdaptor(t, r, addr(0x10), "stub-a")

	err := r.TrustPosition(context.Background(), addr(0x42), 1, addr(0x10), nil, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAdaptorIdentifierClaimIsPermanent(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	a := &stubAdaptor{addr: addr(0x10), tag: "swap-v1", assets: []common.Address{tokenT}}
	require.NoError(t, r.TrustAdaptor(ctx, owner, a))
	require.NoError(t, r.DistrustAdaptor(ctx, owner, a.addr))

	// A different unit claiming the same identifier fails even though the
	// original claimer is distrusted.
	b := &stubAdaptor{addr: addr(0x11), tag: "swap-v1", assets: []common.Address{tokenT}}
	err := r.TrustAdaptor(ctx, owner, b)
	assert.ErrorIs(t, err, domain.ErrIdentifierClaimed)

	// The original unit cannot be re-trusted either.
	err = r.TrustAdaptor(ctx, owner, a)
	assert.ErrorIs(t, err, domain.ErrIdentifierClaimed)
}

func TestDistrustAdaptor(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	unit := trustStubAdaptor(t, r, addr(0x10), "stub-a")

	require.NoError(t, r.EnsureAdaptorTrusted(unit.addr))
	require.NoError(t, r.DistrustAdaptor(ctx, owner, unit.addr))
	assert.ErrorIs(t, r.EnsureAdaptorTrusted(unit.addr), domain.ErrAdaptorNotTrusted)

	// Distrusting twice fails.
	err := r.DistrustAdaptor(ctx, owner, unit.addr)
	assert.ErrorIs(t, err, domain.ErrAdaptorNotTrusted)
}

func TestDistrustPosition_BlocksOnlyNewAdoption(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	trustStubAdaptor(t, r, addr(0x10), "stub-a")
	require.NoError(t, r.TrustPosition(ctx, owner, 7, addr(0x10), []byte("d"), nil))

	rec, err := r.AddPositionToFund(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, addr(0x10), rec.AdaptorRef)

	require.NoError(t, r.DistrustPosition(ctx, owner, 7))

	// New adoption is blocked.
	_, err = r.AddPositionToFund(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrPositionNotTrusted)
	assert.ErrorIs(t, r.EnsurePositionTrusted(7), domain.ErrPositionNotTrusted)

	// The hash index survives distrust.
	hash := domain.PositionHash(domain.Identifier("stub-a"), false, []byte("d"))
	id, err := r.PositionIDForHash(hash)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionID(7), id)

	// Distrusting twice fails.
	err = r.DistrustPosition(ctx, owner, 7)
	assert.ErrorIs(t, err, domain.ErrPositionNotTrusted)
}

func TestAddPositionToFund_UnknownID(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.AddPositionToFund(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)

	_, err = r.AddPositionToFund(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)
}

func TestPositionHash_DeterministicRoundTrip(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	trustStubAdaptor(t, r, addr(0x10), "stub-a")

	h1 := domain.PositionHash(domain.Identifier("stub-a"), false, []byte("payload"))
	h2 := domain.PositionHash(domain.Identifier("stub-a"), false, []byte("payload"))
	assert.Equal(t, h1, h2)

	// Debt flag and data both feed the hash.
	assert.NotEqual(t, h1, domain.PositionHash(domain.Identifier("stub-a"), true, []byte("payload")))
	assert.NotEqual(t, h1, domain.PositionHash(domain.Identifier("stub-a"), false, []byte("other")))

	require.NoError(t, r.TrustPosition(ctx, owner, 9, addr(0x10), []byte("payload"), nil))
	id, err := r.PositionIDForHash(h1)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionID(9), id)
}

func TestRegisterAndAddressTable(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	slot, err := r.Register(ctx, owner, addr(0x30))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), slot)

	got, err := r.GetAddress(1)
	require.NoError(t, err)
	assert.Equal(t, addr(0x30), got)

	// Slot 0 may only be changed by the zero-id principal.
	err = r.SetAddress(ctx, owner, 0, addr(0x31))
	assert.ErrorIs(t, err, domain.ErrNotZeroID)
	require.NoError(t, r.SetAddress(ctx, zeroID, 0, addr(0x31)))

	// Slots above 0 are owner-gated and must already exist.
	err = r.SetAddress(ctx, zeroID, 1, addr(0x32))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	err = r.SetAddress(ctx, owner, 9, addr(0x32))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, r.SetAddress(ctx, owner, 1, addr(0x32)))

	_, err = r.GetAddress(77)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOwnerActionsSuspendedWhileTransitionPending(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()
	trustStubAdaptor(t, r, addr(0x10), "stub-a")

	require.NoError(t, r.TransitionOwner(ctx, zeroID, addr(0x40)))

	err := r.TrustPosition(ctx, owner, 1, addr(0x10), nil, nil)
	assert.ErrorIs(t, err, domain.ErrTransitionPending)
	err = r.TrustAdaptor(ctx, owner, &stubAdaptor{addr: addr(0x11), tag: "stub-b"})
	assert.ErrorIs(t, err, domain.ErrTransitionPending)
	_, err = r.Register(ctx, owner, addr(0x41))
	assert.ErrorIs(t, err, domain.ErrTransitionPending)

	// The zero-id cancel stays available and lifts the suspension.
	require.NoError(t, r.CancelTransition(ctx, zeroID))
	require.NoError(t, r.TrustPosition(ctx, owner, 1, addr(0x10), nil, nil))
}
