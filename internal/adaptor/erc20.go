package adaptor

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/domain"
)

// erc20IdentifierTag is the ERC20 adaptor's versioned content tag. It never
// changes across deployments so redeployed units keep their identifier claim.
const erc20IdentifierTag = "ERC20 Adaptor V1.0"

// ERC20Identifier returns the identifier every ERC20 spot position is hashed
// under. The aggregator adaptors use it to map an output token to the
// corresponding spot position.
func ERC20Identifier() common.Hash {
	return domain.Identifier(erc20IdentifierTag)
}

// ERC20Adaptor tracks plain token holdings in the fund's own ledger. The
// adaptor data for a position is the 20-byte token address.
type ERC20Adaptor struct {
	BaseAdaptor
	addr common.Address
}

// NewERC20Adaptor creates an ERC20 adaptor with the given storage identity.
func NewERC20Adaptor(addr common.Address) *ERC20Adaptor {
	return &ERC20Adaptor{addr: addr}
}

// Address returns the adaptor's storage identity.
func (a *ERC20Adaptor) Address() common.Address { return a.addr }

// Identifier returns the adaptor's content tag.
func (a *ERC20Adaptor) Identifier() common.Hash { return ERC20Identifier() }

// IsDebt reports false: spot holdings are never debt-bearing.
func (a *ERC20Adaptor) IsDebt() bool { return false }

// Deposit is a no-op beyond validation: the tokens already sit in the fund's
// idle balance, which is the position itself.
func (a *ERC20Adaptor) Deposit(_ context.Context, fund domain.FundHandle, assets *big.Int, adaptorData []byte) error {
	token, err := erc20Token(adaptorData)
	if err != nil {
		return err
	}
	if assets == nil || assets.Sign() < 0 {
		return fmt.Errorf("adaptor: deposit %v: %w", assets, domain.ErrInvalidInput)
	}
	if fund.BalanceOf(token).Cmp(assets) < 0 {
		return fmt.Errorf("adaptor: deposit exceeds balance of %s: %w", token, domain.ErrInvalidInput)
	}
	return nil
}

// Withdraw moves assets out of the fund to the receiver.
func (a *ERC20Adaptor) Withdraw(_ context.Context, fund domain.FundHandle, assets *big.Int, _ common.Address, adaptorData []byte) error {
	token, err := erc20Token(adaptorData)
	if err != nil {
		return err
	}
	if err := fund.Debit(token, assets); err != nil {
		return fmt.Errorf("adaptor: withdraw: %w", err)
	}
	return nil
}

// BalanceOf reports the fund's holding of the position's token.
func (a *ERC20Adaptor) BalanceOf(_ context.Context, fund domain.FundHandle, adaptorData []byte) (*big.Int, error) {
	token, err := erc20Token(adaptorData)
	if err != nil {
		return nil, err
	}
	return fund.BalanceOf(token), nil
}

// WithdrawableFrom equals BalanceOf: spot holdings are always liquid.
func (a *ERC20Adaptor) WithdrawableFrom(ctx context.Context, fund domain.FundHandle, adaptorData []byte) (*big.Int, error) {
	return a.BalanceOf(ctx, fund, adaptorData)
}

// AssetOf returns the position's token.
func (a *ERC20Adaptor) AssetOf(adaptorData []byte) (common.Address, error) {
	return erc20Token(adaptorData)
}

// AssetsUsed returns the position's single token.
func (a *ERC20Adaptor) AssetsUsed(adaptorData []byte) ([]common.Address, error) {
	token, err := erc20Token(adaptorData)
	if err != nil {
		return nil, err
	}
	return []common.Address{token}, nil
}

// ERC20AdaptorData encodes a token address as adaptor data.
func ERC20AdaptorData(token common.Address) []byte {
	return token.Bytes()
}

// erc20Token decodes the token address from adaptor data.
func erc20Token(adaptorData []byte) (common.Address, error) {
	if len(adaptorData) != common.AddressLength {
		return common.Address{}, fmt.Errorf("adaptor: erc20 data must be a %d-byte token address: %w",
			common.AddressLength, domain.ErrInvalidInput)
	}
	return common.BytesToAddress(adaptorData), nil
}

// Compile-time interface check.
var _ domain.Adaptor = (*ERC20Adaptor)(nil)
