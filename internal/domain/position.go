// Package domain defines the core types, interfaces, and errors shared by the
// registry, adaptor, and persistence layers.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PositionID identifies a governance-trusted position. The zero value is
// reserved and means "does not exist".
type PositionID uint32

// PositionRecord is the durable binding of a position id to a verified
// (adaptor, debt-flag, adaptor-data) tuple. A record is created exactly once
// per id and never rebound; distrust flips Trusted off but keeps the record
// for auditability.
type PositionRecord struct {
	ID                PositionID
	AdaptorRef        common.Address
	IsDebt            bool
	AdaptorData       []byte
	ConfigurationData []byte
	Hash              common.Hash
	Trusted           bool
	TrustedAt         time.Time
}

// PositionHash derives the content hash of a position from the adaptor's
// identifier, its debt flag, and the adaptor-specific data. The hash is a
// pure deterministic function; the registry enforces global uniqueness of
// hashes across all position ids.
func PositionHash(identifier common.Hash, isDebt bool, adaptorData []byte) common.Hash {
	debt := byte(0)
	if isDebt {
		debt = 1
	}
	return ethcrypto.Keccak256Hash(identifier.Bytes(), []byte{debt}, adaptorData)
}

// Identifier derives an adaptor's content tag from its versioned name, e.g.
// "ERC20 Adaptor V1.0". The tag is distinct from the adaptor's storage
// identity so redeployments keep their claim on the same identifier.
func Identifier(tag string) common.Hash {
	return ethcrypto.Keccak256Hash([]byte(tag))
}
