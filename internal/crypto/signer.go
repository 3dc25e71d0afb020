package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// EIP-712 type hashes (pre-computed keccak256 of the canonical type strings).
var (
	// EIP712Domain(string name,string version)
	eip712DomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version)"),
	)

	// Attestation(bytes32 action,address subject,uint256 timestamp)
	attestationTypeHash = ethcrypto.Keccak256(
		[]byte("Attestation(bytes32 action,address subject,uint256 timestamp)"),
	)
)

// Signer produces EIP-712 attestations under the governance credential.
// An attestation binds an action name and its subject address to a point in
// time, so external consumers of the audit log can verify that a governance
// action really originated from the key holder.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	domainSep  []byte // cached EIP-712 domain separator hash
}

// NewSigner creates a Signer from the resolved governance credential.
func NewSigner(cred Credential) *Signer {
	s := &Signer{
		privateKey: cred.PrivateKey,
		address:    cred.Address,
	}
	s.domainSep = buildDomainSeparator("VaultGuard Registry", "1")
	return s
}

// Address returns the address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// Attest signs an attestation over (action, subject, timestamp). The returned
// string is a hex-encoded 65-byte signature (r || s || v).
func (s *Signer) Attest(action string, subject common.Address, unixTS int64) (string, error) {
	structHash := ethcrypto.Keccak256(
		concatBytes(
			attestationTypeHash,
			ethcrypto.Keccak256([]byte(action)),
			common.LeftPadBytes(subject.Bytes(), 32),
			bigIntTo32Bytes(big.NewInt(unixTS)),
		),
	)

	digest := eip712Hash(s.domainSep, structHash)
	return s.signDigest(digest)
}

// RecoverAttester recovers the address that produced an attestation, for
// verification on the consuming side.
func RecoverAttester(action string, subject common.Address, unixTS int64, sigHex string) (common.Address, error) {
	sig, err := hex.DecodeString(trimHexPrefix(sigHex))
	if err != nil || len(sig) != 65 {
		return common.Address{}, fmt.Errorf("crypto/signer: malformed signature")
	}

	// Undo the {27,28} -> {0,1} recovery-id convention.
	recSig := make([]byte, 65)
	copy(recSig, sig)
	if recSig[64] >= 27 {
		recSig[64] -= 27
	}

	structHash := ethcrypto.Keccak256(
		concatBytes(
			attestationTypeHash,
			ethcrypto.Keccak256([]byte(action)),
			common.LeftPadBytes(subject.Bytes(), 32),
			bigIntTo32Bytes(big.NewInt(unixTS)),
		),
	)
	digest := eip712Hash(buildDomainSeparator("VaultGuard Registry", "1"), structHash)

	pub, err := ethcrypto.SigToPub(digest, recSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: recovering signer: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// buildDomainSeparator returns keccak256(abi.encode(typeHash, nameHash, versionHash)).
func buildDomainSeparator(name, version string) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			eip712DomainTypeHash,
			ethcrypto.Keccak256([]byte(name)),
			ethcrypto.Keccak256([]byte(version)),
		),
	)
}

// eip712Hash computes the final EIP-712 digest:
//
//	keccak256("\x19\x01" || domainSeparator || structHash)
func eip712Hash(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			[]byte{0x19, 0x01},
			domainSep,
			structHash,
		),
	)
}

// signDigest signs a 32-byte digest using secp256k1 and returns the
// hex-encoded signature (r || s || v, 65 bytes).
func (s *Signer) signDigest(digest []byte) (string, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}

	// go-ethereum returns v in {0,1}; EIP-712 expects v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}

	return "0x" + hex.EncodeToString(sig), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// bigIntTo32Bytes returns a 32-byte big-endian representation of n.
func bigIntTo32Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

// concatBytes concatenates multiple byte slices into one.
func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
