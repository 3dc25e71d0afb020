package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known test vector key; never used outside tests.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testCredential(t *testing.T) Credential {
	t.Helper()
	cred, err := LoadCredential(KeyConfig{RawPrivateKey: testKeyHex})
	require.NoError(t, err)
	return cred
}

func TestEncryptDecryptKey_RoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "correct horse")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestDecryptKey_WrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "correct horse")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "battery staple")
	assert.Error(t, err)
}

func TestEncryptKey_RequiresPassword(t *testing.T) {
	_, err := EncryptKey(testKeyHex, "")
	assert.Error(t, err)
}

func TestLoadCredential_RawKeyPrecedence(t *testing.T) {
	cred, err := LoadCredential(KeyConfig{
		RawPrivateKey:    "0x" + testKeyHex,
		EncryptedKeyPath: "/nonexistent/key.json",
	})
	require.NoError(t, err)

	want := ethcrypto.PubkeyToAddress(cred.PrivateKey.PublicKey)
	assert.Equal(t, want, cred.Address)
}

func TestLoadCredential_FromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	cred, err := LoadCredential(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testCredential(t).Address, cred.Address)
}

func TestAttest_RecoversSignerAddress(t *testing.T) {
	cred := testCredential(t)
	signer := NewSigner(cred)

	subject := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	sig, err := signer.Attest("process.start", subject, 1700000000)
	require.NoError(t, err)
	assert.Len(t, common.FromHex(sig), 65)

	got, err := RecoverAttester("process.start", subject, 1700000000, sig)
	require.NoError(t, err)
	assert.Equal(t, cred.Address, got)
}

func TestRecoverAttester_RejectsTamperedFields(t *testing.T) {
	cred := testCredential(t)
	signer := NewSigner(cred)

	subject := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	sig, err := signer.Attest("process.start", subject, 1700000000)
	require.NoError(t, err)

	got, err := RecoverAttester("fund.pause", subject, 1700000000, sig)
	if err == nil {
		assert.NotEqual(t, cred.Address, got)
	}

	got, err = RecoverAttester("process.start", subject, 1700000001, sig)
	if err == nil {
		assert.NotEqual(t, cred.Address, got)
	}
}

func TestSeal_SignVerify(t *testing.T) {
	seal := NewSeal("secret")
	require.NotNil(t, seal)

	payload := []byte(`{"records":3}`)
	sig := seal.Sign(payload, 1700000000)
	assert.NotEmpty(t, sig)

	assert.True(t, seal.Verify(payload, 1700000000, sig))
	assert.False(t, seal.Verify(payload, 1700000001, sig))
	assert.False(t, seal.Verify([]byte("other"), 1700000000, sig))
}

func TestNewSeal_EmptySecretDisables(t *testing.T) {
	assert.Nil(t, NewSeal(""))
}
