package signature_test

import (
	"strings"
	"testing"

	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/dinarlabs/ledger/foundation/signature"
)

// Digests computed independently so the canonical forms can never drift
// without this test noticing.
const (
	helloHash   = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	txNoteHash  = "88ba84fc51d1df9a811b9eef9c837431ce63c3a0df7278408d7fccc4f22b6969"
	txEmptyHash = "950e6b3747adbd74e37de13fe9c60c63d0736aaff350cfe9315e23c3623c0271"
	cbHash      = "c4817a91df6ea4c880beecb51c7b7472e79703f9b8db4fbf5522b6cf7efce952"
	headerHash  = "5c78eadcc59df593464f06f71b13073567a0ceb15a260fb8952deb332c9ed85f"
)

const (
	sender    = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	receiver  = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	timestamp = int64(1719878400)
)

// =============================================================================

func Test_Hash(t *testing.T) {
	h := signature.Hash("hello")
	if h != helloHash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", helloHash)
		t.Fatalf("Should get back the right hash.")
	}

	if h2 := signature.Hash("hello"); h2 != h {
		t.Fatalf("Should get back the same hash twice.")
	}
}

func Test_TxHash(t *testing.T) {
	amount := money.MustParse("25.5")
	fee := money.MustParse("0.1")

	h := signature.TxHash(sender, receiver, amount, fee, timestamp, "lunch")
	if h != txNoteHash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", txNoteHash)
		t.Fatalf("Should get back the right transaction hash.")
	}

	// The note is always part of the canonical form, empty included.
	h = signature.TxHash(sender, receiver, amount, fee, timestamp, "")
	if h != txEmptyHash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", txEmptyHash)
		t.Fatalf("Should get back the right hash for an empty note.")
	}

	if h == txNoteHash {
		t.Fatalf("Should produce a different hash when the note changes.")
	}

	// Amounts hash in fixed eight digit form regardless of how they were
	// written.
	h = signature.TxHash(sender, receiver, money.MustParse("25.50000000"), fee, timestamp, "lunch")
	if h != txNoteHash {
		t.Fatalf("Should hash numerically equal amounts identically.")
	}

	if signature.TxHash(sender, receiver, amount, money.MustParse("0.2"), timestamp, "lunch") == txNoteHash {
		t.Fatalf("Should produce a different hash when the fee changes.")
	}
}

func Test_BlockHash(t *testing.T) {
	h := signature.BlockHash(1, timestamp, signature.ZeroHash, helloHash, 42)
	if h != headerHash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", headerHash)
		t.Fatalf("Should get back the right block hash.")
	}

	if signature.BlockHash(1, timestamp, signature.ZeroHash, helloHash, 43) == headerHash {
		t.Fatalf("Should produce a different hash when the nonce changes.")
	}

	h = signature.CoinbaseHash(7, receiver, money.MustParse("500.1"), timestamp)
	if h != cbHash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", cbHash)
		t.Fatalf("Should get back the right coinbase hash.")
	}
}

func Test_WalletID(t *testing.T) {
	priv, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a keypair: %v", err)
	}

	pubPEM, err := signature.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("Should be able to encode the public key: %v", err)
	}

	id := signature.WalletID(pubPEM)
	if len(id) != 64 {
		t.Fatalf("Should derive a 64 character wallet id, got %d.", len(id))
	}
	if id != strings.ToLower(id) {
		t.Fatalf("Should derive a lowercase wallet id.")
	}

	if signature.WalletID(pubPEM) != id {
		t.Fatalf("Should derive the same id for the same key.")
	}

	priv2, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a second keypair: %v", err)
	}
	pubPEM2, err := signature.EncodePublicKey(&priv2.PublicKey)
	if err != nil {
		t.Fatalf("Should be able to encode the second public key: %v", err)
	}

	if signature.WalletID(pubPEM2) == id {
		t.Fatalf("Should derive different ids for different keys.")
	}
}

func Test_Signing(t *testing.T) {
	priv, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a keypair: %v", err)
	}

	pubPEM, err := signature.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("Should be able to encode the public key: %v", err)
	}

	digest := signature.Hash("transfer to sign")

	sig, err := signature.Sign(priv, digest)
	if err != nil {
		t.Fatalf("Should be able to sign the digest: %v", err)
	}

	if err := signature.Verify(pubPEM, digest, sig); err != nil {
		t.Fatalf("Should be able to verify the signature: %v", err)
	}

	// A different digest must not verify under the same signature.
	other := signature.Hash("a different transfer")
	if err := signature.Verify(pubPEM, other, sig); err == nil {
		t.Fatalf("Should reject the signature over a different digest.")
	}

	// A different key must not verify the signature.
	priv2, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a second keypair: %v", err)
	}
	pubPEM2, err := signature.EncodePublicKey(&priv2.PublicKey)
	if err != nil {
		t.Fatalf("Should be able to encode the second public key: %v", err)
	}
	if err := signature.Verify(pubPEM2, digest, sig); err == nil {
		t.Fatalf("Should reject the signature under another key.")
	}

	// Malformed digests are rejected before any key work happens.
	if _, err := signature.Sign(priv, "not hex"); err == nil {
		t.Fatalf("Should reject a digest that is not hex.")
	}
	if _, err := signature.Sign(priv, "abcd"); err == nil {
		t.Fatalf("Should reject a digest that is not 32 bytes.")
	}
}

func Test_KeyRoundTrip(t *testing.T) {
	priv, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a keypair: %v", err)
	}

	privPEM, err := signature.EncodePrivateKey(priv)
	if err != nil {
		t.Fatalf("Should be able to encode the private key: %v", err)
	}

	back, err := signature.DecodePrivateKey(privPEM)
	if err != nil {
		t.Fatalf("Should be able to decode the private key: %v", err)
	}

	if back.PublicKey.N.Cmp(priv.PublicKey.N) != 0 {
		t.Fatalf("Should decode the same key that was encoded.")
	}

	pubPEM, err := signature.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("Should be able to encode the public key: %v", err)
	}

	pub, err := signature.DecodePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("Should be able to decode the public key: %v", err)
	}

	if pub.N.Cmp(priv.PublicKey.N) != 0 {
		t.Fatalf("Should decode the same public key that was encoded.")
	}

	if _, err := signature.DecodePrivateKey("not a pem document"); err == nil {
		t.Fatalf("Should reject a private key with no pem block.")
	}
	if _, err := signature.DecodePublicKey("not a pem document"); err == nil {
		t.Fatalf("Should reject a public key with no pem block.")
	}
}

func Test_IsHashSolved(t *testing.T) {
	if !signature.IsHashSolved(0, helloHash) {
		t.Fatalf("Should treat every hash as solved at difficulty zero.")
	}

	if signature.IsHashSolved(1, helloHash) {
		t.Fatalf("Should reject a hash without a leading zero at difficulty one.")
	}

	solved := "00" + helloHash[2:]
	if !signature.IsHashSolved(2, solved) {
		t.Fatalf("Should accept a hash with two leading zeros at difficulty two.")
	}
	if signature.IsHashSolved(3, solved) {
		t.Fatalf("Should reject a hash with two leading zeros at difficulty three.")
	}

	if !signature.IsHashSolved(64, signature.ZeroHash) {
		t.Fatalf("Should accept the zero hash at maximum difficulty.")
	}

	if signature.IsHashSolved(1, "short") {
		t.Fatalf("Should reject a hash that is not 64 characters.")
	}
	if signature.IsHashSolved(-1, helloHash) {
		t.Fatalf("Should reject a negative difficulty.")
	}
}
