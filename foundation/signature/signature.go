// Package signature provides helper functions for handling the ledger's
// signing and hashing needs.
package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/shopspring/decimal"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// keyBits is the RSA modulus size every wallet key carries.
const keyBits = 2048

// =============================================================================

// GenerateKeyPair constructs a new RSA private key for a wallet.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	return privateKey, nil
}

// EncodePrivateKey renders a private key as a PKCS#8 PEM document.
func EncodePrivateKey(privateKey *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return "", fmt.Errorf("marshaling private key: %w", err)
	}

	block := pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: der,
	}

	return string(pem.EncodeToMemory(&block)), nil
}

// DecodePrivateKey parses a PEM encoded private key in either PKCS#8 or
// PKCS#1 form.
func DecodePrivateKey(privateKeyPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, errors.New("no pem block found in private key")
	}

	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing pkcs8 key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key is not rsa")
		}
		return rsaKey, nil

	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)

	default:
		return nil, fmt.Errorf("unexpected pem block type %q", block.Type)
	}
}

// EncodePublicKey renders a public key as a PKIX PEM document. The exact
// bytes of this document are the input to wallet id derivation, so the
// encoding must stay stable.
func EncodePublicKey(publicKey *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("marshaling public key: %w", err)
	}

	block := pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	}

	return string(pem.EncodeToMemory(&block)), nil
}

// DecodePublicKey parses a PKIX PEM encoded public key.
func DecodePublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("no pem block found in public key")
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not rsa")
	}

	return rsaKey, nil
}

// WalletID derives the wallet id for a public key: the lowercase hex
// SHA-256 digest of the PEM document bytes.
func WalletID(publicKeyPEM string) string {
	return Hash(publicKeyPEM)
}

// =============================================================================

// Sign produces an RSA PKCS#1 v1.5 signature over the raw 32 byte digest
// represented by the hex string. No DigestInfo prefix is applied, which
// keeps signatures compatible across implementations that sign the bare
// digest. The signature is returned base64 encoded.
func Sign(privateKey *rsa.PrivateKey, digestHex string) (string, error) {
	digest, err := hex.DecodeString(digestHex)
	if err != nil {
		return "", fmt.Errorf("decoding digest: %w", err)
	}
	if len(digest) != sha256.Size {
		return "", fmt.Errorf("digest must be %d bytes, got %d", sha256.Size, len(digest))
	}

	sig, err := rsa.SignPKCS1v15(rand.Reader, privateKey, crypto.Hash(0), digest)
	if err != nil {
		return "", fmt.Errorf("signing digest: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks an RSA PKCS#1 v1.5 signature over the raw digest against
// the PEM encoded public key. A failed check is a terminal error for the
// transaction being verified, never a retry.
func Verify(publicKeyPEM string, digestHex string, signatureB64 string) error {
	publicKey, err := DecodePublicKey(publicKeyPEM)
	if err != nil {
		return err
	}

	digest, err := hex.DecodeString(digestHex)
	if err != nil {
		return fmt.Errorf("decoding digest: %w", err)
	}

	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}

	if err := rsa.VerifyPKCS1v15(publicKey, crypto.Hash(0), digest, sig); err != nil {
		return errors.New("invalid signature")
	}

	return nil
}

// =============================================================================

// Hash returns the lowercase hex SHA-256 digest of the value.
func Hash(value string) string {
	digest := sha256.Sum256([]byte(value))
	return hex.EncodeToString(digest[:])
}

// TxHash computes the hash of a transfer over its canonical string form.
// Amounts carry exactly eight fractional digits and the note is always
// present, empty when the sender provided none, so the note cannot be
// altered after signing.
func TxHash(sender string, receiver string, amount decimal.Decimal, fee decimal.Decimal, timestamp int64, note string) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d|%s",
		sender, receiver, money.Format(amount), money.Format(fee), timestamp, note)
	return Hash(data)
}

// CoinbaseHash computes the synthetic hash for a block's coinbase
// transaction.
func CoinbaseHash(blockIndex int64, minerWallet string, amount decimal.Decimal, timestamp int64) string {
	data := fmt.Sprintf("coinbase|%d|%s|%s|%d",
		blockIndex, minerWallet, money.Format(amount), timestamp)
	return Hash(data)
}

// BlockHash computes the hash of a block header.
func BlockHash(index int64, timestamp int64, previousHash string, merkleRoot string, nonce int64) string {
	data := fmt.Sprintf("%d|%d|%s|%s|%d",
		index, timestamp, previousHash, merkleRoot, nonce)
	return Hash(data)
}

// IsHashSolved checks the hash meets the proof of work requirement: the
// first difficulty hex nibbles must be zero.
func IsHashSolved(difficulty int, hash string) bool {
	if len(hash) != 64 || difficulty < 0 || difficulty > 64 {
		return false
	}

	return hash[:difficulty] == ZeroHash[:difficulty]
}
