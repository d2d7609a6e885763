// Package keystore creates and opens the password-protected owner key file
// used by vaultctl to sign vault requests.
package keystore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/skip2/go-qrcode"

	"github.com/AlexZinkM/dca-vault/internal/crypto"
	"github.com/AlexZinkM/dca-vault/internal/model"
)

const networkSolana = "solana"

// Generate creates a new owner keypair and saves it encrypted to filePath.
// Returns the owner's public key.
// password must be []byte for security (caller should zero it after use)
func Generate(filePath string, password []byte) (solana.PublicKey, error) {
	wallet := solana.NewWallet()
	defer clear(wallet.PrivateKey)

	owner := wallet.PublicKey()
	qrCode, err := generateQRCode(owner.String())
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to generate QR code: %w", err)
	}

	keyData := &model.OwnerKeyData{
		PrivateKey: wallet.PrivateKey,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := crypto.EncryptOwnerKey(filePath, networkSolana, owner.String(), qrCode, keyData, password); err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to encrypt owner key: %w", err)
	}
	return owner, nil
}

// Load decrypts the owner key in filePath. Caller should clear the returned key after use.
func Load(filePath string, password []byte) (solana.PrivateKey, error) {
	keyFile, keyData, err := crypto.DecryptOwnerKey(filePath, password)
	if err != nil {
		return nil, err
	}

	key := solana.PrivateKey(keyData.PrivateKey)
	if len(key) != 64 {
		clear(key)
		return nil, fmt.Errorf("owner key has %d bytes, want 64", len(key))
	}
	if key.PublicKey().String() != keyFile.Address {
		clear(key)
		return nil, errors.New("owner key does not match the file address")
	}
	return key, nil
}

// Address returns the owner public key stored in filePath without decrypting it.
func Address(filePath string) (solana.PublicKey, error) {
	addr, err := crypto.ReadAddress(filePath)
	if err != nil {
		return solana.PublicKey{}, err
	}
	owner, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid address in key file: %w", err)
	}
	return owner, nil
}

// generateQRCode generates a base64 PNG QR code of address
func generateQRCode(address string) (string, error) {
	png, err := qrcode.Encode(address, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
