package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/scrypt"

	"github.com/AlexZinkM/dca-vault/internal/model"
)

// KeyFileExt is the required owner key file extension.
const KeyFileExt = ".cwt"

const (
	saltLen  = 32
	nonceLen = 12
)

// kdfParams are the scrypt cost parameters.
type kdfParams struct {
	N, R, P, KeyLen int
}

// N=2^18 needs ~256MB RAM and 0.5-2s per derivation.
var kdf = kdfParams{N: 1 << 18, R: 8, P: 1, KeyLen: 32}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrFileExists is returned when the target key file is not empty.
var ErrFileExists = errors.New("file is not empty")

// EncryptOwnerKey encrypts the owner key and writes it to a .cwt file.
// password must be []byte for security (caller should zero it after use)
func EncryptOwnerKey(filePath string, network, address, qrCode string, keyData *model.OwnerKeyData, password []byte) error {
	if !strings.HasSuffix(filePath, KeyFileExt) {
		return fmt.Errorf("file must have %s extension", KeyFileExt)
	}

	if info, err := os.Stat(filePath); err == nil && info.Size() > 0 {
		return fmt.Errorf("%s: %w", filePath, ErrFileExists)
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(keyData)
	if err != nil {
		return fmt.Errorf("failed to marshal key data: %w", err)
	}
	defer clear(plaintext) // wipe plaintext bytes from memory

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	keyFile := model.OwnerKeyFile{
		Network:    network,
		Address:    address,
		QR:         qrCode,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}

	fileData, err := json.MarshalIndent(keyFile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal key file: %w", err)
	}

	// UTF-8 BOM for proper display in Windows
	if err := os.WriteFile(filePath, append(utf8BOM, fileData...), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func newGCM(password, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(password, salt, kdf.N, kdf.R, kdf.P, kdf.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
