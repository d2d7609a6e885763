package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/dca-vault/internal/model"
)

func cheapKDF(t *testing.T) {
	t.Helper()
	saved := kdf
	kdf = kdfParams{N: 1 << 10, R: 8, P: 1, KeyLen: 32}
	t.Cleanup(func() { kdf = saved })
}

func TestEncryptDecrypt(t *testing.T) {
	cheapKDF(t)
	path := filepath.Join(t.TempDir(), "owner.cwt")
	data := &model.OwnerKeyData{PrivateKey: []byte{1, 2, 3, 4}, CreatedAt: "2026-01-01T00:00:00Z"}

	require.NoError(t, EncryptOwnerKey(path, "solana", "addr", "qr", data, []byte("pw")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, utf8BOM, raw[:3])

	file, got, err := DecryptOwnerKey(path, []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "addr", file.Address)
	assert.Equal(t, "qr", file.QR)
	assert.Equal(t, data, got)

	addr, err := ReadAddress(path)
	require.NoError(t, err)
	assert.Equal(t, "addr", addr)

	_, _, err = DecryptOwnerKey(path, []byte("wrong"))
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestEncryptOwnerKey_Rejects(t *testing.T) {
	cheapKDF(t)
	dir := t.TempDir()
	data := &model.OwnerKeyData{PrivateKey: []byte{1}}

	err := EncryptOwnerKey(filepath.Join(dir, "owner.txt"), "solana", "a", "", data, []byte("pw"))
	assert.ErrorContains(t, err, ".cwt")

	path := filepath.Join(dir, "owner.cwt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	err = EncryptOwnerKey(path, "solana", "a", "", data, []byte("pw"))
	assert.ErrorIs(t, err, ErrFileExists)
}

func TestReadAddress_MissingOrEmpty(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadAddress(filepath.Join(dir, "missing.cwt"))
	assert.ErrorContains(t, err, "does not exist")

	empty := filepath.Join(dir, "empty.cwt")
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	_, err = ReadAddress(empty)
	assert.ErrorContains(t, err, "file is empty")
}
