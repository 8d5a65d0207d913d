package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("S3cret!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "S3cret!pass", hash)
	assert.True(t, IsBcryptHash(hash))

	assert.True(t, h.Verify("S3cret!pass", hash))
	assert.False(t, h.Verify("wrong", hash))
}

func TestHasher_DifferentSalts(t *testing.T) {
	h := NewHasher(4)

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("same-password", a))
	assert.True(t, h.Verify("same-password", b))
}

func TestNewHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).Cost())
	assert.Equal(t, DefaultCost, NewHasher(99).Cost())
	assert.Equal(t, 10, NewHasher(10).Cost())
}

func TestIsBcryptHash(t *testing.T) {
	assert.False(t, IsBcryptHash(""))
	assert.False(t, IsBcryptHash("plaintext"))
	assert.False(t, IsBcryptHash("$2b$10$tooshort"))
	assert.True(t, IsBcryptHash("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"))
}

func TestHashToken_Deterministic(t *testing.T) {
	assert.Equal(t, HashToken("123456"), HashToken("123456"))
	assert.NotEqual(t, HashToken("123456"), HashToken("654321"))
	assert.Len(t, HashToken("x"), 64)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name string
		in   string
		err  error
	}{
		{"too short", "Ab1!", ErrTooShort},
		{"no lower", "ABCDEFG1!", ErrMissingLower},
		{"no upper", "abcdefg1!", ErrMissingUpper},
		{"no digit", "Abcdefgh!", ErrMissingDigit},
		{"no special", "Abcdefgh1", ErrMissingSpecial},
		{"valid", "Abcdefg1!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.err, ValidatePassword(tt.in))
		})
	}
}
