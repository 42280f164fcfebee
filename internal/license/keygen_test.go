package license

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubValidator struct {
	err  error
	keys []string
}

func (s *stubValidator) ValidateLicense(_ context.Context, key string) error {
	s.keys = append(s.keys, key)
	return s.err
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	v := &stubValidator{}
	require.NoError(t, Check(ctx, Settings{}, v, log))
	assert.Empty(t, v.keys, "no key means no validation")

	err := Check(ctx, Settings{Key: "short", AccountID: "acct"}, v, log)
	assert.ErrorIs(t, err, ErrLicenseRequired)
	assert.Empty(t, v.keys)

	require.NoError(t, Check(ctx, Settings{Key: "ABCD-1234-EFGH", AccountID: "acct"}, v, log))
	assert.Equal(t, []string{"ABCD-1234-EFGH"}, v.keys)

	v.err = ErrLicenseExpired
	err = Check(ctx, Settings{Key: "ABCD-1234-EFGH", AccountID: "acct"}, v, log)
	assert.True(t, errors.Is(err, ErrLicenseExpired))
}

func TestFingerprintIsStable(t *testing.T) {
	a := fingerprintOf("host", []string{"aa:bb"}, "linux")
	assert.Len(t, a, 64)
	assert.Equal(t, a, fingerprintOf("host", []string{"aa:bb"}, "linux"))
	assert.NotEqual(t, a, fingerprintOf("host", []string{"aa:cc"}, "linux"))
	assert.NotEqual(t, a, fingerprintOf("host", nil, "linux"))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "ABCD-123...", maskKey("ABCD-1234-EFGH"))
	assert.Equal(t, "****", maskKey("short"))
}
