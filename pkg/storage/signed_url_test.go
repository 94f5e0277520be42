package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("job1", "SCH001/fee_summary.csv")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	jobID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job1", jobID)
	assert.Equal(t, "SCH001/fee_summary.csv", relPath)
	assert.Equal(t, expiresAt.Unix(), parsedExpiry.Unix())
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, _, err := signer.Generate("job1", "SCH001/report.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 4)

	// Point the path segment at another tenant's file.
	parts[2] = strings.Repeat("A", len(parts[2]))
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	assert.Error(t, err)

	// A token signed with a different secret never verifies.
	other, _, err := NewSignedURLSigner("other-secret", time.Hour).Generate("job1", "SCH001/report.csv")
	require.NoError(t, err)
	_, _, _, err = signer.Parse(other, false)
	assert.Error(t, err)
}

func TestSignedURLRejectsMalformedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	for _, token := range []string{"", "a.b", "a.b.c.d.e"} {
		_, _, _, err := signer.Parse(token, false)
		assert.Error(t, err)
	}
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Nanosecond)

	token, _, err := signer.Generate("job1", "SCH001/report.csv")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	assert.Error(t, err)

	// Cleanup resolves stale tokens with the expiry check skipped.
	jobID, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job1", jobID)
	assert.Equal(t, "SCH001/report.csv", relPath)
}

func TestSignedURLGenerateRequiresInput(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	_, _, err := signer.Generate("", "SCH001/report.csv")
	assert.Error(t, err)

	_, _, err = signer.Generate("job1", "")
	assert.Error(t, err)

	_, _, err = NewSignedURLSigner("", time.Hour).Generate("job1", "SCH001/report.csv")
	assert.Error(t, err)
}
