package arcontent

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDateRules_SkipsBadEntries(t *testing.T) {
	good := uuid.New()
	raw := []byte(`[
		{"date": "12-25", "video_id": "` + good.String() + `", "recurring": true},
		{"date": "2025-01-01", "video_id": "not-a-uuid"},
		{"date": "2025-02-14", "video_id": "` + good.String() + `"}
	]`)

	got, skipped, err := decodeDateRules(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, got, 2)
	assert.Equal(t, "12-25", got[0].Date)
	assert.True(t, got[0].Recurring)
	assert.Equal(t, "2025-02-14", got[1].Date)
	assert.Equal(t, good, got[1].VideoID)
}

func TestDecodeVideoSequence_SkipsBadEntries(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	raw := []byte(`["` + a.String() + `", 42, "` + b.String() + `", "nope"]`)

	got, skipped, err := decodeVideoSequence(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, []uuid.UUID{a, b}, got)
}

func TestDecodeRuleColumns_EmptyAndInvalid(t *testing.T) {
	seq, skipped, err := decodeVideoSequence(nil)
	require.NoError(t, err)
	assert.Nil(t, seq)
	assert.Zero(t, skipped)

	rules, _, err := decodeDateRules([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, rules)

	_, _, err = decodeDateRules([]byte(`{"date": "12-25"}`))
	assert.ErrorContains(t, err, "decode date_rules")
}
