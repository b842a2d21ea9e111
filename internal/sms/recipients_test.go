package sms_test

import (
	"testing"

	"github.com/NDERI007/simflow/internal/sms"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRecipientPreparer_Prepare(t *testing.T) {
	preparer := sms.NewRecipientPreparer(sms.NewPhoneNormalizer(zap.NewNop(), false))

	t.Run("merges manual and group recipients", func(t *testing.T) {
		group := []sms.GroupContact{
			{ContactID: 11, Phone: "79261234567"},
			{ContactID: 12, Phone: "79361234567"},
		}

		set, err := preparer.Prepare([]string{"+79161234567"}, group, "hello")

		assert.NoError(t, err)
		assert.Equal(t, []string{"79161234567", "79261234567", "79361234567"}, set.Phones)
		assert.Equal(t, 3, set.TotalRecipients)
		assert.Nil(t, set.ContactMap["79161234567"])
		assert.Equal(t, int64(11), *set.ContactMap["79261234567"])
	})

	t.Run("dedupes across sources preserving first occurrence", func(t *testing.T) {
		group := []sms.GroupContact{{ContactID: 11, Phone: "79161234567"}}

		set, err := preparer.Prepare([]string{"+79161234567", "79161234567"}, group, "hello")

		assert.NoError(t, err)
		assert.Equal(t, []string{"79161234567"}, set.Phones)
		assert.Equal(t, 1, set.TotalRecipients)
	})

	t.Run("duplicate keeps contact id from group record", func(t *testing.T) {
		group := []sms.GroupContact{{ContactID: 42, Phone: "79161234567"}}

		set, err := preparer.Prepare([]string{"+79161234567"}, group, "hello")

		assert.NoError(t, err)
		assert.Equal(t, int64(42), *set.ContactMap["79161234567"])
	})

	t.Run("filters non-canonical group contacts silently", func(t *testing.T) {
		group := []sms.GroupContact{
			{ContactID: 11, Phone: "+79261234567"},
			{ContactID: 12, Phone: "79361234567"},
		}

		set, err := preparer.Prepare(nil, group, "hello")

		assert.NoError(t, err)
		assert.Equal(t, []string{"79361234567"}, set.Phones)
	})

	t.Run("invalid manual number rejects the submission", func(t *testing.T) {
		_, err := preparer.Prepare([]string{"bogus"}, nil, "hello")

		var invalid *sms.InvalidPhonesError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("prices message as recipients times segments", func(t *testing.T) {
		group := []sms.GroupContact{
			{ContactID: 11, Phone: "79261234567"},
			{ContactID: 12, Phone: "79361234567"},
		}
		longBody := make([]byte, 200)
		for i := range longBody {
			longBody[i] = 'a'
		}

		set, err := preparer.Prepare([]string{"+79161234567"}, group, string(longBody))

		assert.NoError(t, err)
		assert.Equal(t, 2, set.SegmentsPerMessage)
		assert.Equal(t, int64(6), set.TotalSegments)
	})

	t.Run("empty audience yields zero recipients without error", func(t *testing.T) {
		set, err := preparer.Prepare(nil, nil, "hello")

		assert.NoError(t, err)
		assert.Equal(t, 0, set.TotalRecipients)
		assert.Equal(t, int64(0), set.TotalSegments)
	})
}
