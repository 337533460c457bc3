package api

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"plain", "Rs. 100 debited", false},
		{"blank", " \t\n", true},
		{"at the limit", strings.Repeat("a", MaxSMSLength), false},
		{"over the limit", strings.Repeat("a", MaxSMSLength+1), true},
		// ₹ is three bytes; the limit counts characters.
		{"multibyte under the limit", strings.Repeat("₹", 600), false},
		{"multibyte at the limit", strings.Repeat("₹", MaxSMSLength), false},
		{"multibyte over the limit", strings.Repeat("₹", MaxSMSLength+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SMSMessage{Text: tt.text}.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransactionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     TransactionRequest
		wantErr bool
	}{
		{"manual", TransactionRequest{Origin: OriginManual}, false},
		{"unknown origin", TransactionRequest{Origin: "FAX"}, true},
		{"raw text at the limit in rupee signs", TransactionRequest{Origin: OriginSMS, RawText: strings.Repeat("₹", MaxRawTextLength)}, false},
		{"raw text over the limit", TransactionRequest{Origin: OriginSMS, RawText: strings.Repeat("₹", MaxRawTextLength+1)}, true},
		{"ordinary time", TransactionRequest{Origin: OriginManual, TransactionTime: time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC)}, false},
		{"earliest time", TransactionRequest{Origin: OriginManual, TransactionTime: MinTransactionTime}, false},
		{"before the earliest time", TransactionRequest{Origin: OriginManual, TransactionTime: MinTransactionTime.Add(-time.Second)}, true},
		{"year 1600", TransactionRequest{Origin: OriginManual, TransactionTime: time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC)}, true},
		{"year 2500", TransactionRequest{Origin: OriginManual, TransactionTime: time.Date(2500, 1, 1, 0, 0, 0, 0, time.UTC)}, true},
		{"latest bound is exclusive", TransactionRequest{Origin: OriginManual, TransactionTime: MaxTransactionTime}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPeriod_Contains(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 7, d, 0, 0, 0, 0, time.UTC) }
	p := Period{From: day(1), To: day(10)}

	assert.True(t, p.Contains(day(1)))
	assert.True(t, p.Contains(day(9)))
	assert.False(t, p.Contains(day(10)))
	assert.False(t, p.Contains(day(0)))
	assert.True(t, Period{}.Contains(day(20)))
}
