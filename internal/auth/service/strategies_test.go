package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "+61 412 345 678", want: "+61412345678"},
		{in: "+1 650-253-0000", want: "+16502530000"},
		{in: "0412 345 678", wantErr: true}, // no country code
		{in: "+1 23", wantErr: true},
		{in: "", wantErr: true},
		{in: "not a number", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePhoneNumber(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoPhoneNumber)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEmailStrategyRejectsBadAddress(t *testing.T) {
	sender := &mockEmailSender{}
	st := EmailStrategy{Sender: sender}

	err := st.Send(context.Background(), domain.Member{ID: "m1", Email: "not-an-email"}, "tok")
	require.ErrorIs(t, err, ErrNoEmailAddress)

	err = st.Send(context.Background(), domain.Member{ID: "m1"}, "tok")
	require.ErrorIs(t, err, ErrNoEmailAddress)

	require.Empty(t, sender.Calls)
}

func TestEmailStrategySendsToWellFormedAddress(t *testing.T) {
	sender := &mockEmailSender{}
	sender.On("SendVerificationEmail", mock.Anything, "alice@example.com", "alice", "tok").Return(nil).Once()
	st := EmailStrategy{Sender: sender}

	err := st.Send(context.Background(), domain.Member{ID: "m1", Username: "alice", Email: "alice@example.com"}, "tok")
	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestStrategyDefaults(t *testing.T) {
	require.Equal(t, DefaultEmailVerificationTTL, EmailStrategy{}.ExpiresAfter())
	require.Equal(t, DefaultSMSVerificationTTL, SMSStrategy{}.ExpiresAfter())

	for range 20 {
		code, err := SMSStrategy{}.GenerateToken()
		require.NoError(t, err)
		require.Regexp(t, sixDigits, code)
	}
}
