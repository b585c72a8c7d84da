package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

const (
	DefaultEmailVerificationTTL = time.Hour
	DefaultSMSVerificationTTL   = 5 * time.Minute

	smsCodeDigits = 6
)

var (
	ErrNoEmailAddress = errors.New("member has no usable email address")
	ErrNoPhoneNumber  = errors.New("member has no usable phone number")
)

// EmailStrategy mails a UUID to the member's address.
type EmailStrategy struct {
	Sender EmailSender
	TTL    time.Duration
}

func (EmailStrategy) Method() domain.VerificationMethod { return domain.VerificationEmail }

func (EmailStrategy) GenerateToken() (string, error) { return uuid.NewString(), nil }

func (s EmailStrategy) ExpiresAfter() time.Duration {
	if s.TTL <= 0 {
		return DefaultEmailVerificationTTL
	}
	return s.TTL
}

func (s EmailStrategy) Send(ctx context.Context, member domain.Member, token string) error {
	if err := validation.Validate(member.Email, validation.Required, is.Email); err != nil {
		return fmt.Errorf("%w: %v", ErrNoEmailAddress, err)
	}
	return s.Sender.SendVerificationEmail(ctx, member.Email, member.DisplayName(), token)
}

// SMSStrategy texts a six digit code to the member's phone.
type SMSStrategy struct {
	Sender SMSSender
	TTL    time.Duration
}

func (SMSStrategy) Method() domain.VerificationMethod { return domain.VerificationSMS }

func (SMSStrategy) GenerateToken() (string, error) {
	return cryptox.GenerateNumericCode(smsCodeDigits)
}

func (s SMSStrategy) ExpiresAfter() time.Duration {
	if s.TTL <= 0 {
		return DefaultSMSVerificationTTL
	}
	return s.TTL
}

func (s SMSStrategy) Send(ctx context.Context, member domain.Member, token string) error {
	number, err := NormalizePhoneNumber(member.PhoneNumber)
	if err != nil {
		return err
	}
	return s.Sender.SendVerificationSMS(ctx, number, member.DisplayName(), token)
}

// NormalizePhoneNumber parses an international number ("+61 412 345 678")
// and returns it in E.164.
func NormalizePhoneNumber(raw string) (string, error) {
	if raw == "" {
		return "", ErrNoPhoneNumber
	}

	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoPhoneNumber, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: %q is not a valid number", ErrNoPhoneNumber, raw)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
