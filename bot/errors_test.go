package bot

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"guildbank/service"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	next := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"argument", argErrorf("Missing option %q.", "amount"), `Missing option "amount".`},
		{"cooldown", &service.DailyCooldownError{NextEligibleAt: next}, "You already claimed your daily reward. Next claim <t:1772582400:R>."},
		{"not admin", errNotAdmin, "This command requires the Manage Server permission."},
		{"pool dry", fmt.Errorf("reward: %w", service.ErrInsufficientPoolFunds), "The community pool does not have enough credits."},
		{"member short", service.ErrInsufficientFunds, "Not enough credits."},
		{"duplicate entry", service.ErrAlreadyEntered, "You have already entered this giveaway."},
		{"excluded", service.ErrExcluded, "One of your roles is excluded from this giveaway."},
		{"closed", service.ErrClosed, "This giveaway is no longer accepting entries."},
		{"settled", service.ErrInvalidState, "This giveaway has already ended."},
		{"sold out", service.ErrOutOfStock, "That item is sold out."},
		{"missing", fmt.Errorf("giveaway 9: %w", service.ErrNotFound), "Not found. Check the ID and try again."},
		{"bad amount", service.ErrInvalidAmount, "Amounts must be positive."},
		{"store down", service.ErrStoreUnavailable, genericErrorMessage},
		{"unknown", errors.New("boom"), genericErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userMessage(tt.err))
		})
	}
}

func TestIsExpected(t *testing.T) {
	assert.True(t, isExpected(argErrorf("bad")))
	assert.True(t, isExpected(errNotAdmin))
	assert.True(t, isExpected(service.ErrOutOfStock))
	assert.False(t, isExpected(service.ErrStoreUnavailable))
	assert.False(t, isExpected(errors.New("boom")))
}
