package bot

import (
	"errors"

	"guildbank/bot/common"
	"guildbank/service"
)

const genericErrorMessage = "Something went wrong. Please try again later."

// userMessage phrases an engine error for the member who caused it
func userMessage(err error) string {
	var cooldown *service.DailyCooldownError
	var arg *argError

	switch {
	case errors.As(err, &arg):
		return arg.msg
	case errors.As(err, &cooldown):
		return "You already claimed your daily reward. Next claim " + common.FormatDiscordTimestamp(cooldown.NextEligibleAt, "R") + "."
	case errors.Is(err, errNotAdmin):
		return "This command requires the Manage Server permission."
	case errors.Is(err, service.ErrInsufficientPoolFunds):
		return "The community pool does not have enough credits."
	case errors.Is(err, service.ErrInsufficientFunds):
		return "Not enough credits."
	case errors.Is(err, service.ErrAlreadyEntered):
		return "You have already entered this giveaway."
	case errors.Is(err, service.ErrExcluded):
		return "One of your roles is excluded from this giveaway."
	case errors.Is(err, service.ErrClosed):
		return "This giveaway is no longer accepting entries."
	case errors.Is(err, service.ErrInvalidState):
		return "This giveaway has already ended."
	case errors.Is(err, service.ErrOutOfStock):
		return "That item is sold out."
	case errors.Is(err, service.ErrNotFound):
		return "Not found. Check the ID and try again."
	case errors.Is(err, service.ErrInvalidAmount):
		return "Amounts must be positive."
	}
	return genericErrorMessage
}

// isExpected reports whether err is a normal rejection rather than a failure
func isExpected(err error) bool {
	var arg *argError
	return errors.As(err, &arg) || errors.Is(err, errNotAdmin) || service.IsBusinessError(err)
}
