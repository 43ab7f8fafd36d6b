package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatBalance formats a balance amount with thousand separators
func FormatBalance(balance int64) string {
	if balance < 0 {
		return "-" + FormatBalance(-balance)
	}

	str := strconv.FormatInt(balance, 10)

	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatCredits formats an amount as bold credits for a message
func FormatCredits(amount int64) string {
	return fmt.Sprintf("**%s credits**", FormatBalance(amount))
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone
// Format types: "t" = short time, "T" = long time, "d" = short date, "D" = long date,
// "f" = short date/time, "F" = long date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}

// FormatMention renders a user mention
func FormatMention(discordID int64) string {
	return fmt.Sprintf("<@%d>", discordID)
}

// FormatMentions renders a comma separated list of user mentions
func FormatMentions(discordIDs []int64) string {
	mentions := make([]string, len(discordIDs))
	for i, id := range discordIDs {
		mentions[i] = FormatMention(id)
	}
	return strings.Join(mentions, ", ")
}

// ParseSnowflake converts a Discord ID string to int64
func ParseSnowflake(id string) (int64, error) {
	value, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid Discord ID %q: %w", id, err)
	}
	return value, nil
}

// ParseSnowflakes converts a list of Discord ID strings, skipping invalid ones
func ParseSnowflakes(ids []string) []int64 {
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if value, err := ParseSnowflake(id); err == nil {
			result = append(result, value)
		}
	}
	return result
}
