package common

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		balance  int64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-25000, "-25,000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatBalance(tt.balance))
	}
}

func TestFormatDiscordTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "<t:1772496000:R>", FormatDiscordTimestamp(ts, "R"))
}

func TestFormatMentions(t *testing.T) {
	assert.Equal(t, "<@1>, <@22>", FormatMentions([]int64{1, 22}))
	assert.Equal(t, "", FormatMentions(nil))
}

func TestParseSnowflake(t *testing.T) {
	id, err := ParseSnowflake("123456789012345678")
	require.NoError(t, err)
	assert.Equal(t, int64(123456789012345678), id)

	_, err = ParseSnowflake("abc")
	assert.Error(t, err)

	assert.Equal(t, []int64{5, 7}, ParseSnowflakes([]string{"5", "x", "7"}))
}

func TestDisableComponents(t *testing.T) {
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Join", CustomID: "giveaway_join_1"},
		}},
	}

	disabled := DisableComponents(components)

	row := disabled[0].(discordgo.ActionsRow)
	assert.True(t, row.Components[0].(discordgo.Button).Disabled)
	assert.False(t, components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button).Disabled)
}
