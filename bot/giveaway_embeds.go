package bot

import (
	"fmt"
	"strings"

	"guildbank/bot/common"
	"guildbank/models"

	"github.com/bwmarrin/discordgo"
)

// giveawayEmbed renders an open giveaway's announcement
func giveawayEmbed(g *models.Giveaway) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Prize", Value: common.FormatCredits(g.TotalPrize), Inline: true},
		{Name: "Winners", Value: fmt.Sprintf("%d (%s each)", g.WinnerCount, common.FormatBalance(g.PayoutPerWinner())), Inline: true},
		{Name: "Entry cost", Value: common.FormatCredits(g.EntryCost), Inline: true},
		{Name: "Ends", Value: common.FormatDiscordTimestamp(g.EndTime, "R")},
	}
	if len(g.ExcludedRoleIDs) > 0 {
		roles := make([]string, len(g.ExcludedRoleIDs))
		for i, id := range g.ExcludedRoleIDs {
			roles[i] = fmt.Sprintf("<@&%d>", id)
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Not open to", Value: strings.Join(roles, ", ")})
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🎉 Giveaway #%d", g.ID),
		Description: fmt.Sprintf("Hosted by %s. Press **Join** to enter.", common.FormatMention(g.CreatorID)),
		Color:       common.ColorPrimary,
		Fields:      fields,
	}
}

// outcomeEmbed renders how a giveaway ended
func outcomeEmbed(outcome *models.GiveawayOutcome) *discordgo.MessageEmbed {
	g := outcome.Giveaway
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Giveaway #%d has ended", g.ID),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Entrants", Value: fmt.Sprintf("%d", outcome.Participants), Inline: true},
			{Name: "Prize", Value: common.FormatCredits(g.TotalPrize), Inline: true},
		},
	}

	if g.State == models.GiveawayStateResolved {
		embed.Color = common.ColorSuccess
		lines := make([]string, len(outcome.Winners))
		for i, w := range outcome.Winners {
			lines[i] = fmt.Sprintf("%s won %s", common.FormatMention(w.DiscordID), common.FormatCredits(w.Payout))
		}
		embed.Description = strings.Join(lines, "\n")
		return embed
	}

	embed.Color = common.ColorWarning
	switch {
	case outcome.Participants == 0:
		embed.Description = "Cancelled with no entrants. The prize went back to the community pool."
	case len(outcome.Refunded) > 0:
		embed.Description = fmt.Sprintf("Cancelled. %d entrant%s refunded and the prize went back to the community pool.",
			len(outcome.Refunded), pluralWas(len(outcome.Refunded)))
	default:
		embed.Description = "Cancelled. The prize went back to the community pool."
	}
	return embed
}

func pluralWas(n int) string {
	if n == 1 {
		return " was"
	}
	return "s were"
}

// giveawayComponents returns the join button, disabled once the giveaway has ended
func giveawayComponents(g *models.Giveaway) []discordgo.MessageComponent {
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Join",
					Style:    discordgo.PrimaryButton,
					CustomID: fmt.Sprintf("%s%d", giveawayJoinPrefix, g.ID),
					Emoji:    &discordgo.ComponentEmoji{Name: "🎟️"},
				},
			},
		},
	}
	if g.IsOpen() {
		return components
	}
	return common.DisableComponents(components)
}
