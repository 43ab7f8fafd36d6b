package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"guildbank/bot/common"
	"guildbank/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// AnnounceOutcome updates a settled giveaway's message and posts the result in its channel
func (b *Bot) AnnounceOutcome(ctx context.Context, outcome *models.GiveawayOutcome) {
	g := outcome.Giveaway
	if g.ChannelID == nil {
		log.WithField("giveaway_id", g.ID).Debug("Giveaway has no channel, skipping announcement")
		return
	}
	channelID := strconv.FormatInt(*g.ChannelID, 10)

	var reference *discordgo.MessageReference
	if g.MessageID != nil {
		messageID := strconv.FormatInt(*g.MessageID, 10)
		embeds := []*discordgo.MessageEmbed{outcomeEmbed(outcome)}
		components := giveawayComponents(g)
		_, err := b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
			Channel:    channelID,
			ID:         messageID,
			Embeds:     &embeds,
			Components: &components,
		})
		if err != nil {
			// The message may be gone when a deletion cancelled the giveaway
			log.WithFields(log.Fields{
				"giveaway_id": g.ID,
				"message_id":  messageID,
			}).WithError(err).Warn("Failed to update giveaway message")
		} else {
			reference = &discordgo.MessageReference{MessageID: messageID, ChannelID: channelID}
		}
	}

	_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:   outcomeMessage(outcome),
		Reference: reference,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	})
	if err != nil {
		log.WithField("giveaway_id", g.ID).WithError(err).Error("Failed to post giveaway result")
	}
}

// outcomeMessage is the plain-text result posted under a giveaway
func outcomeMessage(outcome *models.GiveawayOutcome) string {
	g := outcome.Giveaway
	if g.State != models.GiveawayStateResolved {
		return fmt.Sprintf("Giveaway #%d was cancelled.", g.ID)
	}

	ids := make([]int64, len(outcome.Winners))
	for i, w := range outcome.Winners {
		ids[i] = w.DiscordID
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎉 Congratulations %s! You each won %s in giveaway #%d.",
		common.FormatMentions(ids), common.FormatCredits(g.PayoutPerWinner()), g.ID)
	if outcome.Remainder > 0 {
		fmt.Fprintf(&sb, " %s went back to the community pool.", common.FormatCredits(outcome.Remainder))
	}
	return sb.String()
}
