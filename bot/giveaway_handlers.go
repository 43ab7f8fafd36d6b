package bot

import (
	"context"
	"fmt"

	"guildbank/bot/common"
	"guildbank/service"

	log "github.com/sirupsen/logrus"
)

func (r *router) handleGiveawayCreate(ctx context.Context, inv Invocation, cmd GiveawayCreateCommand) (*Reply, error) {
	var excluded []int64
	if cmd.ExcludedRoleID != 0 {
		excluded = []int64{cmd.ExcludedRoleID}
	}

	g, err := r.Giveaways.CreateGiveaway(ctx, service.CreateGiveawayParams{
		GuildID:         inv.GuildID,
		CreatorID:       inv.UserID,
		EntryCost:       cmd.EntryCost,
		TotalPrize:      cmd.TotalPrize,
		WinnerCount:     cmd.WinnerCount,
		Duration:        cmd.Duration,
		ExcludedRoleIDs: excluded,
		ChannelID:       inv.ChannelID,
	})
	if err != nil {
		return nil, err
	}

	return &Reply{
		Embed:      giveawayEmbed(g),
		Components: giveawayComponents(g),
		Posted: func(ctx context.Context, channelID, messageID int64) {
			if err := r.Giveaways.SetMessage(ctx, g.GuildID, g.ID, channelID, messageID); err != nil {
				log.WithFields(log.Fields{
					"guild_id":    g.GuildID,
					"giveaway_id": g.ID,
					"message_id":  messageID,
				}).WithError(err).Error("Failed to record giveaway message")
			}
		},
	}, nil
}

func (r *router) handleGiveawayJoin(ctx context.Context, inv Invocation, cmd GiveawayJoinCommand) (*Reply, error) {
	if err := r.Giveaways.JoinGiveaway(ctx, inv.GuildID, cmd.GiveawayID, inv.UserID, inv.RoleIDs); err != nil {
		return nil, err
	}
	return &Reply{
		Content:   fmt.Sprintf("🎟️ You entered giveaway #%d. Good luck!", cmd.GiveawayID),
		Ephemeral: true,
	}, nil
}

func (r *router) handleGiveawayCancel(ctx context.Context, inv Invocation, cmd GiveawayCancelCommand) (*Reply, error) {
	outcome, err := r.Giveaways.CancelGiveaway(ctx, inv.GuildID, cmd.GiveawayID)
	if err != nil {
		return nil, err
	}
	r.announce(ctx, outcome)

	return &Reply{
		Content: fmt.Sprintf("✅ Giveaway #%d cancelled. Refunded: %s.", cmd.GiveawayID,
			orNone(common.FormatMentions(outcome.Refunded))),
		Ephemeral: true,
	}, nil
}

func orNone(s string) string {
	if s == "" {
		return "nobody"
	}
	return s
}
