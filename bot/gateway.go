package bot

import (
	"context"
	"time"

	"guildbank/bot/common"
	"guildbank/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// handleGuildCreate registers the guild and seeds the in-memory activity trackers
func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	guildID, err := common.ParseSnowflake(g.ID)
	if err != nil {
		log.Errorf("Error parsing guild ID %s: %v", g.ID, err)
		return
	}
	ctx := context.Background()
	logger := log.WithField("guild_id", guildID)

	created, err := b.router.Economy.RegisterCommunity(ctx, guildID)
	if err != nil {
		logger.WithError(err).Error("Failed to register community")
		return
	}
	if created {
		logger.Info("Registered new community")
	}

	if invites, err := s.GuildInvites(g.ID); err != nil {
		logger.WithError(err).Warn("Failed to fetch invites, invite rewards start on the next join")
	} else {
		b.router.Rewards.SeedInvites(guildID, inviteUses(invites))
	}

	var inVoice []int64
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == "" || (vs.Member != nil && vs.Member.User != nil && vs.Member.User.Bot) {
			continue
		}
		if id, err := common.ParseSnowflake(vs.UserID); err == nil {
			inVoice = append(inVoice, id)
		}
	}
	b.router.Rewards.SeedVoiceSessions(guildID, inVoice, time.Now())

	b.boostCountChanged(ctx, guildID, g.PremiumSubscriptionCount)
}

func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return
	}
	guildID, err := common.ParseSnowflake(m.GuildID)
	if err != nil {
		return
	}
	memberID, err := common.ParseSnowflake(m.Author.ID)
	if err != nil {
		return
	}

	if _, err := b.router.Rewards.MessageObserved(context.Background(), guildID, memberID); err != nil {
		log.WithFields(log.Fields{
			"guild_id":   guildID,
			"discord_id": memberID,
		}).WithError(err).Error("Failed to record message activity")
	}
}

// handleVoiceStateUpdate tracks voice sessions. Moving between channels keeps the session running.
func (b *Bot) handleVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil || (v.Member != nil && v.Member.User != nil && v.Member.User.Bot) {
		return
	}
	guildID, err := common.ParseSnowflake(v.GuildID)
	if err != nil {
		return
	}
	memberID, err := common.ParseSnowflake(v.UserID)
	if err != nil {
		return
	}
	now := time.Now()

	switch {
	case v.ChannelID == "":
		if _, err := b.router.Rewards.VoiceLeft(context.Background(), guildID, memberID, now); err != nil {
			log.WithFields(log.Fields{
				"guild_id":   guildID,
				"discord_id": memberID,
			}).WithError(err).Error("Failed to reward voice session")
		}
	case v.BeforeUpdate == nil || v.BeforeUpdate.ChannelID == "":
		b.router.Rewards.VoiceJoined(guildID, memberID, now)
	}
}

// handleGuildMemberAdd credits whoever's invite the new member used
func (b *Bot) handleGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil || m.User.Bot {
		return
	}
	guildID, err := common.ParseSnowflake(m.GuildID)
	if err != nil {
		return
	}
	memberID, err := common.ParseSnowflake(m.User.ID)
	if err != nil {
		return
	}
	logger := log.WithFields(log.Fields{
		"guild_id":   guildID,
		"invitee_id": memberID,
	})

	invites, err := s.GuildInvites(m.GuildID)
	if err != nil {
		logger.WithError(err).Warn("Failed to fetch invites for member join")
		return
	}
	if _, err := b.router.Rewards.MemberJoined(context.Background(), guildID, memberID, inviteUses(invites)); err != nil {
		logger.WithError(err).Error("Failed to reward invite")
	}
}

func (b *Bot) handleGuildUpdate(s *discordgo.Session, g *discordgo.GuildUpdate) {
	if g.Guild == nil {
		return
	}
	guildID, err := common.ParseSnowflake(g.ID)
	if err != nil {
		return
	}
	b.boostCountChanged(context.Background(), guildID, g.PremiumSubscriptionCount)
}

// handleMessageDelete cancels a giveaway whose announcement was deleted
func (b *Bot) handleMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	if m.Message == nil {
		return
	}
	messageID, err := common.ParseSnowflake(m.ID)
	if err != nil {
		return
	}
	ctx := context.Background()

	outcome, err := b.router.Giveaways.CancelForDeletedMessage(ctx, messageID)
	if err != nil {
		log.WithField("message_id", messageID).WithError(err).Error("Failed to cancel giveaway for deleted message")
		return
	}
	if outcome != nil {
		log.WithFields(log.Fields{
			"guild_id":    outcome.Giveaway.GuildID,
			"giveaway_id": outcome.Giveaway.ID,
		}).Info("Giveaway cancelled because its message was deleted")
		b.AnnounceOutcome(ctx, outcome)
	}
}

func (b *Bot) boostCountChanged(ctx context.Context, guildID int64, count int) {
	if _, err := b.router.Rewards.BoostCountChanged(ctx, guildID, count); err != nil {
		log.WithFields(log.Fields{
			"guild_id": guildID,
			"boosts":   count,
		}).WithError(err).Error("Failed to reward boosts")
	}
}

// inviteUses converts live invites into the tracker's view of them
func inviteUses(invites []*discordgo.Invite) []service.InviteUse {
	uses := make([]service.InviteUse, 0, len(invites))
	for _, inv := range invites {
		if inv.Inviter == nil {
			continue
		}
		inviterID, err := common.ParseSnowflake(inv.Inviter.ID)
		if err != nil {
			continue
		}
		uses = append(uses, service.InviteUse{Code: inv.Code, InviterID: inviterID, Uses: inv.Uses})
	}
	return uses
}
