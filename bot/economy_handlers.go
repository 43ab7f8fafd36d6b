package bot

import (
	"context"
	"fmt"
	"strings"

	"guildbank/bot/common"
	"guildbank/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (r *router) handleDaily(ctx context.Context, inv Invocation, _ DailyCommand) (*Reply, error) {
	result, err := r.Rewards.ClaimDaily(ctx, inv.GuildID, inv.UserID)
	if err != nil {
		return nil, err
	}

	return &Reply{
		Content: fmt.Sprintf("🎁 You claimed %s (streak: %d day%s). Balance: %s. Next claim %s.",
			common.FormatCredits(result.Amount),
			result.Streak, plural(result.Streak),
			common.FormatCredits(result.NewBalance),
			common.FormatDiscordTimestamp(result.NextEligibleAt, "R")),
	}, nil
}

func (r *router) handleBalance(ctx context.Context, inv Invocation, cmd BalanceCommand) (*Reply, error) {
	memberID := cmd.MemberID
	if memberID == 0 {
		memberID = inv.UserID
	}

	account, err := r.Economy.GetAccount(ctx, inv.GuildID, memberID)
	if err != nil {
		return nil, err
	}
	goods, err := r.Economy.GetInventory(ctx, inv.GuildID, memberID)
	if err != nil {
		return nil, err
	}

	return &Reply{Embed: accountEmbed(memberID, account, goods), Ephemeral: cmd.MemberID == 0}, nil
}

func accountEmbed(memberID int64, account *models.Account, goods []*models.InventoryGood) *discordgo.MessageEmbed {
	resources := make([]string, 0, 4)
	for _, kind := range []models.ResourceKind{models.ResourceGold, models.ResourceWood, models.ResourceFood, models.ResourceStone} {
		resources = append(resources, fmt.Sprintf("%s: %s", kind, common.FormatBalance(account.Resource(kind))))
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Balance", Value: common.FormatCredits(account.Balance), Inline: true},
		{Name: "Daily streak", Value: fmt.Sprintf("%d", account.DailyStreak), Inline: true},
		{Name: "Resources", Value: strings.Join(resources, "\n")},
	}
	if len(goods) > 0 {
		lines := make([]string, len(goods))
		for i, g := range goods {
			lines[i] = fmt.Sprintf("%s x%d", g.Name, g.Quantity)
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Goods", Value: strings.Join(lines, "\n")})
	}

	return &discordgo.MessageEmbed{
		Title:       "Account",
		Description: common.FormatMention(memberID),
		Color:       common.ColorInfo,
		Fields:      fields,
	}
}

func (r *router) handlePoolView(ctx context.Context, inv Invocation, _ PoolViewCommand) (*Reply, error) {
	pool, err := r.Economy.GetPool(ctx, inv.GuildID)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Content: fmt.Sprintf("🏦 The community pool holds %s. Boosts rewarded: %d.",
			common.FormatCredits(pool.Balance), pool.RewardedBoosts),
	}, nil
}

func (r *router) handlePoolAdjust(ctx context.Context, inv Invocation, cmd PoolAdjustCommand) (*Reply, error) {
	balance, err := r.Economy.AdjustPool(ctx, inv.GuildID, cmd.Delta, inv.UserID)
	if err != nil {
		return nil, err
	}

	verb := "Added"
	amount := cmd.Delta
	if amount < 0 {
		verb = "Removed"
		amount = -amount
	}
	return &Reply{
		Content:   fmt.Sprintf("✅ %s %s. The pool now holds %s.", verb, common.FormatCredits(amount), common.FormatCredits(balance)),
		Ephemeral: true,
	}, nil
}

func (r *router) handleTransfer(ctx context.Context, inv Invocation, cmd TransferCommand) (*Reply, error) {
	from := models.PoolParty()
	source := "the community pool"
	if cmd.FromMemberID != 0 {
		from = models.MemberParty(cmd.FromMemberID)
		source = common.FormatMention(cmd.FromMemberID)
	}

	result, err := r.Economy.AdminTransfer(ctx, inv.GuildID, from, cmd.ToMemberID, cmd.Amount)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"guild_id": inv.GuildID,
		"admin_id": inv.UserID,
		"from":     from.String(),
		"to":       cmd.ToMemberID,
		"amount":   cmd.Amount,
	}).Info("Admin transfer")

	return &Reply{
		Content: fmt.Sprintf("✅ Transferred %s from %s to %s. Their balance: %s.",
			common.FormatCredits(result.Amount), source,
			common.FormatMention(cmd.ToMemberID), common.FormatCredits(result.ToBalance)),
	}, nil
}

func (r *router) handleReset(ctx context.Context, inv Invocation, _ ResetCommand) (*Reply, error) {
	accounts, err := r.Economy.ResetAccounts(ctx, inv.GuildID, inv.UserID)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Content:   fmt.Sprintf("✅ Reset %d account%s.", accounts, plural(int(accounts))),
		Ephemeral: true,
	}, nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
