package bot

import (
	"context"
	"fmt"

	"guildbank/bot/common"
	"guildbank/models"

	"github.com/bwmarrin/discordgo"
)

func (r *router) handleShopList(ctx context.Context, inv Invocation, _ ShopListCommand) (*Reply, error) {
	items, err := r.Shop.ListItems(ctx, inv.GuildID)
	if err != nil {
		return nil, err
	}
	return &Reply{Embed: shopEmbed(items), Ephemeral: true}, nil
}

func shopEmbed(items []*models.ShopItem) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🛒 Shop",
		Color: common.ColorInfo,
	}
	if len(items) == 0 {
		embed.Description = "The shop is empty."
		return embed
	}

	for _, item := range items {
		stock := "unlimited"
		if !item.IsUnlimited() {
			stock = fmt.Sprintf("%d left", item.Stock)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("#%d %s", item.ID, item.Name),
			Value: fmt.Sprintf("%s for %s (%s)", item.Describe(), common.FormatCredits(item.Price), stock),
		})
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Buy with /shop buy <item>"}
	return embed
}

func (r *router) handleShopBuy(ctx context.Context, inv Invocation, cmd ShopBuyCommand) (*Reply, error) {
	result, err := r.Shop.Purchase(ctx, inv.GuildID, inv.UserID, cmd.ItemID)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Content: fmt.Sprintf("✅ You bought %s for %s. Balance: %s.",
			result.RewardDescription, common.FormatCredits(result.Item.Price), common.FormatCredits(result.NewBalance)),
		Ephemeral: true,
	}, nil
}

func (r *router) handleShopAdd(ctx context.Context, inv Invocation, cmd ShopAddCommand) (*Reply, error) {
	item := &models.ShopItem{
		Name:       cmd.ItemName,
		Price:      cmd.Price,
		RewardKind: models.RewardKindGood,
		Quantity:   cmd.Quantity,
		Stock:      cmd.Stock,
	}
	if cmd.Resource != "" {
		resource := models.ResourceKind(cmd.Resource)
		if !resource.Valid() {
			return nil, argErrorf("Unknown resource %q.", cmd.Resource)
		}
		item.RewardKind = models.RewardKindResource
		item.Resource = &resource
	}
	if err := item.Validate(); err != nil {
		return nil, argErrorf("Invalid item: %v.", err)
	}

	created, err := r.Shop.AddItem(ctx, inv.GuildID, item)
	if err != nil {
		return nil, err
	}
	return &Reply{
		Content:   fmt.Sprintf("✅ Added #%d %s (%s) for %s.", created.ID, created.Name, created.Describe(), common.FormatCredits(created.Price)),
		Ephemeral: true,
	}, nil
}
