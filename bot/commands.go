package bot

import (
	"fmt"

	"guildbank/bot/common"

	"github.com/bwmarrin/discordgo"
)

var adminPermission int64 = discordgo.PermissionManageGuild

func commandDefinitions() []*discordgo.ApplicationCommand {
	minOne := float64(1)

	return []*discordgo.ApplicationCommand{
		{
			Name:        "daily",
			Description: "Claim your daily reward",
		},
		{
			Name:        "balance",
			Description: "Show an account",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to look up (defaults to you)",
				},
			},
		},
		{
			Name:        "pool",
			Description: "The community pool",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "view",
					Description: "Show the pool balance",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "adjust",
					Description: "Add (positive) or remove (negative) credits (admin only)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "Credits to add or remove",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:                     "transfer",
			Description:              "Move credits to a member (admin only)",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Recipient",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Credits to move",
					Required:    true,
					MinValue:    &minOne,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "from",
					Description: "Member to take the credits from (defaults to the pool)",
				},
			},
		},
		{
			Name:        "giveaway",
			Description: "Paid giveaways funded by the community pool",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Start a giveaway (admin only)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "prize",
							Description: "Total prize taken from the pool",
							Required:    true,
							MinValue:    &minOne,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "winners",
							Description: "Number of winners",
							Required:    true,
							MinValue:    &minOne,
							MaxValue:    common.MaxGiveawayWinners,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "entry_cost",
							Description: "Credits each entrant pays",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "minutes",
							Description: "How long entries stay open",
							Required:    true,
							MinValue:    &minOne,
							MaxValue:    common.MaxGiveawayDuration,
						},
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "excluded_role",
							Description: "Members with this role cannot enter",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "join",
					Description: "Enter a giveaway",
					Options: []*discordgo.ApplicationCommandOption{
						giveawayIDOption(),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cancel",
					Description: "Cancel a giveaway and refund its entrants (admin only)",
					Options: []*discordgo.ApplicationCommandOption{
						giveawayIDOption(),
					},
				},
			},
		},
		{
			Name:        "shop",
			Description: "Spend credits",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "Show the items for sale",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "buy",
					Description: "Buy an item",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "item",
							Description: "Item number from /shop list",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add an item (admin only)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "Item name",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "price",
							Description: "Price in credits",
							Required:    true,
							MinValue:    &minOne,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "resource",
							Description: "Resource granted; leave empty to sell the item itself",
							Choices:     resourceChoices(),
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "quantity",
							Description: "Units granted per purchase (default 1)",
							MinValue:    &minOne,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "stock",
							Description: "Units for sale, -1 for unlimited (default)",
						},
					},
				},
			},
		},
		{
			Name:                     "reset",
			Description:              "Reset every account in this server (admin only)",
			DefaultMemberPermissions: &adminPermission,
		},
	}
}

func giveawayIDOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "id",
		Description: "Giveaway number",
		Required:    true,
	}
}

func resourceChoices() []*discordgo.ApplicationCommandOptionChoice {
	names := []string{"gold", "wood", "food", "stone"}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(names))
	for i, name := range names {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: name, Value: name}
	}
	return choices
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	for _, cmd := range commandDefinitions() {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}
	return nil
}
