package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"guildbank/bot/common"
	"guildbank/models"

	"github.com/bwmarrin/discordgo"
)

// CommandName identifies a slash command, or a command and subcommand
type CommandName string

const (
	CommandDaily          CommandName = "daily"
	CommandBalance        CommandName = "balance"
	CommandPoolView       CommandName = "pool view"
	CommandPoolAdjust     CommandName = "pool adjust"
	CommandTransfer       CommandName = "transfer"
	CommandGiveawayCreate CommandName = "giveaway create"
	CommandGiveawayJoin   CommandName = "giveaway join"
	CommandGiveawayCancel CommandName = "giveaway cancel"
	CommandShopList       CommandName = "shop list"
	CommandShopBuy        CommandName = "shop buy"
	CommandShopAdd        CommandName = "shop add"
	CommandReset          CommandName = "reset"
)

const giveawayJoinPrefix = "giveaway_join_"

// Command is one parsed invocation. Each variant carries its own typed arguments.
type Command interface {
	Name() CommandName
}

type DailyCommand struct{}

// BalanceCommand shows a member's account. MemberID is zero for the caller.
type BalanceCommand struct {
	MemberID int64
}

type PoolViewCommand struct{}

type PoolAdjustCommand struct {
	Delta int64
}

// TransferCommand moves credits to a member. FromMemberID is zero when the
// pool is the source.
type TransferCommand struct {
	FromMemberID int64
	ToMemberID   int64
	Amount       int64
}

type GiveawayCreateCommand struct {
	EntryCost      int64
	TotalPrize     int64
	WinnerCount    int
	Duration       time.Duration
	ExcludedRoleID int64
}

type GiveawayJoinCommand struct {
	GiveawayID int64
}

type GiveawayCancelCommand struct {
	GiveawayID int64
}

type ShopListCommand struct{}

type ShopBuyCommand struct {
	ItemID int64
}

// ShopAddCommand adds an item. An empty Resource adds a good.
type ShopAddCommand struct {
	ItemName string
	Price    int64
	Resource string
	Quantity int64
	Stock    int64
}

type ResetCommand struct{}

func (DailyCommand) Name() CommandName          { return CommandDaily }
func (BalanceCommand) Name() CommandName        { return CommandBalance }
func (PoolViewCommand) Name() CommandName       { return CommandPoolView }
func (PoolAdjustCommand) Name() CommandName     { return CommandPoolAdjust }
func (TransferCommand) Name() CommandName       { return CommandTransfer }
func (GiveawayCreateCommand) Name() CommandName { return CommandGiveawayCreate }
func (GiveawayJoinCommand) Name() CommandName   { return CommandGiveawayJoin }
func (GiveawayCancelCommand) Name() CommandName { return CommandGiveawayCancel }
func (ShopListCommand) Name() CommandName       { return CommandShopList }
func (ShopBuyCommand) Name() CommandName        { return CommandShopBuy }
func (ShopAddCommand) Name() CommandName        { return CommandShopAdd }
func (ResetCommand) Name() CommandName          { return CommandReset }

// Invocation describes who issued a command and where
type Invocation struct {
	GuildID   int64
	ChannelID int64
	UserID    int64
	RoleIDs   []int64
	IsAdmin   bool
}

// Reply is what a handler wants sent back to the invoking member
type Reply struct {
	Content    string
	Embed      *discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	Ephemeral  bool

	// Posted runs with the IDs of the public message once it has been sent
	Posted func(ctx context.Context, channelID, messageID int64)
}

// argError is a malformed command argument; its message is shown to the member
type argError struct {
	msg string
}

func (e *argError) Error() string {
	return e.msg
}

func argErrorf(format string, args ...any) error {
	return &argError{msg: fmt.Sprintf(format, args...)}
}

var (
	errNotAdmin       = errors.New("administrator permission required")
	errUnknownCommand = errors.New("unknown command")
)

type handlerFunc func(ctx context.Context, inv Invocation, cmd Command) (*Reply, error)

type route struct {
	adminOnly bool
	handle    handlerFunc
}

// typed adapts a handler for one command variant to the dispatch table
func typed[C Command](fn func(ctx context.Context, inv Invocation, cmd C) (*Reply, error)) handlerFunc {
	return func(ctx context.Context, inv Invocation, cmd Command) (*Reply, error) {
		c, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %s routed to the wrong handler", errUnknownCommand, cmd.Name())
		}
		return fn(ctx, inv, c)
	}
}

// dispatch runs the handler registered for the command
func (r *router) dispatch(ctx context.Context, inv Invocation, cmd Command) (*Reply, error) {
	rt, ok := r.routes[cmd.Name()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownCommand, cmd.Name())
	}
	if rt.adminOnly && !inv.IsAdmin {
		return nil, errNotAdmin
	}
	return rt.handle(ctx, inv, cmd)
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func (o options) integer(name string) (int64, bool) {
	opt, ok := o[name]
	if !ok {
		return 0, false
	}
	return opt.IntValue(), true
}

func (o options) requiredInt(name string) (int64, error) {
	value, ok := o.integer(name)
	if !ok {
		return 0, argErrorf("Missing option %q.", name)
	}
	return value, nil
}

func (o options) text(name string) string {
	if opt, ok := o[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

// snowflake reads a user or role option, whose value is the ID as a string
func (o options) snowflake(name string) (int64, error) {
	opt, ok := o[name]
	if !ok {
		return 0, nil
	}
	raw, _ := opt.Value.(string)
	id, err := common.ParseSnowflake(raw)
	if err != nil {
		return 0, argErrorf("Invalid %s.", name)
	}
	return id, nil
}

// parseCommand turns slash command data into a typed command
func parseCommand(data discordgo.ApplicationCommandInteractionData) (Command, error) {
	name := data.Name
	raw := data.Options
	if len(raw) == 1 && raw[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		name += " " + raw[0].Name
		raw = raw[0].Options
	}

	opts := make(options, len(raw))
	for _, opt := range raw {
		opts[opt.Name] = opt
	}

	switch CommandName(name) {
	case CommandDaily:
		return DailyCommand{}, nil

	case CommandBalance:
		member, err := opts.snowflake("user")
		if err != nil {
			return nil, err
		}
		return BalanceCommand{MemberID: member}, nil

	case CommandPoolView:
		return PoolViewCommand{}, nil

	case CommandPoolAdjust:
		delta, err := opts.requiredInt("amount")
		if err != nil {
			return nil, err
		}
		if delta == 0 {
			return nil, argErrorf("Amount must not be zero.")
		}
		return PoolAdjustCommand{Delta: delta}, nil

	case CommandTransfer:
		to, err := opts.snowflake("user")
		if err != nil {
			return nil, err
		}
		if to == 0 {
			return nil, argErrorf("Missing option %q.", "user")
		}
		from, err := opts.snowflake("from")
		if err != nil {
			return nil, err
		}
		amount, err := opts.requiredInt("amount")
		if err != nil {
			return nil, err
		}
		if from == to {
			return nil, argErrorf("Source and recipient must differ.")
		}
		return TransferCommand{FromMemberID: from, ToMemberID: to, Amount: amount}, nil

	case CommandGiveawayCreate:
		return parseGiveawayCreate(opts)

	case CommandGiveawayJoin, CommandGiveawayCancel:
		id, err := opts.requiredInt("id")
		if err != nil {
			return nil, err
		}
		if CommandName(name) == CommandGiveawayJoin {
			return GiveawayJoinCommand{GiveawayID: id}, nil
		}
		return GiveawayCancelCommand{GiveawayID: id}, nil

	case CommandShopList:
		return ShopListCommand{}, nil

	case CommandShopBuy:
		id, err := opts.requiredInt("item")
		if err != nil {
			return nil, err
		}
		return ShopBuyCommand{ItemID: id}, nil

	case CommandShopAdd:
		price, err := opts.requiredInt("price")
		if err != nil {
			return nil, err
		}
		cmd := ShopAddCommand{
			ItemName: opts.text("name"),
			Price:    price,
			Resource: opts.text("resource"),
			Quantity: 1,
			Stock:    models.UnlimitedStock,
		}
		if quantity, ok := opts.integer("quantity"); ok {
			cmd.Quantity = quantity
		}
		if stock, ok := opts.integer("stock"); ok {
			cmd.Stock = stock
		}
		return cmd, nil

	case CommandReset:
		return ResetCommand{}, nil
	}

	return nil, fmt.Errorf("%w: %s", errUnknownCommand, name)
}

func parseGiveawayCreate(opts options) (Command, error) {
	entryCost, err := opts.requiredInt("entry_cost")
	if err != nil {
		return nil, err
	}
	prize, err := opts.requiredInt("prize")
	if err != nil {
		return nil, err
	}
	winners, err := opts.requiredInt("winners")
	if err != nil {
		return nil, err
	}
	minutes, err := opts.requiredInt("minutes")
	if err != nil {
		return nil, err
	}
	if winners < 1 || winners > common.MaxGiveawayWinners {
		return nil, argErrorf("Winners must be between 1 and %d.", common.MaxGiveawayWinners)
	}
	if minutes < 1 || minutes > common.MaxGiveawayDuration {
		return nil, argErrorf("Duration must be between 1 and %d minutes.", common.MaxGiveawayDuration)
	}
	excluded, err := opts.snowflake("excluded_role")
	if err != nil {
		return nil, err
	}

	return GiveawayCreateCommand{
		EntryCost:      entryCost,
		TotalPrize:     prize,
		WinnerCount:    int(winners),
		Duration:       time.Duration(minutes) * time.Minute,
		ExcludedRoleID: excluded,
	}, nil
}

// parseComponent turns a button custom ID into a typed command
func parseComponent(customID string) (Command, error) {
	if raw, ok := strings.CutPrefix(customID, giveawayJoinPrefix); ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad giveaway button %q", errUnknownCommand, customID)
		}
		return GiveawayJoinCommand{GiveawayID: id}, nil
	}
	return nil, fmt.Errorf("%w: component %q", errUnknownCommand, customID)
}

// invocationFrom extracts the caller details of an interaction
func invocationFrom(i *discordgo.InteractionCreate) (Invocation, error) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return Invocation{}, argErrorf("Commands can only be used inside a server.")
	}

	guildID, err := common.ParseSnowflake(i.GuildID)
	if err != nil {
		return Invocation{}, err
	}
	userID, err := common.ParseSnowflake(i.Member.User.ID)
	if err != nil {
		return Invocation{}, err
	}
	channelID, _ := common.ParseSnowflake(i.ChannelID)

	return Invocation{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		RoleIDs:   common.ParseSnowflakes(i.Member.Roles),
		IsAdmin:   i.Member.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageGuild) != 0,
	}, nil
}
