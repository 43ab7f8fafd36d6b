package bot

import (
	"context"
	"fmt"

	"guildbank/bot/common"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token string

	// GuildID scopes command registration to one server; empty registers globally
	GuildID string
}

type Bot struct {
	config  Config
	session *discordgo.Session
	router  *router
}

func New(config Config, services Services) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildInvites

	bot := &Bot{
		config:  config,
		session: dg,
		router:  newRouter(services),
	}
	bot.router.announcer = bot

	// Interactions
	dg.AddHandler(bot.handleInteraction)

	// Gateway activity
	dg.AddHandler(bot.handleGuildCreate)
	dg.AddHandler(bot.handleMessageCreate)
	dg.AddHandler(bot.handleVoiceStateUpdate)
	dg.AddHandler(bot.handleGuildMemberAdd)
	dg.AddHandler(bot.handleGuildUpdate)
	dg.AddHandler(bot.handleMessageDelete)

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// handleInteraction parses slash commands and buttons into typed commands and dispatches them
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var (
		cmd Command
		err error
	)
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		cmd, err = parseCommand(i.ApplicationCommandData())
	case discordgo.InteractionMessageComponent:
		cmd, err = parseComponent(i.MessageComponentData().CustomID)
	default:
		return
	}

	ctx := context.Background()
	var reply *Reply
	inv, invErr := invocationFrom(i)
	switch {
	case invErr != nil:
		err = invErr
	case err == nil:
		reply, err = b.router.dispatch(ctx, inv, cmd)
	}

	if err != nil {
		b.respondWithError(s, i, inv, err)
		return
	}
	b.respond(ctx, s, i, reply)
}

func (b *Bot) respond(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, reply *Reply) {
	data := &discordgo.InteractionResponseData{
		Content:    reply.Content,
		Components: reply.Components,
	}
	if reply.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{reply.Embed}
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Errorf("Error responding to interaction: %v", err)
		return
	}

	if reply.Posted == nil || reply.Ephemeral {
		return
	}
	msg, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		log.Errorf("Error fetching interaction response: %v", err)
		return
	}
	channelID, err := common.ParseSnowflake(msg.ChannelID)
	if err != nil {
		log.Errorf("Error parsing channel ID %s: %v", msg.ChannelID, err)
		return
	}
	messageID, err := common.ParseSnowflake(msg.ID)
	if err != nil {
		log.Errorf("Error parsing message ID %s: %v", msg.ID, err)
		return
	}
	reply.Posted(ctx, channelID, messageID)
}

func (b *Bot) respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, inv Invocation, err error) {
	entry := log.WithFields(log.Fields{
		"guild_id": inv.GuildID,
		"user_id":  inv.UserID,
	}).WithError(err)
	if isExpected(err) {
		entry.Debug("Command rejected")
	} else {
		entry.Error("Command failed")
	}
	common.RespondWithError(s, i, userMessage(err))
}
