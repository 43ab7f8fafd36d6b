package bot

import (
	"context"

	"guildbank/models"
	"guildbank/service"
)

// Services groups the engine services the bot drives
type Services struct {
	Economy   service.EconomyService
	Rewards   service.RewardService
	Shop      service.ShopService
	Giveaways service.GiveawayService
}

type outcomeAnnouncer interface {
	AnnounceOutcome(ctx context.Context, outcome *models.GiveawayOutcome)
}

// router maps each command variant to its handler
type router struct {
	Services
	announcer outcomeAnnouncer
	routes    map[CommandName]route
}

func newRouter(services Services) *router {
	r := &router{Services: services}
	r.routes = map[CommandName]route{
		CommandDaily:          {handle: typed(r.handleDaily)},
		CommandBalance:        {handle: typed(r.handleBalance)},
		CommandPoolView:       {handle: typed(r.handlePoolView)},
		CommandPoolAdjust:     {adminOnly: true, handle: typed(r.handlePoolAdjust)},
		CommandTransfer:       {adminOnly: true, handle: typed(r.handleTransfer)},
		CommandGiveawayCreate: {adminOnly: true, handle: typed(r.handleGiveawayCreate)},
		CommandGiveawayJoin:   {handle: typed(r.handleGiveawayJoin)},
		CommandGiveawayCancel: {adminOnly: true, handle: typed(r.handleGiveawayCancel)},
		CommandShopList:       {handle: typed(r.handleShopList)},
		CommandShopBuy:        {handle: typed(r.handleShopBuy)},
		CommandShopAdd:        {adminOnly: true, handle: typed(r.handleShopAdd)},
		CommandReset:          {adminOnly: true, handle: typed(r.handleReset)},
	}
	return r
}

func (r *router) announce(ctx context.Context, outcome *models.GiveawayOutcome) {
	if r.announcer != nil && outcome != nil {
		r.announcer.AnnounceOutcome(ctx, outcome)
	}
}
