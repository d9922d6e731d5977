package session

import (
	"github.com/kasuganosora/platemarket/config"
	"github.com/kasuganosora/platemarket/game/shop"
)

// ConfigFrom builds the controller config from the game section of the
// server config. Zero values keep the stock defaults, except an explicit
// event chance of zero which turns market events off.
func ConfigFrom(gc config.GameConfig) Config {
	cfg := DefaultConfig()
	if gc.StartMoney > 0 {
		cfg.Economy.StartMoney = gc.StartMoney
	}
	if gc.ShowcaseCapacity > 0 {
		cfg.Economy.ShowcaseCapacity = gc.ShowcaseCapacity
	}
	if gc.AuctionPoolSize > 0 {
		cfg.Economy.AuctionPoolSize = gc.AuctionPoolSize
	}
	if gc.GarageMinReputation > 0 {
		cfg.Economy.Shop = shop.Rules{GarageMinReputation: gc.GarageMinReputation}
	}
	if gc.EventChance != nil && *gc.EventChance >= 0 {
		cfg.Events.Chance = *gc.EventChance
	}
	if gc.BannerDuration > 0 {
		cfg.Events.BannerDuration = gc.BannerDuration
	}
	if gc.FreeBoxDuration > 0 {
		cfg.Events.FreeBoxDuration = gc.FreeBoxDuration
	}
	if gc.LootBoxCost > 0 {
		cfg.LootBoxCost = gc.LootBoxCost
	}
	if gc.LootBoxDelay > 0 {
		cfg.LootBoxDelay = gc.LootBoxDelay
	}
	// a negative interval disables the news ticker
	if gc.NewsInterval != 0 {
		cfg.NewsInterval = gc.NewsInterval
	}
	return cfg
}
