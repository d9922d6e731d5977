package shop

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/platemarket/game/plate"
)

// ID names one of the listing sources.
type ID string

const (
	Market      ID = "market"
	Marketplace ID = "marketplace"
	Junkyard    ID = "junkyard"
	Garage      ID = "garage"
	BlackMarket ID = "black_market"
)

// All lists every shop in display order.
var All = []ID{Market, Marketplace, Junkyard, Garage, BlackMarket}

var (
	// ErrGateNotMet is returned when the player's reputation is too low for a shop.
	ErrGateNotMet  = errors.New("reputation too low for this shop")
	ErrUnknownShop = errors.New("unknown shop")
)

// Parse validates a shop identifier.
func Parse(s string) (ID, error) {
	for _, id := range All {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownShop, s)
}

// AnonymousSeller is the seller tag of every black market listing.
const AnonymousSeller = "Аноним"

// Sellers is the NPC seller name pool.
var Sellers = []string{
	"Vasya_777", "AutoDealer95", "PlateHunter", "МихалычГараж",
	"Серёга_Номера", "DimaTrader", "КоляПерекуп", "Andrey_Auto",
	"NomerMaster", "ГошаГИБДД", "РоманАвто", "MaxPlates",
}

// Listing is a plate offered by a shop.
type Listing struct {
	plate.Plate
	Shop   ID     `json:"shop"`
	Price  int64  `json:"price"`
	Seller string `json:"seller,omitempty"`
}

// Rules holds the tunable shop parameters.
type Rules struct {
	GarageMinReputation int
}

// DefaultRules returns the stock shop parameters.
func DefaultRules() Rules {
	return Rules{GarageMinReputation: 10}
}
