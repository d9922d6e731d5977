package plate

// Rarity is the tier of a generated plate.
type Rarity string

const (
	Ordinary Rarity = "ordinary"
	Nice     Rarity = "nice"
	Elite    Rarity = "elite"
	Historic Rarity = "historic"
)

// Rarities lists every tier, cheapest first.
var Rarities = []Rarity{Ordinary, Nice, Elite, Historic}

var rarityLabels = map[Rarity]string{
	Ordinary: "Обычный",
	Nice:     "Красивый",
	Elite:    "Элитный",
	Historic: "Исторический",
}

// Valid reports whether r is one of the four known tiers.
func (r Rarity) Valid() bool {
	_, ok := rarityLabels[r]
	return ok
}

// Label returns the display label, or the raw value for unknown tiers.
func (r Rarity) Label() string {
	if l, ok := rarityLabels[r]; ok {
		return l
	}
	return string(r)
}

// Rare reports whether the tier counts as rare (elite or historic).
func (r Rarity) Rare() bool {
	return r == Elite || r == Historic
}

// Condition is the wear state of a junkyard plate.
type Condition string

const (
	ConditionUsed Condition = "used"
	ConditionWorn Condition = "worn"
)

// RegionHistoric is the sentinel region of historic plates.
const RegionHistoric = "historic"

// Plate is a single collectible registration plate.
type Plate struct {
	ID            string    `json:"id"`
	Number        string    `json:"number"`
	Region        string    `json:"region"`
	Rarity        Rarity    `json:"rarity"`
	BasePrice     int64     `json:"base_price"`
	PurchasePrice *int64    `json:"purchase_price,omitempty"`
	Condition     Condition `json:"condition,omitempty"`
	Counterfeit   bool      `json:"counterfeit,omitempty"`
}

// WithPurchasePrice returns a copy of p tagged with the price paid for it.
func (p Plate) WithPurchasePrice(price int64) Plate {
	p.PurchasePrice = &price
	return p
}

// CostBasis is what the owner paid, falling back to the base price for
// plates that were never bought (loot box reveals).
func (p Plate) CostBasis() int64 {
	if p.PurchasePrice != nil {
		return *p.PurchasePrice
	}
	return p.BasePrice
}

// Plate alphabets.
var (
	Letters = []string{"А", "В", "Е", "К", "М", "Н", "О", "Р", "С", "Т", "У", "Х"}

	Regions = []string{
		"77", "177", "777",
		"78", "178",
		"50", "150", "750",
		"23", "123",
		"01", "02", "16", "116", "716",
		"21", "22", "25", "26", "27", "34", "36", "39",
		"40", "52", "54", "55", "61", "63", "66", "72", "73", "74",
		"86", "90", "93", "95", "96", "97", "98", "99",
		"102", "102", "113", "121", "124", "125", "134", "136",
		"152", "154", "159", "161", "163", "174", "177", "186",
		"190", "196", "197", "199",
	}

	EliteLetters = []string{"АМР", "ОМР", "ЕКХ", "ССС", "ТТТ", "ММР"}
	EliteNumbers = []string{"001", "007", "111", "222", "333", "444", "555", "666", "777", "888", "999"}
	EliteRegions = []string{"77", "177", "777", "78", "01"}
)
