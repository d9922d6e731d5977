package quest

import (
	"errors"
	"sort"
	"strings"

	"github.com/kasuganosora/platemarket/game/economy"
	"github.com/kasuganosora/platemarket/game/plate"
	"go.uber.org/zap"
)

// ErrUnknownQuest is returned for a quest id with no definition.
var ErrUnknownQuest = errors.New("unknown quest")

// ObjectiveType categorizes a quest objective.
type ObjectiveType string

const (
	ObjectiveOwnPlate        ObjectiveType = "own_plate"
	ObjectiveProfitableSales ObjectiveType = "profitable_sales"
	ObjectiveOwnRarity       ObjectiveType = "own_rarity"
)

// Objective describes one requirement within a quest.
type Objective struct {
	Type           ObjectiveType `json:"type"`
	Region         string        `json:"region,omitempty"`
	NumberContains string        `json:"number_contains,omitempty"`
	Rarity         plate.Rarity  `json:"rarity,omitempty"`
	Count          int           `json:"count"`
}

// QuestDef is a quest definition.
type QuestDef struct {
	ID               int         `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Objectives       []Objective `json:"objectives"`
	RewardMoney      int64       `json:"reward_money"`
	RewardReputation int         `json:"reward_reputation"`
}

// Quest is a definition together with its completion flag.
type Quest struct {
	QuestDef
	Completed bool `json:"completed"`
}

// Status is the outcome of a quest check.
type Status int

const (
	StatusNotMet Status = iota
	StatusGranted
	StatusAlreadyCompleted
)

func (s Status) String() string {
	switch s {
	case StatusGranted:
		return "granted"
	case StatusAlreadyCompleted:
		return "already_completed"
	default:
		return "not_met"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DefaultQuests returns the stock quest line.
func DefaultQuests() map[int]*QuestDef {
	return map[int]*QuestDef{
		1: {
			ID:          1,
			Title:       "Найти номер для чиновника",
			Description: "Найдите номер с регионом 77 и числом 777",
			Objectives: []Objective{
				{Type: ObjectiveOwnPlate, Region: "77", NumberContains: "777", Count: 1},
			},
			RewardMoney:      50_000,
			RewardReputation: 10,
		},
		2: {
			ID:          2,
			Title:       "Первая сделка",
			Description: "Купите и продайте любой номер с прибылью",
			Objectives: []Objective{
				{Type: ObjectiveProfitableSales, Count: 1},
			},
			RewardMoney:      10_000,
			RewardReputation: 5,
		},
		3: {
			ID:          3,
			Title:       "Коллекционер",
			Description: "Соберите 5 элитных номеров",
			Objectives: []Objective{
				{Type: ObjectiveOwnRarity, Rarity: plate.Elite, Count: 5},
			},
			RewardMoney:      100_000,
			RewardReputation: 20,
		},
	}
}

// Service evaluates quests on demand and grants each reward at most once.
type Service struct {
	defs      map[int]*QuestDef
	completed map[int]bool
	logger    *zap.Logger
}

// NewService creates a quest Service with the given definitions.
func NewService(defs map[int]*QuestDef, logger *zap.Logger) *Service {
	if defs == nil {
		defs = make(map[int]*QuestDef)
	}
	return &Service{defs: defs, completed: make(map[int]bool), logger: logger}
}

// Check evaluates quest id against s and credits the reward on first success.
// Checking a completed quest is a no-op.
func (svc *Service) Check(id int, s *economy.State) (Status, *QuestDef, error) {
	def, ok := svc.defs[id]
	if !ok {
		return StatusNotMet, nil, ErrUnknownQuest
	}
	if svc.completed[id] {
		return StatusAlreadyCompleted, def, nil
	}
	for _, obj := range def.Objectives {
		if !met(obj, s) {
			return StatusNotMet, def, nil
		}
	}
	svc.completed[id] = true
	s.Credit(def.RewardMoney, def.RewardReputation)
	svc.logger.Info("quest completed",
		zap.Int("quest_id", id),
		zap.Int64("reward", def.RewardMoney))
	return StatusGranted, def, nil
}

// List returns every quest ordered by id.
func (svc *Service) List() []Quest {
	out := make([]Quest, 0, len(svc.defs))
	for id, def := range svc.defs {
		out = append(out, Quest{QuestDef: *def, Completed: svc.completed[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func met(obj Objective, s *economy.State) bool {
	switch obj.Type {
	case ObjectiveOwnPlate:
		n := 0
		for _, p := range s.Inventory {
			if (obj.Region == "" || p.Region == obj.Region) && strings.Contains(p.Number, obj.NumberContains) {
				n++
			}
		}
		return n >= obj.Count
	case ObjectiveProfitableSales:
		return s.ProfitableSales >= obj.Count
	case ObjectiveOwnRarity:
		return s.CountRarity(obj.Rarity) >= obj.Count
	default:
		return false
	}
}
