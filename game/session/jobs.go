package session

import "errors"

// ErrUnknownJob is returned for a job id with no definition.
var ErrUnknownJob = errors.New("unknown job")

// Job is a side gig paying a fixed wage for a day of work.
type Job struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Pay        int64   `json:"pay"`
	FineChance float64 `json:"fine_chance,omitempty"`
	Fine       int64   `json:"fine,omitempty"`
}

// Jobs lists the available gigs.
var Jobs = map[string]Job{
	"mechanic":    {ID: "mechanic", Title: "механиком", Pay: 2000},
	"valet":       {ID: "valet", Title: "парковщиком", Pay: 1500},
	"transporter": {ID: "transporter", Title: "перевозчиком", Pay: 3000, FineChance: 0.2, Fine: 1000},
}

// WorkResult reports one shift.
type WorkResult struct {
	Job    Job   `json:"job"`
	Earned int64 `json:"earned"`
	Fined  bool  `json:"fined"`
	Day    int   `json:"day"`
}
