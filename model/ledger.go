package model

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerEntry records one state-changing game command. The ledger is an
// audit trail only; sessions are never restored from it.
type LedgerEntry struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID    string         `gorm:"index:idx_ledger_trace;size:36" json:"trace_id"`
	SessionID  string         `gorm:"index:idx_ledger_session;size:36;not null" json:"session_id"`
	Action     string         `gorm:"size:32;not null" json:"action"`
	PlateID    string         `gorm:"size:32" json:"plate_id"`
	Amount     int64          `json:"amount"`
	Money      int64          `json:"money"`
	Reputation int            `json:"reputation"`
	Day        int            `json:"day"`
	Error      string         `gorm:"type:text" json:"error"`
	Detail     datatypes.JSON `json:"detail"`
	CreatedAt  time.Time      `gorm:"index:idx_ledger_created;autoCreateTime:milli" json:"created_at"`
}
