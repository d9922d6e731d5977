package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/platemarket/game/session"
	"github.com/kasuganosora/platemarket/model"
	"github.com/kasuganosora/platemarket/plugin/hook"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const hookName = "ledger"

// Entry holds one ledger event to be logged.
type Entry struct {
	TraceID    string
	SessionID  string
	Action     string
	PlateID    string
	Amount     int64
	Money      int64
	Reputation int
	Day        int
	Error      string
	Detail     interface{}
}

// Service writes ledger entries asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.LedgerEntry
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new ledger Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.LedgerEntry, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Attach subscribes the ledger to the game hooks.
func (svc *Service) Attach(hc *hook.HookCenter) {
	hc.Register(hook.AfterCommand, 100, hookName, func(_ context.Context, _ hook.Event, data any) (any, error) {
		if rec, ok := data.(*session.CommandRecord); ok {
			entry := Entry{
				TraceID:    rec.TraceID,
				SessionID:  rec.SessionID,
				Action:     rec.Action,
				PlateID:    rec.PlateID,
				Amount:     rec.Amount,
				Money:      rec.Money,
				Reputation: rec.Reputation,
				Day:        rec.Day,
				Error:      rec.Error,
			}
			// a nil map must stay a nil interface or it is stored as "null"
			if rec.Detail != nil {
				entry.Detail = rec.Detail
			}
			svc.Log(entry)
		}
		return data, nil
	})
	lifecycle := func(action string) hook.HookFn {
		return func(ctx context.Context, _ hook.Event, data any) (any, error) {
			if id, ok := data.(string); ok {
				svc.Log(Entry{TraceID: session.TraceID(ctx), SessionID: id, Action: action})
			}
			return data, nil
		}
	}
	hc.Register(hook.OnSessionStart, 100, hookName, lifecycle("session_start"))
	hc.Register(hook.OnSessionEnd, 100, hookName, lifecycle("session_end"))
}

// Detach removes the ledger hooks.
func (svc *Service) Detach(hc *hook.HookCenter) {
	hc.UnregisterAll(hookName)
}

// Log enqueues a ledger entry for async DB write.
func (svc *Service) Log(entry Entry) {
	var detail datatypes.JSON
	if entry.Detail != nil {
		raw, err := json.Marshal(entry.Detail)
		if err != nil {
			svc.logger.Warn("ledger detail not encodable", zap.String("action", entry.Action), zap.Error(err))
		} else {
			detail = datatypes.JSON(raw)
		}
	}
	record := &model.LedgerEntry{
		TraceID:    entry.TraceID,
		SessionID:  entry.SessionID,
		Action:     entry.Action,
		PlateID:    entry.PlateID,
		Amount:     entry.Amount,
		Money:      entry.Money,
		Reputation: entry.Reputation,
		Day:        entry.Day,
		Error:      entry.Error,
		Detail:     detail,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("ledger channel full, dropping entry",
			zap.String("action", entry.Action))
	}
}

// Recent returns the newest entries, optionally filtered by session.
func (svc *Service) Recent(ctx context.Context, sessionID string, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := svc.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	var out []model.LedgerEntry
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	batch := make([]*model.LedgerEntry, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("ledger batch write failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
