package scheduler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is a scheduled callback.
type TaskFn func()

// Kind distinguishes repeating tasks from one-shot timers.
type Kind string

const (
	Repeat Kind = "repeat"
	Once   Kind = "once"
)

// TaskInfo describes a registered task.
type TaskInfo struct {
	Owner string        `json:"owner"`
	Name  string        `json:"name"`
	Kind  Kind          `json:"kind"`
	Every time.Duration `json:"every,omitempty"`
	Due   time.Time     `json:"due,omitempty"`
}

type key struct{ owner, name string }

type task struct {
	info TaskInfo
	stop func()
}

// Scheduler runs the timers of live game sessions: news tickers, loot box
// reveals and the idle-session sweep. Every task belongs to an owner so a
// session's tasks can be dropped together when it ends.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[key]*task
	stopped bool
	logger  *zap.Logger
}

// New creates a Scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		tasks:  make(map[key]*task),
		logger: logger,
	}
}

// Every runs fn on a fixed interval until the task is removed. A task with
// the same owner and name is replaced. A non-positive interval schedules
// nothing.
func (s *Scheduler) Every(owner, name string, interval time.Duration, fn TaskFn) {
	if interval <= 0 {
		s.logger.Warn("non-positive interval, task dropped", zap.String("owner", owner), zap.String("task", name), zap.Duration("interval", interval))
		return
	}
	done := make(chan struct{})
	t := &task{
		info: TaskInfo{Owner: owner, Name: name, Kind: Repeat, Every: interval},
		stop: sync.OnceFunc(func() { close(done) }),
	}
	if !s.put(t) {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.run(t.info, fn)
			case <-done:
				return
			}
		}
	}()
}

// After runs fn once after delay. A pending task with the same owner and
// name is replaced.
func (s *Scheduler) After(owner, name string, delay time.Duration, fn TaskFn) {
	t := &task{info: TaskInfo{Owner: owner, Name: name, Kind: Once, Due: time.Now().Add(delay)}}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.logger.Warn("scheduler stopped, task dropped", zap.String("owner", owner), zap.String("task", name))
		return
	}
	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.tasks[key{owner, name}] == t {
			delete(s.tasks, key{owner, name})
		}
		s.mu.Unlock()
		s.run(t.info, fn)
	})
	t.stop = func() { timer.Stop() }
	s.replace(t)
}

func (s *Scheduler) put(t *task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.logger.Warn("scheduler stopped, task dropped", zap.String("owner", t.info.Owner), zap.String("task", t.info.Name))
		return false
	}
	s.replace(t)
	return true
}

// replace must be called with s.mu held.
func (s *Scheduler) replace(t *task) {
	k := key{t.info.Owner, t.info.Name}
	if old, ok := s.tasks[k]; ok {
		old.stop()
	}
	s.tasks[k] = t
	s.logger.Debug("task scheduled",
		zap.String("owner", t.info.Owner),
		zap.String("task", t.info.Name),
		zap.String("kind", string(t.info.Kind)))
}

func (s *Scheduler) run(info TaskInfo, fn TaskFn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked",
				zap.String("owner", info.Owner),
				zap.String("task", info.Name),
				zap.Any("recover", r))
		}
	}()
	fn()
}

// Remove stops one task. It reports whether the task existed.
func (s *Scheduler) Remove(owner, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{owner, name}
	t, ok := s.tasks[k]
	if ok {
		t.stop()
		delete(s.tasks, k)
	}
	return ok
}

// Cancel stops every task of owner and returns how many were stopped.
func (s *Scheduler) Cancel(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, t := range s.tasks {
		if k.owner == owner {
			t.stop()
			delete(s.tasks, k)
			n++
		}
	}
	return n
}

// Stop stops all tasks; later registrations are dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for k, t := range s.tasks {
		t.stop()
		delete(s.tasks, k)
	}
}

// Stats reports how many repeating tasks and pending one-shot timers exist.
func (s *Scheduler) Stats() (repeating, pending int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.info.Kind == Repeat {
			repeating++
		} else {
			pending++
		}
	}
	return repeating, pending
}

// Tasks lists registered tasks ordered by owner and name.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.info)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Name < out[j].Name
	})
	return out
}
