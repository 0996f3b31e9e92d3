package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"rssreader/internal/metrics"
)

// CycleRunner выполняет циклы обновления по команде планировщика.
type CycleRunner interface {
	// Ready сообщает, можно ли начинать цикл.
	Ready() bool
	RunCycle(ctx context.Context)
	// CycleFailed получает панику, перехваченную на границе цикла.
	CycleFailed(err error)
}

// State - состояние планировщика.
type State int

const (
	Idle State = iota
	Waiting
	Running
	Rescheduling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case Rescheduling:
		return "rescheduling"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Scheduler периодически запускает циклы обновления.
// В любой момент взведен не более чем один таймер; циклы не перекрываются.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	clock    clockwork.Clock
	log      *slog.Logger

	mu         sync.Mutex
	state      State
	timer      clockwork.Timer
	generation uint64
	// done закрывается по завершении текущего цикла; nil, если цикл не идет.
	done chan struct{}
}

// New создает планировщик в состоянии Idle.
func New(runner CycleRunner, interval time.Duration, clock clockwork.Clock, log *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		clock:    clock,
		log:      log.With(slog.String("component", "worker")),
	}
}

// Start переводит планировщик в Waiting и сразу пытается выполнить цикл.
// Вне состояния Idle ничего не делает.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return
	}
	s.generation++
	s.state = Waiting
	s.armLocked(0)
	s.log.Info("Update scheduler started", slog.String("interval", s.interval.String()))
}

// Cancel останавливает взведенный таймер и возвращает планировщик в Idle.
// Идущий цикл доводится до конца, но следующий не планируется.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle && s.timer == nil {
		return
	}
	s.generation++
	s.stopTimerLocked()
	s.state = Idle
	s.log.Info("Update scheduler stopped")
}

// Wait блокируется до завершения идущего цикла.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State возвращает текущее состояние планировщика.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending сообщает, взведен ли таймер следующей попытки.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Scheduler) armLocked(d time.Duration) {
	s.stopTimerLocked()
	gen := s.generation
	s.timer = s.clock.AfterFunc(d, func() { s.tick(gen) })
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.state != Waiting {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.done != nil || !s.runner.Ready() {
		metrics.CyclesTotal.WithLabelValues("skipped").Inc()
		s.log.Debug("Update cycle skipped")
		s.armLocked(s.interval)
		s.mu.Unlock()
		return
	}
	s.state = Running
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	s.runCycle()

	s.mu.Lock()
	s.done = nil
	if gen == s.generation && s.state == Running {
		s.state = Rescheduling
		s.armLocked(s.interval)
		s.state = Waiting
	}
	s.mu.Unlock()
	close(done)
}

// runCycle выполняет цикл и перехватывает панику на его границе.
func (s *Scheduler) runCycle() {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("update cycle panicked: %v", r)
			s.log.Error("Update cycle panicked", slog.Any("error", err))
			s.runner.CycleFailed(err)
		}
	}()
	s.runner.RunCycle(context.Background())
}
