// Package notify carries the transient user-facing notices that the state
// machines raise. Display is someone else's problem.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}
func (Nop) Info(string)    {}

// Log writes notices to a zap logger.
type Log struct{ L *zap.Logger }

func (n Log) Success(msg string) { n.l().Info("notice", zap.String("level", string(LevelSuccess)), zap.String("message", msg)) }
func (n Log) Error(msg string)   { n.l().Info("notice", zap.String("level", string(LevelError)), zap.String("message", msg)) }
func (n Log) Info(msg string)    { n.l().Info("notice", zap.String("level", string(LevelInfo)), zap.String("message", msg)) }

func (n Log) l() *zap.Logger {
	if n.L == nil {
		return zap.NewNop()
	}
	return n.L
}

// Recorder queues notices until the view drains them. At most Cap are kept;
// older ones fall off.
type Recorder struct {
	Cap int

	mu      sync.Mutex
	pending []Notice
	now     func() time.Time
}

func NewRecorder(capacity int) *Recorder {
	return &Recorder{Cap: capacity, now: time.Now}
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }
func (r *Recorder) Info(msg string)    { r.add(LevelInfo, msg) }

func (r *Recorder) add(l Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	r.pending = append(r.pending, Notice{Level: l, Message: msg, At: now()})
	if r.Cap > 0 && len(r.pending) > r.Cap {
		r.pending = append([]Notice(nil), r.pending[len(r.pending)-r.Cap:]...)
	}
}

// Drain returns and forgets every pending notice.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	if out == nil {
		return []Notice{}
	}
	return out
}

// Messages is Drain without the metadata.
func (r *Recorder) Messages() []string {
	ns := r.Drain()
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Message
	}
	return out
}

type multi []Notifier

func Multi(ns ...Notifier) Notifier { return multi(ns) }

func (m multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}

func (m multi) Info(msg string) {
	for _, n := range m {
		n.Info(msg)
	}
}

// OrNop keeps nil notifiers out of the state machines.
func OrNop(n Notifier) Notifier {
	if n == nil {
		return Nop{}
	}
	return n
}
