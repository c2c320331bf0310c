package notify

import (
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/supervisor"
)

// Notifier observes supervisor state changes
type Notifier interface {
	OnStateChange(from, to supervisor.State)
}

type safeNotifier struct {
	next Notifier
}

// Safe wraps n so a panic inside it is logged and never reaches the caller
func Safe(n Notifier) Notifier {
	if n == nil {
		return nil
	}
	if s, ok := n.(safeNotifier); ok {
		return s
	}
	return safeNotifier{next: n}
}

func (s safeNotifier) OnStateChange(from, to supervisor.State) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Status notifier panicked",
				zap.Any("panic", r),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}
	}()
	s.next.OnStateChange(from, to)
}

type multiNotifier []Notifier

// Multi fans each change out to every notifier in order. One failing
// notifier does not stop the others.
func Multi(ns ...Notifier) Notifier {
	out := make(multiNotifier, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, Safe(n))
		}
	}
	return out
}

func (m multiNotifier) OnStateChange(from, to supervisor.State) {
	for _, n := range m {
		n.OnStateChange(from, to)
	}
}

// StatusFunc returns the supervisor's current status
type StatusFunc func() supervisor.Status

// LogNotifier writes each change to the structured log
type LogNotifier struct {
	Status StatusFunc
}

// OnStateChange implements Notifier
func (l LogNotifier) OnStateChange(from, to supervisor.State) {
	fields := []zap.Field{
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	}
	if l.Status != nil {
		st := l.Status()
		if st.SSID != "" {
			fields = append(fields, zap.String("ssid", st.SSID))
		}
		if st.Session != nil {
			fields = append(fields, zap.String("session", st.Session.ID))
		}
		if st.LastError != "" {
			fields = append(fields, zap.String("last_error", st.LastError))
		}
	}
	logging.Info("Status changed", fields...)
}
