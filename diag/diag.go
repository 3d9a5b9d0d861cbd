// Package diag collects the non-fatal findings produced while reading or writing a drawing.
//
// Diagnostics are recorded as they happen and forwarded to an optional notifier and logger,
// so callers see a stream of notifications instead of an aborted pipeline.
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Kind classifies a diagnostic.
type Kind uint8

const (
	KindStructural Kind = iota + 1
	KindDecode
	KindIntegrity
	KindUnresolvedReference
	KindUnknownType
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindDecode:
		return "decode"
	case KindIntegrity:
		return "integrity"
	case KindUnresolvedReference:
		return "unresolved-reference"
	case KindUnknownType:
		return "unknown-type"
	default:
		return "unknown"
	}
}

// Severity ranks a diagnostic.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Level maps the severity to a slog level.
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Diagnostic is one recorded finding. Handle is zero when the finding is not tied to an object.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Section  string
	Handle   uint64
	Message  string
	Err      error
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("[%s/%s]", d.Severity, d.Kind)
	if d.Section != "" {
		s += " " + d.Section
	}
	if d.Handle != 0 {
		s += fmt.Sprintf(" handle=0x%X", d.Handle)
	}
	s += ": " + d.Message
	if d.Err != nil {
		s += ": " + d.Err.Error()
	}

	return s
}

// Notifier receives diagnostics as they are recorded.
type Notifier func(Diagnostic)

// Collector accumulates diagnostics for one document. A nil *Collector discards everything.
type Collector struct {
	mu     sync.Mutex
	items  []Diagnostic
	notify Notifier
	logger *slog.Logger
}

// NewCollector creates a collector forwarding to notify and logger; both may be nil.
func NewCollector(notify Notifier, logger *slog.Logger) *Collector {
	return &Collector{notify: notify, logger: logger}
}

// Record stores d and forwards it.
func (c *Collector) Record(d Diagnostic) {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()

	if c.notify != nil {
		c.notify(d)
	}

	if c.logger != nil {
		attrs := []slog.Attr{slog.String("kind", d.Kind.String())}
		if d.Section != "" {
			attrs = append(attrs, slog.String("section", d.Section))
		}
		if d.Handle != 0 {
			attrs = append(attrs, slog.String("handle", fmt.Sprintf("0x%X", d.Handle)))
		}
		if d.Err != nil {
			attrs = append(attrs, slog.Any("error", d.Err))
		}
		c.logger.LogAttrs(context.Background(), d.Severity.Level(), d.Message, attrs...)
	}
}

// Warn records a warning-level diagnostic.
func (c *Collector) Warn(kind Kind, section string, handle uint64, err error, format string, args ...any) {
	c.Record(Diagnostic{
		Kind:     kind,
		Severity: SeverityWarning,
		Section:  section,
		Handle:   handle,
		Message:  fmt.Sprintf(format, args...),
		Err:      err,
	})
}

// Error records an error-level diagnostic.
func (c *Collector) Error(kind Kind, section string, handle uint64, err error, format string, args ...any) {
	c.Record(Diagnostic{
		Kind:     kind,
		Severity: SeverityError,
		Section:  section,
		Handle:   handle,
		Message:  fmt.Sprintf(format, args...),
		Err:      err,
	})
}

// Info records an info-level diagnostic.
func (c *Collector) Info(kind Kind, section string, handle uint64, format string, args ...any) {
	c.Record(Diagnostic{
		Kind:     kind,
		Severity: SeverityInfo,
		Section:  section,
		Handle:   handle,
		Message:  fmt.Sprintf(format, args...),
	})
}

// All returns a copy of every recorded diagnostic in order.
func (c *Collector) All() []Diagnostic {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)

	return out
}

// Count returns the number of diagnostics of the given kind.
func (c *Collector) Count(kind Kind) int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, d := range c.items {
		if d.Kind == kind {
			n++
		}
	}

	return n
}

// Len returns the total number of diagnostics.
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}
