package log

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultCapacity is the number of records kept by a Handler.
const DefaultCapacity = 20

type state struct {
	mu       sync.Mutex
	ch       chan<- tea.Msg
	logs     []slog.Record
	capacity int
}

// Handler is a slog.Handler that keeps the most recent records and can
// forward them to a tea.Program.
type Handler struct {
	slog.Handler
	state *state
}

// NewHandler wraps handler. A nil handler only records.
func NewHandler(handler slog.Handler, capacity int) *Handler {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Handler{
		Handler: handler,
		state:   &state{capacity: capacity},
	}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.Handler == nil {
		return true
	}
	return h.Handler.Enabled(ctx, level)
}

// Handle stores the record, forwards it to the TUI if attached, and passes it
// on to the wrapped handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	h.state.mu.Lock()
	h.state.logs = append(h.state.logs, r.Clone())
	if len(h.state.logs) > h.state.capacity {
		h.state.logs = h.state.logs[1:]
	}
	ch := h.state.ch
	h.state.mu.Unlock()

	if ch != nil {
		// Never block logging on a slow UI.
		select {
		case ch <- LogMsg(r):
		default:
		}
	}

	if h.Handler == nil {
		return nil
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.Handler == nil {
		return h
	}
	return &Handler{Handler: h.Handler.WithAttrs(attrs), state: h.state}
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if h.Handler == nil {
		return h
	}
	return &Handler{Handler: h.Handler.WithGroup(name), state: h.state}
}

// Logs returns a copy of the stored records, oldest first.
func (h *Handler) Logs() []slog.Record {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	logs := make([]slog.Record, len(h.state.logs))
	copy(logs, h.state.logs)
	return logs
}

// Messages returns the messages of the stored records, oldest first.
func (h *Handler) Messages() []string {
	logs := h.Logs()
	msgs := make([]string, len(logs))
	for i, r := range logs {
		msgs[i] = r.Message
	}
	return msgs
}

// SetOutput sets the channel records are forwarded to. nil detaches it.
func (h *Handler) SetOutput(ch chan<- tea.Msg) {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.ch = ch
}

// LogMsg is a tea.Msg that carries a log record.
type LogMsg slog.Record
