package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/bdobrica/Kotoba/common/trace"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
)

// Reply is what a handler returns on success.
type Reply struct {
	Message string
	Data    map[string]any
}

// Handler runs one intent against the store.
type Handler func(ctx context.Context, fields Fields, store storage.Storage) (Reply, error)

// storageFailureMessage is all a user sees of an unexpected failure; the
// cause goes to the log with the trace ID.
const storageFailureMessage = "the command could not be completed"

// Dispatcher routes commands to their handlers and classifies the outcome.
type Dispatcher struct {
	handlers map[string]Handler
	store    storage.Storage
	logger   *slog.Logger
}

// NewDispatcher returns a Dispatcher. A nil logger means slog.Default().
func NewDispatcher(handlers map[string]Handler, store storage.Storage, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{handlers: handlers, store: store, logger: logger}
}

// Dispatch runs cmd. It never returns an error: every outcome, including a
// handler panic, is folded into the ActionResult.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *Command) (res ActionResult) {
	traceID := trace.FromContext(ctx)
	log := trace.Logger(ctx, d.logger).With("intent", cmd.Intent)

	handler, ok := d.handlers[cmd.Intent]
	if !ok {
		return ActionResult{
			Intent:    cmd.Intent,
			ErrorKind: KindNotFound,
			Message:   fmt.Sprintf("no handler for intent %q", cmd.Intent),
			TraceID:   traceID,
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", "panic", r, "stack", string(debug.Stack()))
			res = ActionResult{
				Intent:    cmd.Intent,
				ErrorKind: KindStorageError,
				Message:   storageFailureMessage,
				TraceID:   traceID,
			}
		}
	}()

	log.Debug("dispatching command", "fields", cmd.Fields.Canonical())
	reply, err := handler(ctx, cmd.Fields, d.store)
	if err != nil {
		return d.classify(log, cmd.Intent, traceID, err)
	}
	return ActionResult{
		OK:      true,
		Intent:  cmd.Intent,
		Message: reply.Message,
		Data:    reply.Data,
		TraceID: traceID,
	}
}

func (d *Dispatcher) classify(log *slog.Logger, intentID, traceID string, err error) ActionResult {
	res := ActionResult{Intent: intentID, TraceID: traceID}

	var ve *ValidationError
	var pe *normalize.ParseError
	switch {
	case errors.As(err, &ve):
		res.ErrorKind = KindValidationError
		res.Field = ve.Field
		res.Message = ve.Message
	case errors.Is(err, ErrNotFound), errors.Is(err, storage.ErrNotFound):
		res.ErrorKind = KindNotFound
		res.Message = err.Error()
	case errors.As(err, &pe):
		res.ErrorKind = KindParseError
		res.Field = pe.Field
		res.Message = pe.Error()
	default:
		log.Error("command failed", "err", err)
		res.ErrorKind = KindStorageError
		res.Message = storageFailureMessage
	}
	return res
}

// ParseFailure converts a Builder error into an ActionResult. Errors that are
// not parse errors are classified like handler errors.
func ParseFailure(intentID, traceID string, err error) ActionResult {
	var pe *normalize.ParseError
	if errors.As(err, &pe) {
		return ActionResult{
			Intent:    intentID,
			ErrorKind: KindParseError,
			Field:     pe.Field,
			Message:   pe.Error(),
			TraceID:   traceID,
		}
	}
	if errors.Is(err, ErrNotFound) {
		return ActionResult{Intent: intentID, ErrorKind: KindNotFound, Message: err.Error(), TraceID: traceID}
	}
	return ActionResult{Intent: intentID, ErrorKind: KindStorageError, Message: storageFailureMessage, TraceID: traceID}
}
