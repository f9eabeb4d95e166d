// Package commands submits operator commands to the server. Commands are
// fire-and-forget from the replica's perspective: the response is only an
// ack/nack, and resulting state changes arrive later through the event
// feed. Nothing here may touch the replica store.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	pkgerrors "github.com/tablewire/posd/pkg/errors"
	"github.com/tablewire/posd/pkg/logger"
)

// Command is the opaque envelope sent to the server.
type Command struct {
	CommandID    uuid.UUID       `json:"command_id"`
	Timestamp    time.Time       `json:"timestamp"`
	OperatorID   string          `json:"operator_id"`
	OperatorName string          `json:"operator_name"`
	Payload      json.RawMessage `json:"payload"`
}

// Result is the server's ack/nack.
type Result struct {
	CommandID uuid.UUID `json:"command_id"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// Transport delivers a command and returns the server's acknowledgement.
type Transport interface {
	Invoke(ctx context.Context, cmd Command) (Result, error)
}

// Operator identifies who issued a command.
type Operator struct {
	ID   string `validate:"required"`
	Name string `validate:"required"`
}

type Dispatcher struct {
	transport Transport
	validate  *validator.Validate
	logg      *logger.Logger
	now       func() time.Time
}

func NewDispatcher(transport Transport, logg *logger.Logger) (*Dispatcher, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{
		transport: transport,
		validate:  validator.New(),
		logg:      logg,
		now:       time.Now,
	}, nil
}

// Submit validates the payload, wraps it in a command envelope and sends
// it. The returned Result reflects only the server's acknowledgement.
func (d *Dispatcher) Submit(ctx context.Context, operator Operator, payload any) (Result, error) {
	if err := d.validate.Struct(operator); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "operator identity")
	}
	if payload == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "command payload required")
	}
	if err := d.validate.Struct(payload); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "command payload")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode command payload")
	}
	cmd := Command{
		CommandID:    uuid.New(),
		Timestamp:    d.now().UTC(),
		OperatorID:   operator.ID,
		OperatorName: operator.Name,
		Payload:      raw,
	}

	ctx = d.logg.WithField(ctx, "command_id", cmd.CommandID.String())
	result, err := d.transport.Invoke(ctx, cmd)
	if err != nil {
		d.logg.Warn(ctx, "command delivery failed")
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deliver command")
	}
	if !result.Success {
		d.logg.Warn(d.logg.WithField(ctx, "server_error", result.Error), "command rejected by server")
	}
	return result, nil
}
