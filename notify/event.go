// Package notify carries change events produced by successful mutations to
// external subscribers.
//
// Publishing is fire and forget from the mediator's point of view: a sink
// error is logged by the caller and never fails the mutation that produced
// the event. Delivery guarantees belong to the sink.
//
// Topics are namespaced by the registered model name, not the Go type name.
// Model names default to the snake_case of the type, so an Order created for
// tenant T1 publishes "order/T1/<id>/create". Declare a Model with
// capability.Register to choose another namespace.
package notify

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Op is the mutation that produced an event.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpUpsert Op = "upsert"
	OpPatch  Op = "patch"
	OpDelete Op = "delete"
)

// Event describes one successful mutation.
type Event struct {
	ID     string    `json:"id" msgpack:"id"`
	Model  string    `json:"model" msgpack:"model"`
	IDs    []string  `json:"ids" msgpack:"ids"`
	Op     Op        `json:"op" msgpack:"op"`
	Tenant string    `json:"tenant,omitempty" msgpack:"tenant,omitempty"`
	Actor  string    `json:"actor,omitempty" msgpack:"actor,omitempty"`
	At     time.Time `json:"at" msgpack:"at"`
}

// NewEvent builds an event with a fresh identifier.
func NewEvent(model string, op Op, tenant, actor string, at time.Time, ids ...string) Event {
	return Event{
		ID:     uuid.NewString(),
		Model:  model,
		IDs:    ids,
		Op:     op,
		Tenant: tenant,
		Actor:  actor,
		At:     at,
	}
}

// Topic renders model/tenant/ids/op with the registered model name, e.g.
// "order/T1/42/create". Multiple
// identifiers are comma separated and a missing tenant renders as "_".
func (e Event) Topic() string {
	tenant := e.Tenant
	if tenant == "" {
		tenant = "_"
	}
	return strings.Join([]string{e.Model, tenant, strings.Join(e.IDs, ","), string(e.Op)}, "/")
}

// Sink receives change events.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })
