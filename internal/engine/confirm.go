package engine

import "context"

// Gate identifies a confirmation point.
type Gate int

const (
	// GateDiscovery follows discovery: the operator has seen the
	// directory list and file totals.
	GateDiscovery Gate = iota + 1
	// GatePlan follows target resolution: the operator has seen every
	// source -> target pair. Nothing has been written yet.
	GatePlan
)

func (g Gate) String() string {
	switch g {
	case GateDiscovery:
		return "discovery"
	case GatePlan:
		return "plan"
	default:
		return "unknown"
	}
}

// Confirmer asks the operator whether to proceed past a gate. Returning
// false aborts the run; an error aborts it too.
type Confirmer interface {
	Confirm(ctx context.Context, gate Gate) (bool, error)
}

// ConfirmFunc adapts a function to a Confirmer.
type ConfirmFunc func(ctx context.Context, gate Gate) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, gate Gate) (bool, error) { return f(ctx, gate) }

// AcceptAll proceeds through every gate without asking.
var AcceptAll Confirmer = ConfirmFunc(func(context.Context, Gate) (bool, error) { return true, nil })
