package domain

import (
	"context"
	"time"
)

// InboundEvent is a webhook notification from the messaging platform.
type InboundEvent struct {
	Event string           `json:"event"`
	Data  InboundEventData `json:"data"`
}

// InboundEventData carries the message fields we use.
type InboundEventData struct {
	ContactID string `json:"contactId"`
	Text      string `json:"text"`
	IsFromMe  bool   `json:"isFromMe"`
	Data      struct {
		Number string `json:"number"`
	} `json:"data"`
}

// TransitionEvent reports one dialogue step.
type TransitionEvent struct {
	Timestamp time.Time
	ContactID string
	From      State
	To        State
	Handler   string
	Err       error
}

// ProviderCallEvent reports one provider operation.
type ProviderCallEvent struct {
	Provider  string
	Operation string
	Duration  time.Duration
	Err       error
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTransition   func(context.Context, *TransitionEvent)
	OnProviderCall func(context.Context, *ProviderCallEvent)
}

// EmitTransition calls OnTransition if set.
func (h LifecycleHooks) EmitTransition(ctx context.Context, e *TransitionEvent) {
	if h.OnTransition != nil {
		h.OnTransition(ctx, e)
	}
}

// EmitProviderCall calls OnProviderCall if set.
func (h LifecycleHooks) EmitProviderCall(ctx context.Context, e *ProviderCallEvent) {
	if h.OnProviderCall != nil {
		h.OnProviderCall(ctx, e)
	}
}
