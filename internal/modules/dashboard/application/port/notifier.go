package port

import (
	"context"

	service "tableside/internal/modules/service/domain"
)

// CustomerNotifier tells the customer page that a request is on its way.
type CustomerNotifier interface {
	RequestResolved(ctx context.Context, req service.ServiceRequest) error
}

// NoopNotifier is used when no notification transport is configured.
type NoopNotifier struct{}

func (NoopNotifier) RequestResolved(context.Context, service.ServiceRequest) error { return nil }
