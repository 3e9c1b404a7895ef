// Package services – AdminService
//
// Operator-only administrative operations over the record store: listing,
// deletion and raw CSV export. Every method checks the caller against the
// single configured operator identity before touching the store; with no
// operator configured, all administrative access is denied.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-repair-bot/internal/domain"
	"github.com/tbourn/go-repair-bot/internal/store"
)

// AdminStore is the store contract required by AdminService.
type AdminStore interface {
	// List returns all records in storage order.
	List() []domain.Request
	// Delete removes a record by id, reporting whether it existed.
	Delete(id int64) (bool, error)
	// Export returns the durable medium's bytes, or store.ErrNotFound when
	// nothing has ever been stored.
	Export() ([]byte, error)
}

// AdminService gates record administration behind the operator identity.
type AdminService struct {
	Store AdminStore
	// OperatorID is the only identity allowed to administer records.
	// Zero means no operator is configured and all access is denied.
	OperatorID int64
}

// authorize returns ErrAccessDenied unless callerID is the operator.
func (a *AdminService) authorize(callerID int64) error {
	if a.OperatorID == 0 || callerID != a.OperatorID {
		return ErrAccessDenied
	}
	return nil
}

// List returns all stored requests for the operator.
func (a *AdminService) List(ctx context.Context, callerID int64) ([]domain.Request, error) {
	_, span := otel.Tracer("services/AdminService").Start(ctx, "List",
		trace.WithAttributes(attribute.Int64("caller.id", callerID)))
	defer span.End()

	if err := a.authorize(callerID); err != nil {
		return nil, err
	}
	return a.Store.List(), nil
}

// Delete removes the request with the given id on behalf of the operator.
// It returns ErrRequestNotFound for an unknown id.
func (a *AdminService) Delete(ctx context.Context, callerID, id int64) error {
	_, span := otel.Tracer("services/AdminService").Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.Int64("caller.id", callerID),
			attribute.Int64("request.id", id),
		))
	defer span.End()

	if err := a.authorize(callerID); err != nil {
		return err
	}
	ok, err := a.Store.Delete(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRequestNotFound
	}
	return nil
}

// Export returns the raw CSV bytes for operator download. store.ErrNotFound
// propagates when the store has never been written.
func (a *AdminService) Export(ctx context.Context, callerID int64) ([]byte, error) {
	_, span := otel.Tracer("services/AdminService").Start(ctx, "Export",
		trace.WithAttributes(attribute.Int64("caller.id", callerID)))
	defer span.End()

	if err := a.authorize(callerID); err != nil {
		return nil, err
	}
	b, err := a.Store.Export()
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return b, err
}
