package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrZoneNotFound      = errors.New("zone not found")
	ErrWarehouseNotFound = errors.New("warehouse not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrTemplateMissing   = errors.New("no template registered for operation")

	ErrCrossWarehouseTransfer  = errors.New("source and destination zones belong to different warehouses")
	ErrDestinationRequired     = errors.New("destination zone is required")
	ErrEquipmentDecommissioned = errors.New("equipment is decommissioned")
	ErrInvalidOperation        = errors.New("invalid operation")
	ErrInvalidInput            = errors.New("invalid input")
	ErrAlreadySigned           = errors.New("document is already signed")
	ErrNoSignerKey             = errors.New("signer has no registered keypair")
	ErrNotMaterialized         = errors.New("document has not been materialized")
	ErrNotReady                = errors.New("document artifact is not ready")
	ErrTransactionIncomplete   = errors.New("transaction references could not be resolved")
	ErrConflict                = errors.New("conflicts with stored data")

	ErrConcurrentModification = errors.New("equipment was modified concurrently")
	ErrQueueFull              = errors.New("materialization queue is full")
	ErrPersistence            = errors.New("persistence failure")

	ErrKeyParse          = errors.New("malformed key")
	ErrSignatureEncoding = errors.New("malformed signature encoding")
)

// PersistenceError wraps a failure of the underlying store. Callers may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvariant
	KindTransient
	KindCrypto
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvariant:
		return "invariant_violation"
	case KindTransient:
		return "transient"
	case KindCrypto:
		return "cryptographic"
	default:
		return "internal"
	}
}

// KindOf classifies err for callers that need to decide between reporting,
// retrying and failing.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrEquipmentNotFound),
		errors.Is(err, ErrZoneNotFound),
		errors.Is(err, ErrWarehouseNotFound),
		errors.Is(err, ErrDocumentNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrTemplateMissing):
		return KindNotFound
	case errors.Is(err, ErrCrossWarehouseTransfer),
		errors.Is(err, ErrDestinationRequired),
		errors.Is(err, ErrEquipmentDecommissioned),
		errors.Is(err, ErrInvalidOperation),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrAlreadySigned),
		errors.Is(err, ErrNoSignerKey),
		errors.Is(err, ErrNotMaterialized),
		errors.Is(err, ErrNotReady),
		errors.Is(err, ErrTransactionIncomplete),
		errors.Is(err, ErrConflict):
		return KindInvariant
	case errors.Is(err, ErrConcurrentModification),
		errors.Is(err, ErrQueueFull),
		errors.Is(err, ErrPersistence):
		return KindTransient
	case errors.Is(err, ErrKeyParse),
		errors.Is(err, ErrSignatureEncoding):
		return KindCrypto
	}
	return KindInternal
}
