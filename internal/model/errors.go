package model

import "errors"

// Errors returned by the inventory and order components. Callers wrap them with
// fmt.Errorf("%w: ...") to add a human readable detail.
var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateKey         = errors.New("duplicate key")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInsufficientHolding  = errors.New("insufficient holding")
	ErrNotHeldByCrew        = errors.New("not held by crew")
	ErrNotAssigned          = errors.New("not assigned")
	ErrAlreadyAssigned      = errors.New("already assigned")
	ErrNoCrewAssigned       = errors.New("no crew assigned")
	ErrNotEmpty             = errors.New("not empty")
	ErrBatchExhausted       = errors.New("batch exhausted")
	ErrReasonRequired       = errors.New("reason required")
	ErrInvalidItemType      = errors.New("invalid item type")
	ErrCodeInUse            = errors.New("code in use")
	ErrDuplicateTicket      = errors.New("duplicate ticket")
	ErrDuplicateAddress     = errors.New("duplicate address")
	ErrDuplicateRecentFault = errors.New("duplicate recent fault")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrNotFound, "not_found"},
	{ErrDuplicateKey, "duplicate_key"},
	{ErrInvalidQuantity, "invalid_quantity"},
	{ErrInvalidInput, "invalid_input"},
	{ErrInsufficientStock, "insufficient_stock"},
	{ErrInsufficientHolding, "insufficient_holding"},
	{ErrNotHeldByCrew, "not_held_by_crew"},
	{ErrNotAssigned, "not_assigned"},
	{ErrAlreadyAssigned, "already_assigned"},
	{ErrNoCrewAssigned, "no_crew_assigned"},
	{ErrNotEmpty, "not_empty"},
	{ErrBatchExhausted, "batch_exhausted"},
	{ErrReasonRequired, "reason_required"},
	{ErrInvalidItemType, "invalid_item_type"},
	{ErrCodeInUse, "code_in_use"},
	{ErrDuplicateTicket, "duplicate_ticket"},
	{ErrDuplicateAddress, "duplicate_address"},
	{ErrDuplicateRecentFault, "duplicate_recent_fault"},
}

// KindOf returns the stable error kind for err, or "internal" when err does not
// wrap one of the package errors.
func KindOf(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// IsDuplicate reports whether err is a uniqueness or duplicate-submission failure.
// Those should not be retried with the same input.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrDuplicateTicket) ||
		errors.Is(err, ErrDuplicateAddress) ||
		errors.Is(err, ErrDuplicateRecentFault)
}
