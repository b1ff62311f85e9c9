package service

import (
	"errors"
	"fmt"

	"github.com/vantage-media/quote-api/internal/domain"
)

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrInvalidTransition is returned when a state transition is requested
	// from a state that does not allow it
	ErrInvalidTransition = errors.New("transition not allowed from current state")

	// ErrQuoteNotEditable is returned when lines are mutated on a quote that
	// has left the editable states
	ErrQuoteNotEditable = errors.New("quote is not editable in its current state")

	// ErrQuoteAlreadyConfirmed is returned when confirm is invoked on an
	// already-confirmed quote. Re-confirmation would duplicate commitments.
	ErrQuoteAlreadyConfirmed = errors.New("quote is already confirmed")

	// ErrOpportunityAlreadyWon is returned when an opportunity already has a
	// confirmed quote
	ErrOpportunityAlreadyWon = errors.New("opportunity already has a confirmed quote")

	// ErrGeneratedLineEdit is returned when a generated line is edited by hand
	ErrGeneratedLineEdit = errors.New("generated lines cannot be edited directly")

	// ErrSupportBlacklisted is returned when a blacklisted support is attached to a line
	ErrSupportBlacklisted = errors.New("vendor support is blacklisted")

	// ErrSupportNotAvailable is returned when the support set on a line is not
	// offered by any seller of the line's product
	ErrSupportNotAvailable = errors.New("vendor support is not available for this product")

	// ErrSupportAmbiguous is returned when support resolution matches more than one support
	ErrSupportAmbiguous = errors.New("multiple vendor supports match, specify one explicitly")

	// ErrRateNotFound is returned when no exchange rate exists for a currency pair
	ErrRateNotFound = errors.New("exchange rate not found")

	// ErrInvalidValidityRange is returned when a product's valid_to predates valid_from
	ErrInvalidValidityRange = errors.New("valid_to must not be earlier than valid_from")

	// ErrNoSeller is returned when a product has no qualifying supplier terms
	ErrNoSeller = errors.New("no seller found for product")
)

// MinimumBuyError is returned by the blocking minimum-buy gate. It carries
// every violating vendor support so the caller can surface all of them at once.
type MinimumBuyError struct {
	Violations []domain.MinBuyViolation
}

func (e *MinimumBuyError) Error() string {
	if len(e.Violations) == 1 {
		v := e.Violations[0]
		return fmt.Sprintf("minimum buy not met for support %s: %.2f <= %.2f %s",
			v.SupportName, v.Subtotal, v.Minimum, v.Currency)
	}
	return fmt.Sprintf("minimum buy not met for %d vendor supports", len(e.Violations))
}

// AsMinimumBuyError unwraps a MinimumBuyError from an error chain
func AsMinimumBuyError(err error) (*MinimumBuyError, bool) {
	var mbe *MinimumBuyError
	if errors.As(err, &mbe) {
		return mbe, true
	}
	return nil, false
}
