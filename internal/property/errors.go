package property

import (
	"errors"

	"titlechain/internal/fhe"
	"titlechain/internal/ledger"
	dErrors "titlechain/pkg/domain-errors"
	"titlechain/pkg/platform/sentinel"
)

// translate maps ledger and store errors to domain codes. Errors that already
// carry a code pass through.
func translate(err error) error {
	var de *dErrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "property not found")
	case errors.Is(err, ledger.ErrNotOwner):
		return dErrors.Wrap(err, dErrors.CodeForbidden, "only the current owner can transfer this property")
	case errors.Is(err, ledger.ErrSelfTransfer):
		return dErrors.Wrap(err, dErrors.CodeValidation, "recipient already owns this property")
	case errors.Is(err, ledger.ErrInactive):
		return dErrors.Wrap(err, dErrors.CodeConflict, "property is pending and cannot be transferred")
	case errors.Is(err, ledger.ErrInvalidProof):
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "input proof rejected")
	case errors.Is(err, fhe.ErrMalformedCiphertext), errors.Is(err, fhe.ErrMalformedProof):
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed encrypted input")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "property already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "registry unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry operation failed")
	}
}
