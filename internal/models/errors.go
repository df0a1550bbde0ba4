package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoOffer           = errors.New("requested offer does not exist")
	ErrNoApplication     = errors.New("requested application does not exist")
	ErrNoQuestion        = errors.New("requested question does not exist")
	ErrOfferFinalized    = errors.New("offer is already in a terminal status")
	ErrInvalidTransition = errors.New("offer status does not permit this transition")
	ErrNotExpired        = errors.New("offer deadline has not passed yet")
	ErrAlreadyApplied    = errors.New("an application with this email already exists for the offer")
	ErrNotClosed         = errors.New("offer is not closed yet")
	ErrArchiveClosed     = errors.New("offer is outside its archive window")
	ErrHasApplications   = errors.New("offer has received applications")
)

// ValidationError reports rejected request input. Field names which slot or
// parameter failed, empty when the error concerns the request as a whole.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
