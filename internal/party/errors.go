package party

import "errors"

var (
	ErrPartyNotFound        = errors.New("party not found")
	ErrSlotNotFound         = errors.New("slot not found in this party")
	ErrMemberNotFound       = errors.New("member not found in this party")
	ErrPermissionDenied     = errors.New("only the host or an admin may do this")
	ErrCapacityExceeded     = errors.New("party capacity exceeded")
	ErrSlotCapacityExceeded = errors.New("slot capacity exceeded")
	ErrInvalidStateForMove  = errors.New("locked or rejected members cannot be moved")
	ErrInvalidInviteCode    = errors.New("invalid invite code")
	ErrPartyClosed          = errors.New("party is closed")
)
