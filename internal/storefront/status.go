package storefront

import (
	"errors"
	"fmt"
)

// SessionStatus is the auth machine's tag.
type SessionStatus string

const (
	SessionUnauthenticated SessionStatus = "unauthenticated"
	SessionLoading         SessionStatus = "loading"
	SessionAuthenticated   SessionStatus = "authenticated"
	SessionError           SessionStatus = "error"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingAccepted   BookingStatus = "accepted"
	BookingInProgress BookingStatus = "in-progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid booking status")

var bookingStatuses = map[BookingStatus]bool{
	BookingPending:    true,
	BookingAccepted:   true,
	BookingInProgress: true,
	BookingCompleted:  true,
	BookingCancelled:  true,
}

func (s BookingStatus) Valid() bool { return bookingStatuses[s] }

func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}
