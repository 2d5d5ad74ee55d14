package pricing

import "errors"

var (
	// ErrOutOfOrderUpdate is returned when a period update arrives for a
	// period at or before the team's last applied one, or for the wrong
	// season. The team's state is left untouched.
	ErrOutOfOrderUpdate = errors.New("out-of-order price update")

	// ErrUnknownTeam is returned when a query names a team the engine has
	// never priced.
	ErrUnknownTeam = errors.New("unknown team")
)
