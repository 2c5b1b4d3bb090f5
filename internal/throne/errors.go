package throne

import (
	"errors"

	"throne/internal/economy"
)

var (
	ErrInvalidStake        = economy.ErrInvalidStake
	ErrOutOfRange          = economy.ErrOutOfRange
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSelfAttack          = errors.New("cannot attack yourself")
	ErrNotKing             = errors.New("only the king can do that")
	ErrWrongState          = errors.New("wrong throne state")
	ErrNotAdmin            = errors.New("administrator required")
)

// IsValidation reports whether err is a user-facing rule violation. Such errors
// never leave partial state behind.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidStake,
		ErrInsufficientBalance,
		ErrSelfAttack,
		ErrNotKing,
		ErrWrongState,
		ErrOutOfRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
