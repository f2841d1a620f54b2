package transfer

import "errors"

// ErrInvalidDirection occurs when a direction names no currency at all or an
// empty currency code.
var ErrInvalidDirection = errors.New("transfer direction must name at least one currency")

// Kind classifies a transfer by where the money comes from and goes to.
type Kind int

const (
	// KindReplenishment brings money into the wallet from outside.
	KindReplenishment Kind = iota
	// KindWithdrawal takes money out of the wallet.
	KindWithdrawal
	// KindExchange converts between two currencies within the wallet.
	KindExchange
)

// Direction is the source/destination of a transfer. The zero value is not
// valid; construct through Replenishment, Withdrawal, Exchange or
// ParseDirection, which makes the "neither currency set" state unrepresentable.
type Direction struct {
	from string
	to   string
}

// Replenishment builds a direction for money entering the wallet.
func Replenishment(to string) (Direction, error) {
	if to == "" {
		return Direction{}, ErrInvalidDirection
	}
	return Direction{to: to}, nil
}

// Withdrawal builds a direction for money leaving the wallet.
func Withdrawal(from string) (Direction, error) {
	if from == "" {
		return Direction{}, ErrInvalidDirection
	}
	return Direction{from: from}, nil
}

// Exchange builds a direction converting between two currencies.
func Exchange(from, to string) (Direction, error) {
	if from == "" || to == "" {
		return Direction{}, ErrInvalidDirection
	}
	return Direction{from: from, to: to}, nil
}

// ParseDirection maps a pair of optional currency codes onto a direction.
func ParseDirection(from, to string) (Direction, error) {
	switch {
	case from != "" && to != "":
		return Exchange(from, to)
	case from != "":
		return Withdrawal(from)
	case to != "":
		return Replenishment(to)
	default:
		return Direction{}, ErrInvalidDirection
	}
}

// Kind reports the transfer kind the direction describes.
func (d Direction) Kind() Kind {
	switch {
	case d.from != "" && d.to != "":
		return KindExchange
	case d.from != "":
		return KindWithdrawal
	default:
		return KindReplenishment
	}
}

// From returns the source currency code, if any.
func (d Direction) From() (string, bool) {
	return d.from, d.from != ""
}

// To returns the destination currency code, if any.
func (d Direction) To() (string, bool) {
	return d.to, d.to != ""
}
