// Package report turns the result of a consistency check into output.
package report

import (
	"github.com/sarchlab/memcheck/checker"
)

// A Sink receives the result of a check, piece by piece.
type Sink interface {
	// Begin is called once with the number of log entries checked.
	Begin(entries int) error

	// Inconsistency is called for every inconsistent entry, in log order.
	Inconsistency(inc checker.Inconsistency) error

	// End is called once with the positions of all inconsistent entries.
	End(positions []int) error
}

// Emit sends the result to every sink. It stops at the first error.
func Emit(res checker.Result, sinks ...Sink) error {
	for _, s := range sinks {
		if err := s.Begin(res.Entries); err != nil {
			return err
		}
	}

	for _, inc := range res.Inconsistencies {
		for _, s := range sinks {
			if err := s.Inconsistency(inc); err != nil {
				return err
			}
		}
	}

	positions := res.Positions()
	for _, s := range sinks {
		if err := s.End(positions); err != nil {
			return err
		}
	}

	return nil
}
