package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/bits"
)

// SolveSetCapacity is the number of challenges a SolveSet can track.
const SolveSetCapacity = 64

var ErrChallengeCapacity = fmt.Errorf("challenge capacity of %d exceeded", SolveSetCapacity)

// SolveSet is a team's solve bitmask: bit k is set iff the challenge with id k+1 is solved.
type SolveSet uint64

// SolveBit returns the single-bit set for a challenge id.
func SolveBit(challengeID uint) (SolveSet, error) {
	if challengeID == 0 || challengeID > SolveSetCapacity {
		return 0, fmt.Errorf("challenge id %d: %w", challengeID, ErrChallengeCapacity)
	}
	return SolveSet(1) << (challengeID - 1), nil
}

func (s SolveSet) Has(challengeID uint) bool {
	bit, err := SolveBit(challengeID)
	if err != nil {
		return false
	}
	return s&bit != 0
}

// With returns s with the challenge bit set. Out-of-range ids are rejected, never wrapped.
func (s SolveSet) With(challengeID uint) (SolveSet, error) {
	bit, err := SolveBit(challengeID)
	if err != nil {
		return s, err
	}
	return s | bit, nil
}

func (s SolveSet) Count() int {
	return bits.OnesCount64(uint64(s))
}

// Int64 is the column representation; bit 63 maps onto the sign bit.
func (s SolveSet) Int64() int64 {
	return int64(s)
}

func (SolveSet) GormDataType() string {
	return "bigint"
}

func (s SolveSet) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *SolveSet) Scan(value interface{}) error {
	switch v := value.(type) {
	case int64:
		*s = SolveSet(v)
	case int32:
		*s = SolveSet(uint32(v))
	case uint64:
		*s = SolveSet(v)
	case []byte:
		return s.scanString(string(v))
	case string:
		return s.scanString(v)
	case nil:
		*s = 0
	default:
		return errors.New("solve set: unsupported column type")
	}
	return nil
}

func (s *SolveSet) scanString(v string) error {
	var n int64
	if _, err := fmt.Sscan(v, &n); err != nil {
		return fmt.Errorf("solve set: %w", err)
	}
	*s = SolveSet(n)
	return nil
}
