package service

import "math"

// ScoringPolicy maps a challenge's solve count to its current point value.
// Implementations must be pure, non-increasing in solveCount and bounded
// below by a positive floor.
type ScoringPolicy interface {
	Value(solveCount int) int
}

// DecayPolicy 动态分值：随解题队伍数二次衰减，直至 Floor。
// 第一支解出的队伍仍按 Initial 计分，Decay 为降到 Floor 所需的额外解题数。
type DecayPolicy struct {
	Initial int
	Floor   int
	Decay   int
}

func NewDecayPolicy(initial, floor, decay int) DecayPolicy {
	return DecayPolicy{Initial: initial, Floor: floor, Decay: decay}
}

func (p DecayPolicy) Value(solveCount int) int {
	if p.Decay <= 0 || p.Initial <= p.Floor {
		return max(p.Initial, p.Floor)
	}
	k := max(solveCount-1, 0)
	if k >= p.Decay {
		return p.Floor
	}
	slope := float64(p.Floor-p.Initial) / float64(p.Decay*p.Decay)
	value := int(math.Ceil(slope*float64(k*k) + float64(p.Initial)))
	return max(value, p.Floor)
}
