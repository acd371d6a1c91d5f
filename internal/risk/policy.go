package risk

import (
	"fmt"
	"strings"
)

type EventType string

const (
	EventLoginFail          EventType = "LOGIN_FAIL"
	EventNewDevice          EventType = "NEW_DEVICE"
	EventNewIP              EventType = "NEW_IP"
	EventSuspiciousActivity EventType = "SUSPICIOUS_ACTIVITY"
	EventLoginSuccess       EventType = "LOGIN_SUCCESS"
	EventPasswordReset      EventType = "PASSWORD_RESET"
	EventRegister           EventType = "REGISTER" // zero weight, materializes the profile
)

type Tier string

const (
	TierLow      Tier = "LOW"
	TierMedium   Tier = "MEDIUM"
	TierHigh     Tier = "HIGH"
	TierCritical Tier = "CRITICAL"
)

// Blocked reports whether logins must be refused at this tier.
func (t Tier) Blocked() bool {
	return t == TierHigh || t == TierCritical
}

const (
	MinScore = 0
	MaxScore = 100
)

// Thresholds are evaluated in ascending order: above Medium, above High, from Critical.
type Thresholds struct {
	Medium   int
	High     int
	Critical int
}

func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 30, High: 70, Critical: 90}
}

func (t Thresholds) validate() error {
	if t.Medium < MinScore || t.Critical > MaxScore || t.Medium >= t.High || t.High >= t.Critical {
		return fmt.Errorf("invalid tier thresholds medium=%d high=%d critical=%d", t.Medium, t.High, t.Critical)
	}
	return nil
}

func DefaultWeights() map[EventType]int {
	return map[EventType]int{
		EventLoginFail:          10,
		EventNewDevice:          20,
		EventNewIP:              15,
		EventSuspiciousActivity: 30,
		EventLoginSuccess:       -5,
		EventPasswordReset:      -20,
		EventRegister:           0,
	}
}

// Policy is the fixed scoring table of the engine. It is immutable once built.
type Policy struct {
	weights    map[EventType]int
	thresholds Thresholds
}

func NewPolicy(weights map[EventType]int, thresholds Thresholds) (Policy, error) {
	if err := thresholds.validate(); err != nil {
		return Policy{}, err
	}
	copied := make(map[EventType]int, len(weights))
	for event, weight := range weights {
		copied[event] = weight
	}
	return Policy{weights: copied, thresholds: thresholds}, nil
}

func DefaultPolicy() Policy {
	policy, _ := NewPolicy(DefaultWeights(), DefaultThresholds())
	return policy
}

// PolicyWithOverrides starts from the default policy and replaces the given weights and any non-zero
// thresholds. Weight keys are matched case-insensitively.
func PolicyWithOverrides(weights map[string]int, thresholds Thresholds) (Policy, error) {
	merged := DefaultWeights()
	for name, weight := range weights {
		merged[EventType(strings.ToUpper(name))] = weight
	}
	t := DefaultThresholds()
	if thresholds.Medium != 0 {
		t.Medium = thresholds.Medium
	}
	if thresholds.High != 0 {
		t.High = thresholds.High
	}
	if thresholds.Critical != 0 {
		t.Critical = thresholds.Critical
	}
	return NewPolicy(merged, t)
}

// Weight returns the weight of an event and whether the event is known to the policy.
func (p Policy) Weight(event EventType) (int, bool) {
	weight, ok := p.weights[event]
	return weight, ok
}

func (p Policy) Thresholds() Thresholds {
	return p.thresholds
}

func (p Policy) Classify(score int) Tier {
	tier := TierLow
	if score > p.thresholds.Medium {
		tier = TierMedium
	}
	if score > p.thresholds.High {
		tier = TierHigh
	}
	if score >= p.thresholds.Critical {
		tier = TierCritical
	}
	return tier
}

// Apply adds the weight of event to score and clamps the result into [MinScore, MaxScore].
func (p Policy) Apply(score int, event EventType) int {
	return clamp(score + p.weights[event])
}

func clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}
