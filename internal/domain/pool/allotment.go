// internal/domain/pool/allotment.go
package pool

// AllotmentPolicy configures the per-member growth of a group's allotment
// beyond the fixed three-member breakpoints. StepThreshold = 0 disables the
// second tier and StepSize applies to every member past the third.
type AllotmentPolicy struct {
	StepSize       int
	StepThreshold  int // member count at which StepSizeBeyond takes over; 0 = never
	StepSizeBeyond int
}

// DefaultAllotmentPolicy is the single-step variant: +32 per member past three.
var DefaultAllotmentPolicy = AllotmentPolicy{StepSize: 32}

// Allotment computes the total units a group's pool starts a cycle with:
// 1 member: 160, 2: 256, 3: 320, then piecewise linear per the policy.
// The curve is monotonic and deterministic.
func (p AllotmentPolicy) Allotment(memberCount int) int {
	switch {
	case memberCount <= 0:
		return 0
	case memberCount == 1:
		return 160
	case memberCount == 2:
		return 256
	case memberCount == 3:
		return 320
	}

	total := 320
	for m := 4; m <= memberCount; m++ {
		if p.StepThreshold > 0 && m > p.StepThreshold {
			total += p.StepSizeBeyond
		} else {
			total += p.StepSize
		}
	}
	return total
}
