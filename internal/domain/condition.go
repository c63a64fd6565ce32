package domain

import "time"

// ConditionSatisfied reports whether the capsule's opening condition holds at
// the given instant. Pure function of the capsule and the clock.
//
// Only TIME conditions are evaluated. MULTISIG, ORACLE and COMPOUND are
// extension points without an evaluation strategy yet: they are never
// satisfied, so such capsules stay closed rather than opening on a guess.
func ConditionSatisfied(c Capsule, now time.Time) bool {
	switch c.ConditionType {
	case ConditionTime:
		if c.OpenDate == nil {
			return false
		}
		return !now.Before(*c.OpenDate)
	case ConditionMultisig, ConditionOracle, ConditionCompound:
		return false
	default:
		return false
	}
}
