package model

import "regexp"

// employeeNumberRe is the badge format enforced application-side: the fixed
// "M" prefix followed by digits.
var employeeNumberRe = regexp.MustCompile(`^M\d+$`)

// ValidEmployeeNumber reports whether s matches the badge format.
func ValidEmployeeNumber(s string) bool {
	return employeeNumberRe.MatchString(s)
}

// permitDecisions maps a decision to the statuses it may be applied from.
// Both decisions are only valid on a pending permit; a permit that already
// reached a terminal state stays there.
var permitDecisions = map[string][]string{
	PermitApproved: {PermitPending},
	PermitRejected: {PermitPending},
}

// ValidPermitDecision reports whether a permit in fromStatus may be moved
// to the decision status.
func ValidPermitDecision(decision, fromStatus string) bool {
	allowed, ok := permitDecisions[decision]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == fromStatus {
			return true
		}
	}
	return false
}

// ValidOfficeChangeDecision reports whether an office-change request in
// fromStatus may be approved or rejected.  Same rule as permits: only
// pending requests can be decided.
func ValidOfficeChangeDecision(decision, fromStatus string) bool {
	if decision != OfficeChangeApproved && decision != OfficeChangeRejected {
		return false
	}
	return fromStatus == OfficeChangePending
}

// ToggleEquipment returns the status that follows current when a badge is
// sighted.  Anything that is not OUT is treated as inside, so the first
// toggle of a fresh record with an empty status records OUT.
func ToggleEquipment(current string) string {
	if current == EquipmentOut {
		return EquipmentIn
	}
	return EquipmentOut
}
