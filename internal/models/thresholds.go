package models

// Threshold identifies one reminder window before an offer's deadline.
type Threshold string

const (
	ThresholdFiveDay  Threshold = "five_day"
	ThresholdTwoDay   Threshold = "two_day"
	ThresholdOneDay   Threshold = "one_day"
	ThresholdDeadline Threshold = "deadline"
)

func ValidThreshold(t Threshold) bool {
	switch t {
	case ThresholdFiveDay, ThresholdTwoDay, ThresholdOneDay, ThresholdDeadline:
		return true
	default:
		return false
	}
}

// ThresholdSet is an offer's notification ledger: the thresholds for which a
// reminder has already been claimed. Once a member, always a member.
type ThresholdSet []Threshold

func (s ThresholdSet) Has(t Threshold) bool {
	for _, m := range s {
		if m == t {
			return true
		}
	}
	return false
}

// Add returns the set with t included. The receiver is not modified.
func (s ThresholdSet) Add(t Threshold) ThresholdSet {
	if s.Has(t) {
		return s
	}
	out := make(ThresholdSet, len(s), len(s)+1)
	copy(out, s)
	return append(out, t)
}

// Strings converts the set for storage as a text array.
func (s ThresholdSet) Strings() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = string(t)
	}
	return out
}

func ThresholdSetFromStrings(raw []string) ThresholdSet {
	out := make(ThresholdSet, 0, len(raw))
	for _, r := range raw {
		if t := Threshold(r); ValidThreshold(t) {
			out = append(out, t)
		}
	}
	return out
}
