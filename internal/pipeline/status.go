package pipeline

// Status represents the lifecycle of one chunk inside an execution unit.
type Status string

const (
	StatusQueued              Status = "queued"
	StatusAnalyzingLoudness   Status = "analyzing_loudness"
	StatusNormalizingLoudness Status = "normalizing_loudness"
	StatusAnalyzingMastering  Status = "analyzing_mastering"
	StatusEncoding            Status = "encoding"
	StatusSucceeded           Status = "succeeded"
	StatusFailed              Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusAnalyzingLoudness,
	StatusNormalizingLoudness,
	StatusAnalyzingMastering,
	StatusEncoding,
	StatusSucceeded,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// IsValid reports whether the status is one of the defined lifecycle states.
func (s Status) IsValid() bool {
	_, ok := statusSet[s]
	return ok
}

// IsTerminal reports whether the status ends a chunk's lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// CanTransition reports whether a chunk may move from one status to
// another. A queued chunk can only begin analysis; each pass either moves
// to the next pass or fails; terminal states never move again.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusAnalyzingLoudness
	case StatusAnalyzingLoudness:
		return to == StatusNormalizingLoudness || to == StatusFailed
	case StatusNormalizingLoudness:
		return to == StatusAnalyzingMastering || to == StatusFailed
	case StatusAnalyzingMastering:
		return to == StatusEncoding || to == StatusFailed
	case StatusEncoding:
		return to == StatusSucceeded || to == StatusFailed
	default:
		return false
	}
}
