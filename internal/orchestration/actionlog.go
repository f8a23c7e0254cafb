package orchestration

import "strings"

// ActionLog is the ordered, human-readable audit trail of one run. It is a
// value: With returns a new log and never modifies the receiver's lines.
type ActionLog struct {
	lines []string
}

func NewActionLog(lines ...string) ActionLog {
	return ActionLog{}.With(lines...)
}

func (l ActionLog) With(lines ...string) ActionLog {
	if len(lines) == 0 {
		return l
	}
	next := make([]string, 0, len(l.lines)+len(lines))
	next = append(next, l.lines...)
	next = append(next, lines...)
	return ActionLog{lines: next}
}

// Lines returns a copy of the entries.
func (l ActionLog) Lines() []string {
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l ActionLog) Len() int {
	return len(l.lines)
}

func (l ActionLog) String() string {
	return strings.Join(l.lines, "\n")
}
