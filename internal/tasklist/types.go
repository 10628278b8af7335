package tasklist

import "strings"

// Reference locates a task list document. The empty Reference means none.
type Reference string

func (r Reference) Absent() bool {
	return strings.TrimSpace(string(r)) == ""
}

type TaskStatus string

const (
	StatusReady   TaskStatus = "ready"
	StatusRunning TaskStatus = "running"
	StatusDone    TaskStatus = "done"
	StatusFailed  TaskStatus = "failed"
)

type Task struct {
	Title  string     `json:"title"`
	Status TaskStatus `json:"status"`
	ForID  string     `json:"forId,omitempty"`
}

// Document is the fetched state of one task list.
type Document struct {
	Status string `json:"status"`
	Tasks  []Task `json:"tasks"`
}

// Latest returns the most recent reference. ok is false when there is none or
// the most recent one is absent.
func Latest(refs []Reference) (Reference, bool) {
	if len(refs) == 0 {
		return "", false
	}
	ref := refs[len(refs)-1]
	if ref.Absent() {
		return "", false
	}
	return ref, true
}

// Highlight picks the task to show when only one fits: the first running or
// ready task, otherwise the last one.
func Highlight(tasks []Task) (int, bool) {
	if len(tasks) == 0 {
		return 0, false
	}
	for i, t := range tasks {
		if t.Status == StatusRunning || t.Status == StatusReady {
			return i, true
		}
	}
	return len(tasks) - 1, true
}
