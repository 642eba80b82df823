package models

// FileHandle is one file open for editing.
// SHA is the blob hash last read from, or returned by, GitHub; every update is
// sent with it as the precondition.
type FileHandle struct {
	Project Project `json:"project"`
	Path    string  `json:"path"`
	Content string  `json:"content"`
	SHA     string  `json:"sha"`
	Branch  string  `json:"branch"`
	Dirty   bool    `json:"dirty"`
}

// TaskKind selects the instruction appended to a completion request
type TaskKind string

const (
	TaskContinue TaskKind = "continue"
	TaskRevise   TaskKind = "revise"
)

// ParseTaskKind accepts "continue" or "revise"; empty means continue
func ParseTaskKind(s string) (TaskKind, error) {
	switch TaskKind(s) {
	case "", TaskContinue:
		return TaskContinue, nil
	case TaskRevise:
		return TaskRevise, nil
	}
	return "", &InvalidValueError{Field: "task", Value: s}
}

// InvalidValueError reports an unknown enum value from user input
type InvalidValueError struct {
	Field string
	Value string
}

func (e *InvalidValueError) Error() string {
	return "invalid " + e.Field + ": " + e.Value
}
