package api

// ExitKind is the verdict of a single trial.
type ExitKind string

const (
	Ok      ExitKind = "ok"
	Crash   ExitKind = "crash"
	Timeout ExitKind = "timeout"
)

func (k ExitKind) String() string {
	return string(k)
}

// Valid reports whether k is one of the known verdicts.
func (k ExitKind) Valid() bool {
	switch k {
	case Ok, Crash, Timeout:
		return true
	}
	return false
}

// ParseExitKind maps a verdict name back to its ExitKind.
func ParseExitKind(s string) (ExitKind, bool) {
	k := ExitKind(s)
	return k, k.Valid()
}
