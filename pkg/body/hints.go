package body

// Hints are scheduling suggestions for the worker goroutine. The worker locks
// itself to one OS thread and then applies them where the platform allows.
// Failures are logged and otherwise ignored.
type Hints struct {
	// Core pins the worker thread to one CPU. Negative means any CPU.
	Core int `yaml:"core" json:"core"`
	// Priority is applied as the worker thread's nice value. 0 leaves it
	// unchanged; negative values usually need CAP_SYS_NICE.
	Priority int `yaml:"priority" json:"priority"`
}

// NoHints leaves scheduling to the runtime.
var NoHints = Hints{Core: -1}
