// Package citylog is a thin logging wrapper tagging the emitting
// subsystem, so every package logs with the same prefix shape.
package citylog

import "log"

// Logger tags every line with a subsystem name, e.g. "netlock", "sched".
type Logger struct {
	tag string
}

// New returns a Logger tagging lines with tag.
func New(tag string) *Logger {
	return &Logger{tag: tag}
}

func (l *Logger) Printf(format string, args ...any) {
	log.Printf("["+l.tag+"] "+format, args...)
}

func (l *Logger) Println(args ...any) {
	log.Println(append([]any{"[" + l.tag + "]"}, args...)...)
}
