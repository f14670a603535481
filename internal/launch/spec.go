package launch

import (
	"slices"
	"strings"
)

const redactedMark = "****"

// Spec describes how to start one instance of the child process.
// It is immutable: accessors return copies.
type Spec struct {
	command     string
	args        []string
	destination string
	input       string
	env         []string
	secret      string
}

// NewSpec builds a Spec from an executable and its arguments.
// Used where no stream configuration is involved (tests, custom commands).
func NewSpec(command string, args ...string) Spec {
	return Spec{command: command, args: slices.Clone(args)}
}

// Command returns the executable name.
func (s Spec) Command() string { return s.command }

// Args returns a copy of the ordered argument list.
func (s Spec) Args() []string { return slices.Clone(s.args) }

// Destination returns the output endpoint. It embeds the stream key.
func (s Spec) Destination() string { return s.destination }

// Input returns the source media path.
func (s Spec) Input() string { return s.input }

// Env returns extra KEY=VALUE pairs appended to the inherited environment.
func (s Spec) Env() []string { return slices.Clone(s.env) }

// WithEnv returns a copy of s with env replacing the extra environment.
func (s Spec) WithEnv(env []string) Spec {
	s.env = slices.Clone(env)
	return s
}

// Redacted returns the argument list with the stream key masked.
func (s Spec) Redacted() []string {
	args := s.Args()
	if s.secret == "" {
		return args
	}
	for i, a := range args {
		args[i] = strings.ReplaceAll(a, s.secret, redactedMark)
	}
	return args
}

// String renders the command line with the stream key masked.
func (s Spec) String() string {
	return strings.Join(append([]string{s.command}, s.Redacted()...), " ")
}
