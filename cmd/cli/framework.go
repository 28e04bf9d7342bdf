// Package cli provides a small command-line framework for the ckptgrad
// demo binary: a Command interface and a registry, carried over from a
// larger plugin-registry CLI and trimmed to what a single-binary demo
// needs.
package cli

import (
	"context"
	"fmt"
)

// Command represents a CLI command with pluggable functionality.
type Command interface {
	// Name returns the command name.
	Name() string

	// Description returns the command description.
	Description() string

	// Run executes the command with the given arguments.
	Run(ctx context.Context, args []string) error

	// Usage returns usage information.
	Usage() string
}

// Registry manages available CLI commands.
type Registry struct {
	commands map[string]Command
}

// NewRegistry creates a new, empty command registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

// Get retrieves a command by name.
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]

	return cmd, ok
}

// List returns all registered command names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}

	return names
}

// Run dispatches args[0] to the matching registered command's Run.
func (r *Registry) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("cli: no command given; available: %v", r.List())
	}

	cmd, ok := r.Get(args[0])
	if !ok {
		return fmt.Errorf("cli: unknown command %q; available: %v", args[0], r.List())
	}

	return cmd.Run(ctx, args[1:])
}
