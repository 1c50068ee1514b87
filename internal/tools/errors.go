// Package tools provides the tool registry and execution framework.
//
// This file defines sentinel error types for tool registration.
package tools

import (
	"errors"
	"fmt"
)

// ErrInvalidDescriptor is returned by Register when a descriptor is
// missing its name or handler.
var ErrInvalidDescriptor = errors.New("tool descriptor missing name or handler")

// ErrCapacityExceeded is returned by Register when the registry is
// full. The limit is practical, not semantic — see maxTools.
var ErrCapacityExceeded = errors.New("tool registry capacity exceeded")

// DuplicateNameError is returned by Register when a tool with the same
// name is already present. The first registration wins; the registry
// is left unchanged.
type DuplicateNameError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}
