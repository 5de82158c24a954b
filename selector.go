package fileaccess

import (
	"context"
)

// Selector picks the FileAccess backend for a request: bundled resources
// or the writable namespace. A nil backend is allowed when the caller
// never asks for it.
type Selector struct {
	writable  *VFSAccess
	resources *ResourceAccess
}

// NewSelector creates a selector over the two backends.
func NewSelector(writable *VFSAccess, resources *ResourceAccess) *Selector {
	return &Selector{
		writable:  writable,
		resources: resources,
	}
}

// Select returns the resource backend when resource is set, otherwise the
// writable backend.
func (s *Selector) Select(resource bool) FileAccess {
	if resource {
		return s.resources
	}
	return s.writable
}

// Writable returns the writable backend.
func (s *Selector) Writable() *VFSAccess {
	return s.writable
}

// Resources returns the resource backend.
func (s *Selector) Resources() *ResourceAccess {
	return s.resources
}

// Exists reports whether name exists on the selected backend. The empty
// name never exists.
func (s *Selector) Exists(ctx context.Context, name string, resource bool) bool {
	if name == "" {
		return false
	}
	return s.Select(resource).IsElement(ctx, name)
}
