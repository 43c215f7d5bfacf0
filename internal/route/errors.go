package route

import "errors"

// Domain errors for the route package.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrRouteNotFound is returned when no route has the requested name.
	ErrRouteNotFound = errors.New("route: not found")

	// ErrInvalidRoute is returned when a route definition is malformed.
	ErrInvalidRoute = errors.New("route: invalid definition")

	// ErrDuplicateRoute is returned when two definitions share a name.
	ErrDuplicateRoute = errors.New("route: duplicate name")

	// ErrExecutionNotFound is returned when an execution ID does not exist.
	ErrExecutionNotFound = errors.New("route: execution not found")
)
