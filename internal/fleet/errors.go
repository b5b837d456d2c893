package fleet

import "errors"

var (
	// ErrNotFound indicates that a control-plane resource does not exist.
	// It is the only error class the reconciler recovers from (by creating
	// the resource); everything else propagates to the caller untouched.
	ErrNotFound = errors.New("resource not found")

	// ErrReconcile indicates that the control plane rejected a create or
	// update that was not a not-found condition.
	ErrReconcile = errors.New("reconciliation failed")

	// ErrHealthTimeout indicates that a replica set never reached its
	// desired running count before the deadline. Distinct from ErrReconcile
	// so callers can decide between rollback and warning.
	ErrHealthTimeout = errors.New("service did not become healthy before the deadline")

	// ErrRouting indicates a rule attach or detach failure on the required
	// listener. Encrypted-listener failures are downgraded to warnings and
	// never carry this class.
	ErrRouting = errors.New("routing rule operation failed")

	// ErrPriorityInUse is the collision case of ErrRouting: another project
	// already holds the derived rule priority on the shared gateway.
	ErrPriorityInUse = errors.New("routing priority already in use")
)
