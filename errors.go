package deepcca

import "errors"

var (
	// ErrConfiguration signals an invalid or unsatisfiable construction option,
	// or a transform request before the centering state was fitted.
	ErrConfiguration = errors.New("configuration error")
	// ErrUsageSequence signals operations invoked out of order,
	// e.g. a correlation query before fit.
	ErrUsageSequence = errors.New("usage sequence error")
	// ErrCompute signals a fatal failure inside the model's forward or update step.
	ErrCompute = errors.New("compute error")
	// ErrNotApplicable is a well-defined "no answer" outcome,
	// e.g. correlation evaluation for single-encoding variants.
	ErrNotApplicable = errors.New("not applicable")
)
