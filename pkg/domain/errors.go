package domain

import "errors"

// ErrTriggerNotLinked is returned when the designated trigger input is a
// literal instead of a link; there is no producer subtree to extract.
var ErrTriggerNotLinked = errors.New("trigger is not a link")

// ErrEmptySubgraph is returned when the ancestor closure of a trigger is
// empty. This is a malformed-workflow error, not a retryable condition.
var ErrEmptySubgraph = errors.New("no subgraph found, nothing to execute")

// ErrJobNotFound is returned when a job ID cannot be found in the store.
var ErrJobNotFound = errors.New("job not found")

// ErrLocalResult is returned when fetching a local-mode job without supplying
// the locally produced substitute value.
var ErrLocalResult = errors.New("local mode requires a locally supplied result")
