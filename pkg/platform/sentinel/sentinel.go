package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and network clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store or on the network
// - ErrConflict: a concurrent writer got there first (unique key collision)
// - ErrNotSubmitted: operation requires a prior successful submission
// - ErrUnavailable: backing service temporarily unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrNotSubmitted = errors.New("not submitted")
	ErrUnavailable  = errors.New("unavailable")
)
