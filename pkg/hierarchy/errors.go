package hierarchy

import "errors"

var (
	ErrNotBase       = errors.New("class is not a base of the source class")
	ErrAmbiguous     = errors.New("base class is reachable through distinct sub-objects")
	ErrCycle         = errors.New("base edge would create an inheritance cycle")
	ErrDuplicateBase = errors.New("class is already a direct base")
	ErrNoStorage     = errors.New("no storage for virtual base in the most-derived class")
)
