package api

import "errors"

var (
	ErrOwnerNotFound  = errors.New("owner not found")
	ErrRuleNotFound   = errors.New("rule not found")
	ErrDuplicateRule  = errors.New("rule already exists")
	ErrDuplicateOwner = errors.New("owner already exists")
	ErrForbidden      = errors.New("cannot modify a rule of another owner")

	// ErrUnparseableSMS is returned when SMS text does not match the bank alert grammar.
	ErrUnparseableSMS = errors.New("unable to parse SMS")

	ErrInvalidRequest = errors.New("invalid request")
	ErrMissingField   = errors.New("missing required field")
	ErrEmptyBatch     = errors.New("batch is empty")
	ErrBatchTooLarge  = errors.New("batch exceeds maximum size")
)
