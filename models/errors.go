package models

import (
	"context"
	"errors"
	"net"
)

// ErrorKind buckets every failure the engine can surface. Callers get a
// list of kinds in the result envelope, never a raw error chain.
type ErrorKind string

const (
	// ErrKindNetwork — transient fetch/render failure, retried with backoff.
	ErrKindNetwork ErrorKind = "network_error"
	// ErrKindNoContainerMatch — no selector group located a listing container.
	ErrKindNoContainerMatch ErrorKind = "no_container_match"
	// ErrKindNoFieldMatch — a container matched but every field alternative
	// for some role came up empty.
	ErrKindNoFieldMatch ErrorKind = "no_field_match"
	// ErrKindParse — a single field failed to normalize; the field is nil,
	// the record survives.
	ErrKindParse ErrorKind = "parse_error"
	// ErrKindValidation — a single record failed validation and was dropped.
	ErrKindValidation ErrorKind = "validation_error"
	// ErrKindStorageConflict — concurrent upsert collision, retried once.
	ErrKindStorageConflict ErrorKind = "storage_conflict"
	// ErrKindFatal — missing or malformed configuration; aborts that
	// source's run only.
	ErrKindFatal ErrorKind = "fatal"
)

// Sentinel errors matched with errors.Is throughout the engine.
var (
	ErrNetwork          = errors.New("transient network failure")
	ErrNoContainerMatch = errors.New("no selector group matched a listing container")
	ErrNoFieldMatch     = errors.New("no field selector alternative yielded text")
	ErrStorageConflict  = errors.New("storage conflict on concurrent upsert")
	ErrBadConfig        = errors.New("missing or malformed source configuration")
)

// Classify maps an error to its ErrorKind. Unknown errors are treated as
// network failures: everything else in the taxonomy is raised as a typed
// sentinel by the engine itself.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNetwork):
		return ErrKindNetwork
	case errors.Is(err, ErrNoContainerMatch):
		return ErrKindNoContainerMatch
	case errors.Is(err, ErrNoFieldMatch):
		return ErrKindNoFieldMatch
	case errors.Is(err, ErrStorageConflict):
		return ErrKindStorageConflict
	case errors.Is(err, ErrBadConfig):
		return ErrKindFatal
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrKindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrKindNetwork
	}
	return ErrKindNetwork
}
