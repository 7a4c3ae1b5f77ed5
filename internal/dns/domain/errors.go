package domain

import "errors"

var (
	// ErrParse is returned when query bytes cannot be decoded. No reply is sent.
	ErrParse = errors.New("malformed DNS message")

	// ErrFraming is returned when a stream message's length prefix does not
	// match the payload that followed it.
	ErrFraming = errors.New("stream length prefix mismatch")

	// ErrEmptyPool is returned when no backend addresses are configured.
	ErrEmptyPool = errors.New("backend pool is empty")

	// ErrUnknownPolicy is returned for an unrecognised selection policy name.
	ErrUnknownPolicy = errors.New("unknown selection policy")

	// ErrSelection is returned when a policy cannot choose a backend, e.g. the
	// geo or load collaborator is unreachable or returned inconsistent data.
	ErrSelection = errors.New("backend selection failed")
)
