// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package lzgate

import "errors"

// Kind classifies a revert by who caused it and how it must be surfaced.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindConfiguration errors are raised at construction or initialization.
	KindConfiguration
	// KindAuthorization errors are raised when the caller lacks a capability.
	KindAuthorization
	// KindBalance errors are optimistic gating failures on the sending chain.
	KindBalance
	// KindRemoteInput errors are authoritative gating failures on delivery.
	KindRemoteInput
	// KindPlatform errors come from the social platform.
	KindPlatform
	// KindTransport errors come from the messaging transport.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthorization:
		return "authorization"
	case KindBalance:
		return "balance"
	case KindRemoteInput:
		return "remote_input"
	case KindPlatform:
		return "platform"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is a contract revert carrying a short reason string
type Error struct {
	Kind   Kind
	Reason string
}

// NewError returns a revert error of the given kind
func NewError(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Reason
}

var (
	ErrInitParamsInvalid = NewError(KindConfiguration, "InitParamsInvalid")
	ErrNotZeroAddress    = NewError(KindConfiguration, "NotZeroAddress")
	ErrArrayMismatch     = NewError(KindConfiguration, "ArrayMismatch")
	ErrInvalidChainID    = NewError(KindConfiguration, "InvalidChainId")
	ErrRemoteNotFound    = NewError(KindConfiguration, "RemoteNotFound")

	ErrNotHub                 = NewError(KindAuthorization, "NotHub")
	ErrUnauthorized           = NewError(KindAuthorization, "UNAUTHORIZED")
	ErrOnlyTrustedRemote      = NewError(KindAuthorization, "OnlyTrustedRemote")
	ErrOnlyCollectModule      = NewError(KindAuthorization, "OnlyCollectModule")
	ErrInvalidEndpointCall    = NewError(KindAuthorization, "InvalidEndpointCaller")
	ErrSenderMismatch         = NewError(KindAuthorization, "SenderMismatch")
	ErrFollowInvalid          = NewError(KindAuthorization, "FollowInvalid")
	ErrCommentOrMirrorInvalid = NewError(KindAuthorization, "CommentOrMirrorInvalid")
	ErrCollectNotAllowed      = NewError(KindAuthorization, "CollectNotAllowed")

	ErrInsufficientBalance = NewError(KindBalance, "InsufficientBalance")
	ErrInvalidRemoteInput  = NewError(KindRemoteInput, "InvalidRemoteInput")

	ErrNoStoredMessage      = NewError(KindTransport, "NoStoredMessage")
	ErrInvalidStoredPayload = NewError(KindTransport, "InvalidPayload")
)

// Reason returns the short revert reason of err, or its message if err
// carries no revert.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}

// KindOf returns the kind of the revert wrapped by err
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
