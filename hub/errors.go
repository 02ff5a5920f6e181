// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package hub

import "github.com/luxfi/lzgate"

var (
	ErrNotGovernance                 = lzgate.NewError(lzgate.KindPlatform, "NotGovernance")
	ErrNotProfileOwner               = lzgate.NewError(lzgate.KindPlatform, "NotProfileOwner")
	ErrProfileCreatorNotWhitelisted  = lzgate.NewError(lzgate.KindPlatform, "ProfileCreatorNotWhitelisted")
	ErrFollowModuleNotWhitelisted    = lzgate.NewError(lzgate.KindPlatform, "FollowModuleNotWhitelisted")
	ErrReferenceModuleNotWhitelisted = lzgate.NewError(lzgate.KindPlatform, "ReferenceModuleNotWhitelisted")
	ErrCollectModuleNotWhitelisted   = lzgate.NewError(lzgate.KindPlatform, "CollectModuleNotWhitelisted")
	ErrHandleTaken                   = lzgate.NewError(lzgate.KindPlatform, "HandleTaken")
	ErrHandleLengthInvalid           = lzgate.NewError(lzgate.KindPlatform, "HandleLengthInvalid")
	ErrTokenDoesNotExist             = lzgate.NewError(lzgate.KindPlatform, "TokenDoesNotExist")
	ErrPublicationDoesNotExist       = lzgate.NewError(lzgate.KindPlatform, "PublicationDoesNotExist")
	ErrSignatureExpired              = lzgate.NewError(lzgate.KindPlatform, "SignatureExpired")
	ErrSignatureInvalid              = lzgate.NewError(lzgate.KindPlatform, "SignatureInvalid")
	ErrArrayMismatch                 = lzgate.NewError(lzgate.KindPlatform, "ArrayMismatch")
	ErrModuleNotDeployed             = lzgate.NewError(lzgate.KindPlatform, "ModuleNotDeployed")
)
