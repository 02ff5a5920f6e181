// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package hub

import (
	"context"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// ModuleKind is the slot a module is whitelisted for
type ModuleKind uint8

const (
	FollowModuleKind ModuleKind = iota
	ReferenceModuleKind
	CollectModuleKind
)

func (k ModuleKind) String() string {
	switch k {
	case FollowModuleKind:
		return "follow"
	case ReferenceModuleKind:
		return "reference"
	case CollectModuleKind:
		return "collect"
	default:
		return "unknown"
	}
}

// FollowModule is consulted when a profile using it is followed. caller is
// always the hub.
type FollowModule interface {
	InitializeFollowModule(ctx context.Context, caller common.Address, profileID *big.Int, data []byte) error
	ProcessFollow(ctx context.Context, caller, follower common.Address, profileID *big.Int, data []byte) error
}

// ReferenceModule is consulted when a publication using it is commented on
// or mirrored
type ReferenceModule interface {
	InitializeReferenceModule(ctx context.Context, caller common.Address, profileID, pubID *big.Int, data []byte) error
	ProcessComment(ctx context.Context, caller common.Address, profileID, profileIDPointed, pubIDPointed *big.Int, data []byte) error
	ProcessMirror(ctx context.Context, caller common.Address, profileID, profileIDPointed, pubIDPointed *big.Int, data []byte) error
}

// CollectModule is consulted when a publication using it is collected
type CollectModule interface {
	InitializePublicationCollectModule(ctx context.Context, caller common.Address, profileID, pubID *big.Int, data []byte) error
	ProcessCollect(ctx context.Context, caller common.Address, referrerProfileID *big.Int, collector common.Address, profileID, pubID *big.Int, data []byte) error
}

// module returns the contract at addr as a T
func module[T any](h *Hub, addr common.Address) (T, error) {
	var zero T
	contract, ok := h.Chain().Contract(addr)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrModuleNotDeployed, addr)
	}
	m, ok := contract.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s does not implement %T", ErrModuleNotDeployed, addr, &zero)
	}
	return m, nil
}
