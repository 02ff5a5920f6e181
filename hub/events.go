// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package hub

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

type ProfileCreatorWhitelisted struct {
	Creator     common.Address
	Whitelisted bool
}

func (ProfileCreatorWhitelisted) EventName() string { return "ProfileCreatorWhitelisted" }

type ModuleWhitelisted struct {
	Kind        ModuleKind
	Module      common.Address
	Whitelisted bool
}

func (ModuleWhitelisted) EventName() string { return "ModuleWhitelisted" }

type ProfileCreated struct {
	ProfileID    *big.Int
	Creator      common.Address
	To           common.Address
	Handle       string
	FollowModule common.Address
	Timestamp    uint64
}

func (ProfileCreated) EventName() string { return "ProfileCreated" }

type FollowModuleSet struct {
	ProfileID    *big.Int
	FollowModule common.Address
	Timestamp    uint64
}

func (FollowModuleSet) EventName() string { return "FollowModuleSet" }

type FollowNFTDeployed struct {
	ProfileID *big.Int
	FollowNFT common.Address
	Timestamp uint64
}

func (FollowNFTDeployed) EventName() string { return "FollowNFTDeployed" }

type Followed struct {
	Follower          common.Address
	ProfileIDs        []*big.Int
	FollowModuleDatas [][]byte
	Timestamp         uint64
}

func (Followed) EventName() string { return "Followed" }

type PostCreated struct {
	ProfileID       *big.Int
	PubID           *big.Int
	ContentURI      string
	CollectModule   common.Address
	ReferenceModule common.Address
	Timestamp       uint64
}

func (PostCreated) EventName() string { return "PostCreated" }

type CommentCreated struct {
	ProfileID           *big.Int
	PubID               *big.Int
	ContentURI          string
	ProfileIDPointed    *big.Int
	PubIDPointed        *big.Int
	ReferenceModuleData []byte
	CollectModule       common.Address
	ReferenceModule     common.Address
	Timestamp           uint64
}

func (CommentCreated) EventName() string { return "CommentCreated" }

type MirrorCreated struct {
	ProfileID           *big.Int
	PubID               *big.Int
	ProfileIDPointed    *big.Int
	PubIDPointed        *big.Int
	ReferenceModuleData []byte
	ReferenceModule     common.Address
	Timestamp           uint64
}

func (MirrorCreated) EventName() string { return "MirrorCreated" }

// Collected is emitted for every collect. ProfileID and PubID name the
// publication the collector pointed at, the root ids the one collected.
type Collected struct {
	Collector         common.Address
	ProfileID         *big.Int
	PubID             *big.Int
	RootProfileID     *big.Int
	RootPubID         *big.Int
	CollectModuleData []byte
	Timestamp         uint64
}

func (Collected) EventName() string { return "Collected" }
