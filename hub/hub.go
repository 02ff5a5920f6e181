// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package hub is an in-memory social platform: governance, module
// whitelists, profiles and their follow NFTs, publications, and the
// signature-gated actions the gated modules execute on a user's behalf.
package hub

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/math/set"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/signer"
	"github.com/luxfi/lzgate/token"
)

const maxHandleLength = 31

// PubKind is the type of a publication
type PubKind uint8

const (
	Post PubKind = iota + 1
	Comment
	Mirror
)

func (k PubKind) String() string {
	switch k {
	case Post:
		return "post"
	case Comment:
		return "comment"
	case Mirror:
		return "mirror"
	default:
		return "unknown"
	}
}

// Publication is a post, comment or mirror of a profile
type Publication struct {
	ProfileID        uint64
	PubID            uint64
	Kind             PubKind
	ContentURI       string
	ProfileIDPointed uint64
	PubIDPointed     uint64
	CollectModule    common.Address
	ReferenceModule  common.Address
	CollectNFT       common.Address
	Collects         uint64
}

// Profile is a platform identity
type Profile struct {
	ID           uint64
	Owner        common.Address
	Handle       string
	FollowModule common.Address
	FollowNFT    common.Address
	PubCount     uint64
}

type profile struct {
	Profile

	followNFT *token.ERC721Mock
	pubs      map[uint64]*publication
}

type publication struct {
	Publication

	collectNFT *token.ERC721Mock
}

// Option configures a Hub
type Option func(*Hub)

func WithLogger(log *zap.Logger) Option {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

var _ chain.Deployable = (*Hub)(nil)

// Hub is the platform contract
type Hub struct {
	chain.Base
	chain.NoFallback

	log *zap.Logger

	mu               sync.RWMutex
	governance       common.Address
	profileCreators  set.Set[common.Address]
	followModules    set.Set[common.Address]
	referenceModules set.Set[common.Address]
	collectModules   set.Set[common.Address]
	profiles         map[uint64]*profile
	handles          map[string]uint64
	profileCount     uint64
	sigNonces        map[common.Address]uint64
}

// New creates a hub governed by governance
func New(governance common.Address, opts ...Option) *Hub {
	h := &Hub{
		log:              zap.NewNop(),
		governance:       governance,
		profileCreators:  set.NewSet[common.Address](0),
		followModules:    set.NewSet[common.Address](0),
		referenceModules: set.NewSet[common.Address](0),
		collectModules:   set.NewSet[common.Address](0),
		profiles:         make(map[uint64]*profile),
		handles:          make(map[string]uint64),
		sigNonces:        make(map[common.Address]uint64),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Domain returns the typed-data domain signatures must be addressed to
func (h *Hub) Domain() signer.Domain {
	return signer.NewDomain(uint64(h.Chain().ID()), h.Address())
}

// Governance returns the governance address
func (h *Hub) Governance() common.Address {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.governance
}

func (h *Hub) onlyGovernance(caller common.Address) error {
	if caller != h.Governance() {
		return ErrNotGovernance
	}
	return nil
}

// SetGovernance hands governance to newGovernance
func (h *Hub) SetGovernance(caller, newGovernance common.Address) error {
	if err := h.onlyGovernance(caller); err != nil {
		return err
	}
	h.mu.Lock()
	h.governance = newGovernance
	h.mu.Unlock()
	return nil
}

// WhitelistProfileCreator allows or disallows creator to create profiles
func (h *Hub) WhitelistProfileCreator(caller, creator common.Address, whitelist bool) error {
	if err := h.onlyGovernance(caller); err != nil {
		return err
	}
	h.mu.Lock()
	toggle(&h.profileCreators, creator, whitelist)
	h.mu.Unlock()
	h.Emit(ProfileCreatorWhitelisted{Creator: creator, Whitelisted: whitelist})
	return nil
}

// WhitelistModule allows or disallows module in the slot kind
func (h *Hub) WhitelistModule(caller common.Address, kind ModuleKind, module common.Address, whitelist bool) error {
	if err := h.onlyGovernance(caller); err != nil {
		return err
	}
	h.mu.Lock()
	s, err := h.whitelistLocked(kind)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	toggle(s, module, whitelist)
	h.mu.Unlock()

	h.Emit(ModuleWhitelisted{Kind: kind, Module: module, Whitelisted: whitelist})
	h.log.Info("module whitelist updated",
		zap.Stringer("kind", kind),
		zap.Stringer("module", module),
		zap.Bool("whitelisted", whitelist),
	)
	return nil
}

// IsModuleWhitelisted reports whether module may be used in the slot kind
func (h *Hub) IsModuleWhitelisted(kind ModuleKind, module common.Address) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, err := h.whitelistLocked(kind)
	return err == nil && s.Contains(module)
}

func (h *Hub) whitelistLocked(kind ModuleKind) (*set.Set[common.Address], error) {
	switch kind {
	case FollowModuleKind:
		return &h.followModules, nil
	case ReferenceModuleKind:
		return &h.referenceModules, nil
	case CollectModuleKind:
		return &h.collectModules, nil
	default:
		return nil, fmt.Errorf("unknown module kind %d", kind)
	}
}

// checkWhitelisted accepts the zero address, meaning no module
func (h *Hub) checkWhitelisted(kind ModuleKind, module common.Address, notWhitelisted error) error {
	if lzgate.IsZeroAddress(module) || h.IsModuleWhitelisted(kind, module) {
		return nil
	}
	return fmt.Errorf("%w: %s", notWhitelisted, module)
}

func toggle(s *set.Set[common.Address], addr common.Address, on bool) {
	if on {
		s.Add(addr)
	} else {
		s.Remove(addr)
	}
}

// CreateProfileData describes a new profile
type CreateProfileData struct {
	To                   common.Address
	Handle               string
	FollowModule         common.Address
	FollowModuleInitData []byte
}

// CreateProfile creates a profile owned by data.To. The caller must be a
// whitelisted profile creator.
func (h *Hub) CreateProfile(ctx context.Context, caller common.Address, data CreateProfileData) (*big.Int, error) {
	if lzgate.IsZeroAddress(data.To) {
		return nil, fmt.Errorf("%w: profile owner", lzgate.ErrNotZeroAddress)
	}
	if len(data.Handle) == 0 || len(data.Handle) > maxHandleLength || strings.ToLower(data.Handle) != data.Handle {
		return nil, fmt.Errorf("%w: %q", ErrHandleLengthInvalid, data.Handle)
	}
	if err := h.checkWhitelisted(FollowModuleKind, data.FollowModule, ErrFollowModuleNotWhitelisted); err != nil {
		return nil, err
	}

	h.mu.Lock()
	if !h.profileCreators.Contains(caller) {
		h.mu.Unlock()
		return nil, ErrProfileCreatorNotWhitelisted
	}
	if _, ok := h.handles[data.Handle]; ok {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrHandleTaken, data.Handle)
	}
	h.profileCount++
	id := h.profileCount
	h.profiles[id] = &profile{
		Profile: Profile{
			ID:           id,
			Owner:        data.To,
			Handle:       data.Handle,
			FollowModule: data.FollowModule,
		},
		pubs: make(map[uint64]*publication),
	}
	h.handles[data.Handle] = id
	h.mu.Unlock()

	profileID := new(big.Int).SetUint64(id)
	if err := h.initFollowModule(ctx, profileID, data.FollowModule, data.FollowModuleInitData); err != nil {
		h.mu.Lock()
		delete(h.profiles, id)
		delete(h.handles, data.Handle)
		h.mu.Unlock()
		return nil, err
	}

	h.Emit(ProfileCreated{
		ProfileID:    profileID,
		Creator:      caller,
		To:           data.To,
		Handle:       data.Handle,
		FollowModule: data.FollowModule,
		Timestamp:    h.Chain().Now(),
	})
	h.log.Info("profile created",
		zap.Uint64("profileID", id),
		zap.String("handle", data.Handle),
		zap.Stringer("owner", data.To),
	)
	return profileID, nil
}

// SetFollowModule replaces the follow module of a profile
func (h *Hub) SetFollowModule(ctx context.Context, caller common.Address, profileID *big.Int, followModule common.Address, initData []byte) error {
	if err := h.onlyProfileOwner(caller, profileID); err != nil {
		return err
	}
	if err := h.checkWhitelisted(FollowModuleKind, followModule, ErrFollowModuleNotWhitelisted); err != nil {
		return err
	}
	if err := h.initFollowModule(ctx, profileID, followModule, initData); err != nil {
		return err
	}

	h.mu.Lock()
	p, err := h.profileLocked(profileID)
	if err == nil {
		p.FollowModule = followModule
	}
	h.mu.Unlock()
	if err != nil {
		return err
	}
	h.Emit(FollowModuleSet{ProfileID: profileID, FollowModule: followModule, Timestamp: h.Chain().Now()})
	return nil
}

func (h *Hub) initFollowModule(ctx context.Context, profileID *big.Int, followModule common.Address, initData []byte) error {
	if lzgate.IsZeroAddress(followModule) {
		return nil
	}
	m, err := module[FollowModule](h, followModule)
	if err != nil {
		return err
	}
	return m.InitializeFollowModule(ctx, h.Address(), profileID, initData)
}

// PostData describes a new post
type PostData struct {
	ProfileID               *big.Int
	ContentURI              string
	CollectModule           common.Address
	CollectModuleInitData   []byte
	ReferenceModule         common.Address
	ReferenceModuleInitData []byte
}

// Post publishes a post of data.ProfileID; the caller must own the profile
func (h *Hub) Post(ctx context.Context, caller common.Address, data PostData) (*big.Int, error) {
	if err := h.onlyProfileOwner(caller, data.ProfileID); err != nil {
		return nil, err
	}
	pub := Publication{
		Kind:            Post,
		ContentURI:      data.ContentURI,
		CollectModule:   data.CollectModule,
		ReferenceModule: data.ReferenceModule,
	}
	pubID, err := h.publish(ctx, data.ProfileID, pub, data.CollectModuleInitData, data.ReferenceModuleInitData)
	if err != nil {
		return nil, err
	}
	h.Emit(PostCreated{
		ProfileID:       data.ProfileID,
		PubID:           pubID,
		ContentURI:      data.ContentURI,
		CollectModule:   data.CollectModule,
		ReferenceModule: data.ReferenceModule,
		Timestamp:       h.Chain().Now(),
	})
	return pubID, nil
}

// publish stores pub under the next id of profileID and initializes its
// modules. The publication is visible to the modules while they initialize
// and removed again if one of them fails.
func (h *Hub) publish(ctx context.Context, profileID *big.Int, pub Publication, collectInitData, referenceInitData []byte) (*big.Int, error) {
	if err := h.checkWhitelisted(CollectModuleKind, pub.CollectModule, ErrCollectModuleNotWhitelisted); err != nil {
		return nil, err
	}
	if err := h.checkWhitelisted(ReferenceModuleKind, pub.ReferenceModule, ErrReferenceModuleNotWhitelisted); err != nil {
		return nil, err
	}

	h.mu.Lock()
	p, err := h.profileLocked(profileID)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	p.PubCount++
	pub.ProfileID = p.ID
	pub.PubID = p.PubCount
	p.pubs[pub.PubID] = &publication{Publication: pub}
	h.mu.Unlock()

	pubID := new(big.Int).SetUint64(pub.PubID)
	if err := h.initPublicationModules(ctx, profileID, pubID, pub, collectInitData, referenceInitData); err != nil {
		h.mu.Lock()
		delete(p.pubs, pub.PubID)
		if p.PubCount == pub.PubID {
			p.PubCount--
		}
		h.mu.Unlock()
		return nil, err
	}
	return pubID, nil
}

func (h *Hub) initPublicationModules(ctx context.Context, profileID, pubID *big.Int, pub Publication, collectInitData, referenceInitData []byte) error {
	if !lzgate.IsZeroAddress(pub.CollectModule) {
		m, err := module[CollectModule](h, pub.CollectModule)
		if err != nil {
			return err
		}
		if err := m.InitializePublicationCollectModule(ctx, h.Address(), profileID, pubID, collectInitData); err != nil {
			return err
		}
	}
	if !lzgate.IsZeroAddress(pub.ReferenceModule) {
		m, err := module[ReferenceModule](h, pub.ReferenceModule)
		if err != nil {
			return err
		}
		if err := m.InitializeReferenceModule(ctx, h.Address(), profileID, pubID, referenceInitData); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) onlyProfileOwner(caller common.Address, profileID *big.Int) error {
	owner, err := h.OwnerOf(profileID)
	if err != nil {
		return err
	}
	if owner != caller {
		return ErrNotProfileOwner
	}
	return nil
}

func (h *Hub) profileLocked(profileID *big.Int) (*profile, error) {
	if profileID == nil || !profileID.IsUint64() {
		return nil, fmt.Errorf("%w: profile %v", ErrTokenDoesNotExist, profileID)
	}
	p, ok := h.profiles[profileID.Uint64()]
	if !ok {
		return nil, fmt.Errorf("%w: profile %s", ErrTokenDoesNotExist, profileID)
	}
	return p, nil
}

func (h *Hub) publicationLocked(profileID, pubID *big.Int) (*publication, error) {
	p, err := h.profileLocked(profileID)
	if err != nil {
		return nil, err
	}
	if pubID == nil || !pubID.IsUint64() {
		return nil, fmt.Errorf("%w: %s/%v", ErrPublicationDoesNotExist, profileID, pubID)
	}
	pub, ok := p.pubs[pubID.Uint64()]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrPublicationDoesNotExist, profileID, pubID)
	}
	return pub, nil
}

// OwnerOf returns the owner of a profile
func (h *Hub) OwnerOf(profileID *big.Int) (common.Address, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, err := h.profileLocked(profileID)
	if err != nil {
		return common.Address{}, err
	}
	return p.Owner, nil
}

// Profile returns a copy of a profile
func (h *Hub) Profile(profileID *big.Int) (Profile, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, err := h.profileLocked(profileID)
	if err != nil {
		return Profile{}, err
	}
	return p.Profile, nil
}

// ProfileIDByHandle returns the profile registered under handle
func (h *Hub) ProfileIDByHandle(handle string) (*big.Int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.handles[handle]
	if !ok {
		return nil, false
	}
	return new(big.Int).SetUint64(id), true
}

// Publication returns a copy of a publication
func (h *Hub) Publication(profileID, pubID *big.Int) (Publication, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	pub, err := h.publicationLocked(profileID, pubID)
	if err != nil {
		return Publication{}, err
	}
	return pub.Publication, nil
}

// ContentURI returns the content URI of a publication, resolving mirrors
func (h *Hub) ContentURI(profileID, pubID *big.Int) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	pub, err := h.publicationLocked(profileID, pubID)
	if err != nil {
		return "", err
	}
	if pub.Kind == Mirror {
		root, err := h.publicationLocked(new(big.Int).SetUint64(pub.ProfileIDPointed), new(big.Int).SetUint64(pub.PubIDPointed))
		if err != nil {
			return "", err
		}
		return root.ContentURI, nil
	}
	return pub.ContentURI, nil
}

// SigNonces returns the next typed-data nonce of signer
func (h *Hub) SigNonces(signer common.Address) *big.Int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return new(big.Int).SetUint64(h.sigNonces[signer])
}

// IsFollowing reports whether account holds a follow NFT of profileID
func (h *Hub) IsFollowing(profileID *big.Int, account common.Address) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, err := h.profileLocked(profileID)
	if err != nil || p.followNFT == nil {
		return false
	}
	return p.followNFT.BalanceOf(account) > 0
}

// FollowNFT returns the follow NFT of a profile, deployed on first follow
func (h *Hub) FollowNFT(profileID *big.Int) (*token.ERC721Mock, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, err := h.profileLocked(profileID)
	if err != nil || p.followNFT == nil {
		return nil, false
	}
	return p.followNFT, true
}

// CollectNFT returns the collect NFT of a publication, deployed on first
// collect
func (h *Hub) CollectNFT(profileID, pubID *big.Int) (*token.ERC721Mock, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	pub, err := h.publicationLocked(profileID, pubID)
	if err != nil || pub.collectNFT == nil {
		return nil, false
	}
	return pub.collectNFT, true
}
