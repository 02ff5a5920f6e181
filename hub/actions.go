// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package hub

import (
	"context"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/payload"
	"github.com/luxfi/lzgate/signer"
	"github.com/luxfi/lzgate/token"
)

type digestFunc func(nonce *big.Int) (common.Hash, error)

// spendNonce checks that sig is an unexpired signature of expected over the
// digest built from expected's current nonce, and consumes that nonce. The
// returned function gives the nonce back if the action then fails.
func (h *Hub) spendNonce(expected common.Address, sig payload.EIP712Signature, digest digestFunc) (func(), error) {
	now := new(big.Int).SetUint64(h.Chain().Now())
	if sig.Deadline == nil || sig.Deadline.Cmp(now) < 0 {
		return nil, ErrSignatureExpired
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	nonce := h.sigNonces[expected]
	hash, err := digest(new(big.Int).SetUint64(nonce))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}
	recovered, err := signer.Recover(hash, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}
	if recovered != expected {
		return nil, fmt.Errorf("%w: signed by %s, expected %s", ErrSignatureInvalid, recovered, expected)
	}
	h.sigNonces[expected] = nonce + 1

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.sigNonces[expected] == nonce+1 {
			h.sigNonces[expected] = nonce
		}
	}, nil
}

// Follow follows profileIDs as caller
func (h *Hub) Follow(ctx context.Context, caller common.Address, profileIDs []*big.Int, datas [][]byte) error {
	return h.follow(ctx, caller, profileIDs, datas)
}

// FollowWithSig follows vars.ProfileIDs as vars.Follower, who signed the
// intent
func (h *Hub) FollowWithSig(ctx context.Context, vars payload.FollowWithSigData) error {
	restore, err := h.spendNonce(vars.Follower, vars.Sig, func(nonce *big.Int) (common.Hash, error) {
		return h.Domain().FollowDigest(vars.ProfileIDs, vars.Datas, nonce, vars.Sig.Deadline)
	})
	if err != nil {
		return err
	}
	if err := h.follow(ctx, vars.Follower, vars.ProfileIDs, vars.Datas); err != nil {
		restore()
		return err
	}
	return nil
}

func (h *Hub) follow(ctx context.Context, follower common.Address, profileIDs []*big.Int, datas [][]byte) error {
	if len(profileIDs) != len(datas) {
		return ErrArrayMismatch
	}
	for i, profileID := range profileIDs {
		p, err := h.Profile(profileID)
		if err != nil {
			return err
		}
		if lzgate.IsZeroAddress(p.FollowModule) {
			continue
		}
		m, err := module[FollowModule](h, p.FollowModule)
		if err != nil {
			return err
		}
		if err := m.ProcessFollow(ctx, h.Address(), follower, profileID, datas[i]); err != nil {
			return err
		}
	}

	for _, profileID := range profileIDs {
		nft, err := h.followNFT(profileID)
		if err != nil {
			return err
		}
		if _, err := nft.SafeMint(h.Address(), follower); err != nil {
			return err
		}
	}

	h.Emit(Followed{
		Follower:          follower,
		ProfileIDs:        profileIDs,
		FollowModuleDatas: datas,
		Timestamp:         h.Chain().Now(),
	})
	h.log.Debug("followed",
		zap.Stringer("follower", follower),
		zap.Int("profiles", len(profileIDs)),
	)
	return nil
}

// followNFT returns the follow NFT of profileID, deploying it if needed
func (h *Hub) followNFT(profileID *big.Int) (*token.ERC721Mock, error) {
	h.mu.Lock()
	p, err := h.profileLocked(profileID)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	if p.followNFT != nil {
		nft := p.followNFT
		h.mu.Unlock()
		return nft, nil
	}
	nft := token.NewERC721Mock(p.Handle+"-Follower", shortSymbol(p.Handle)+"-Fl", h.Address())
	addr, err := h.Chain().Deploy(h.Address(), nft)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	p.followNFT = nft
	p.FollowNFT = addr
	h.mu.Unlock()

	h.Emit(FollowNFTDeployed{ProfileID: profileID, FollowNFT: addr, Timestamp: h.Chain().Now()})
	return nft, nil
}

func shortSymbol(handle string) string {
	if len(handle) > 4 {
		return handle[:4]
	}
	return handle
}

// Comment publishes vars as a comment of caller's profile. vars.Sig is
// ignored.
func (h *Hub) Comment(ctx context.Context, caller common.Address, vars payload.CommentWithSigData) (*big.Int, error) {
	if err := h.onlyProfileOwner(caller, vars.ProfileID); err != nil {
		return nil, err
	}
	return h.comment(ctx, &vars)
}

// CommentWithSig publishes a comment signed by the owner of vars.ProfileID
func (h *Hub) CommentWithSig(ctx context.Context, vars payload.CommentWithSigData) (*big.Int, error) {
	owner, err := h.OwnerOf(vars.ProfileID)
	if err != nil {
		return nil, err
	}
	restore, err := h.spendNonce(owner, vars.Sig, func(nonce *big.Int) (common.Hash, error) {
		return h.Domain().CommentDigest(&vars, nonce)
	})
	if err != nil {
		return nil, err
	}
	pubID, err := h.comment(ctx, &vars)
	if err != nil {
		restore()
		return nil, err
	}
	return pubID, nil
}

func (h *Hub) comment(ctx context.Context, vars *payload.CommentWithSigData) (*big.Int, error) {
	pointed, err := h.Publication(vars.ProfileIDPointed, vars.PubIDPointed)
	if err != nil {
		return nil, err
	}
	if !lzgate.IsZeroAddress(pointed.ReferenceModule) {
		m, err := module[ReferenceModule](h, pointed.ReferenceModule)
		if err != nil {
			return nil, err
		}
		if err := m.ProcessComment(ctx, h.Address(), vars.ProfileID, vars.ProfileIDPointed, vars.PubIDPointed, vars.ReferenceModuleData); err != nil {
			return nil, err
		}
	}

	pub := Publication{
		Kind:             Comment,
		ContentURI:       vars.ContentURI,
		ProfileIDPointed: pointed.ProfileID,
		PubIDPointed:     pointed.PubID,
		CollectModule:    vars.CollectModule,
		ReferenceModule:  vars.ReferenceModule,
	}
	pubID, err := h.publish(ctx, vars.ProfileID, pub, vars.CollectModuleInitData, vars.ReferenceModuleInitData)
	if err != nil {
		return nil, err
	}
	h.Emit(CommentCreated{
		ProfileID:           vars.ProfileID,
		PubID:               pubID,
		ContentURI:          vars.ContentURI,
		ProfileIDPointed:    vars.ProfileIDPointed,
		PubIDPointed:        vars.PubIDPointed,
		ReferenceModuleData: vars.ReferenceModuleData,
		CollectModule:       vars.CollectModule,
		ReferenceModule:     vars.ReferenceModule,
		Timestamp:           h.Chain().Now(),
	})
	return pubID, nil
}

// Mirror publishes vars as a mirror of caller's profile. vars.Sig is
// ignored.
func (h *Hub) Mirror(ctx context.Context, caller common.Address, vars payload.MirrorWithSigData) (*big.Int, error) {
	if err := h.onlyProfileOwner(caller, vars.ProfileID); err != nil {
		return nil, err
	}
	return h.mirror(ctx, &vars)
}

// MirrorWithSig publishes a mirror signed by the owner of vars.ProfileID
func (h *Hub) MirrorWithSig(ctx context.Context, vars payload.MirrorWithSigData) (*big.Int, error) {
	owner, err := h.OwnerOf(vars.ProfileID)
	if err != nil {
		return nil, err
	}
	restore, err := h.spendNonce(owner, vars.Sig, func(nonce *big.Int) (common.Hash, error) {
		return h.Domain().MirrorDigest(&vars, nonce)
	})
	if err != nil {
		return nil, err
	}
	pubID, err := h.mirror(ctx, &vars)
	if err != nil {
		restore()
		return nil, err
	}
	return pubID, nil
}

// mirror points at the root of the mirrored publication; mirroring a
// mirror mirrors what it points at
func (h *Hub) mirror(ctx context.Context, vars *payload.MirrorWithSigData) (*big.Int, error) {
	root, err := h.root(vars.ProfileIDPointed, vars.PubIDPointed)
	if err != nil {
		return nil, err
	}
	rootProfileID := new(big.Int).SetUint64(root.ProfileID)
	rootPubID := new(big.Int).SetUint64(root.PubID)
	if !lzgate.IsZeroAddress(root.ReferenceModule) {
		m, err := module[ReferenceModule](h, root.ReferenceModule)
		if err != nil {
			return nil, err
		}
		if err := m.ProcessMirror(ctx, h.Address(), vars.ProfileID, rootProfileID, rootPubID, vars.ReferenceModuleData); err != nil {
			return nil, err
		}
	}

	pub := Publication{
		Kind:             Mirror,
		ProfileIDPointed: root.ProfileID,
		PubIDPointed:     root.PubID,
		ReferenceModule:  vars.ReferenceModule,
	}
	pubID, err := h.publish(ctx, vars.ProfileID, pub, nil, vars.ReferenceModuleInitData)
	if err != nil {
		return nil, err
	}
	h.Emit(MirrorCreated{
		ProfileID:           vars.ProfileID,
		PubID:               pubID,
		ProfileIDPointed:    rootProfileID,
		PubIDPointed:        rootPubID,
		ReferenceModuleData: vars.ReferenceModuleData,
		ReferenceModule:     vars.ReferenceModule,
		Timestamp:           h.Chain().Now(),
	})
	return pubID, nil
}

// root resolves a mirror to the publication it mirrors
func (h *Hub) root(profileID, pubID *big.Int) (Publication, error) {
	pub, err := h.Publication(profileID, pubID)
	if err != nil {
		return Publication{}, err
	}
	if pub.Kind != Mirror {
		return pub, nil
	}
	return h.Publication(new(big.Int).SetUint64(pub.ProfileIDPointed), new(big.Int).SetUint64(pub.PubIDPointed))
}

// Collect collects a publication as caller
func (h *Hub) Collect(ctx context.Context, caller common.Address, profileID, pubID *big.Int, data []byte) error {
	return h.collect(ctx, caller, profileID, pubID, data)
}

// CollectWithSig collects a publication as vars.Collector, who signed the
// intent
func (h *Hub) CollectWithSig(ctx context.Context, vars payload.CollectWithSigData) error {
	restore, err := h.spendNonce(vars.Collector, vars.Sig, func(nonce *big.Int) (common.Hash, error) {
		return h.Domain().CollectDigest(vars.ProfileID, vars.PubID, vars.Data, nonce, vars.Sig.Deadline)
	})
	if err != nil {
		return err
	}
	if err := h.collect(ctx, vars.Collector, vars.ProfileID, vars.PubID, vars.Data); err != nil {
		restore()
		return err
	}
	return nil
}

// collect collects the root of the publication. Collecting through a
// mirror credits the mirroring profile as referrer.
func (h *Hub) collect(ctx context.Context, collector common.Address, profileID, pubID *big.Int, data []byte) error {
	root, err := h.root(profileID, pubID)
	if err != nil {
		return err
	}
	rootProfileID := new(big.Int).SetUint64(root.ProfileID)
	rootPubID := new(big.Int).SetUint64(root.PubID)
	if !lzgate.IsZeroAddress(root.CollectModule) {
		m, err := module[CollectModule](h, root.CollectModule)
		if err != nil {
			return err
		}
		if err := m.ProcessCollect(ctx, h.Address(), profileID, collector, rootProfileID, rootPubID, data); err != nil {
			return err
		}
	}

	nft, err := h.collectNFT(rootProfileID, rootPubID)
	if err != nil {
		return err
	}
	if _, err := nft.SafeMint(h.Address(), collector); err != nil {
		return err
	}

	h.Emit(Collected{
		Collector:         collector,
		ProfileID:         profileID,
		PubID:             pubID,
		RootProfileID:     rootProfileID,
		RootPubID:         rootPubID,
		CollectModuleData: data,
		Timestamp:         h.Chain().Now(),
	})
	h.log.Debug("collected",
		zap.Stringer("collector", collector),
		zap.Stringer("profileID", rootProfileID),
		zap.Stringer("pubID", rootPubID),
	)
	return nil
}

// collectNFT returns the collect NFT of a publication, deploying it if
// needed, and counts the collect
func (h *Hub) collectNFT(profileID, pubID *big.Int) (*token.ERC721Mock, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pub, err := h.publicationLocked(profileID, pubID)
	if err != nil {
		return nil, err
	}
	pub.Collects++
	if pub.collectNFT != nil {
		return pub.collectNFT, nil
	}
	p := h.profiles[pub.ProfileID]
	symbol := fmt.Sprintf("%s-Cl-%d", shortSymbol(p.Handle), pub.PubID)
	nft := token.NewERC721Mock(fmt.Sprintf("%s-Collect-%d", p.Handle, pub.PubID), symbol, h.Address())
	addr, err := h.Chain().Deploy(h.Address(), nft)
	if err != nil {
		return nil, err
	}
	pub.collectNFT = nft
	pub.CollectNFT = addr
	return nft, nil
}
