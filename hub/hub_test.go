// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package hub

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/payload"
	"github.com/luxfi/lzgate/signer"
)

const now = 1_700_000_000

var (
	governance = common.HexToAddress("0x90")
	creator    = common.HexToAddress("0x91")

	errModule = errors.New("module says no")
)

type testModule struct {
	chain.Base
	chain.NoFallback

	mu    sync.Mutex
	err   error
	calls []string
}

func (m *testModule) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.err
}

func (m *testModule) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *testModule) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *testModule) InitializeFollowModule(_ context.Context, _ common.Address, profileID *big.Int, _ []byte) error {
	return m.record(fmt.Sprintf("initFollow %s", profileID))
}

func (m *testModule) ProcessFollow(_ context.Context, caller, follower common.Address, profileID *big.Int, _ []byte) error {
	return m.record(fmt.Sprintf("follow %s %s by %s", profileID, follower, caller))
}

func (m *testModule) InitializeReferenceModule(_ context.Context, _ common.Address, profileID, pubID *big.Int, _ []byte) error {
	return m.record(fmt.Sprintf("initReference %s/%s", profileID, pubID))
}

func (m *testModule) ProcessComment(_ context.Context, _ common.Address, profileID, profileIDPointed, pubIDPointed *big.Int, _ []byte) error {
	return m.record(fmt.Sprintf("comment %s on %s/%s", profileID, profileIDPointed, pubIDPointed))
}

func (m *testModule) ProcessMirror(_ context.Context, _ common.Address, profileID, profileIDPointed, pubIDPointed *big.Int, _ []byte) error {
	return m.record(fmt.Sprintf("mirror %s of %s/%s", profileID, profileIDPointed, pubIDPointed))
}

func (m *testModule) InitializePublicationCollectModule(_ context.Context, _ common.Address, profileID, pubID *big.Int, _ []byte) error {
	return m.record(fmt.Sprintf("initCollect %s/%s", profileID, pubID))
}

func (m *testModule) ProcessCollect(_ context.Context, _ common.Address, referrer *big.Int, _ common.Address, profileID, pubID *big.Int, _ []byte) error {
	return m.record(fmt.Sprintf("collect %s/%s via %s", profileID, pubID, referrer))
}

type testHub struct {
	chain  *chain.Chain
	hub    *Hub
	module *testModule
	alice  *signer.LocalSigner
	bob    *signer.LocalSigner
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	require := require.New(t)

	c := chain.New(123, "hardhat")
	c.SetClock(func() uint64 { return now })
	h := New(governance)
	_, err := c.Deploy(governance, h)
	require.NoError(err)

	m := &testModule{}
	_, err = c.Deploy(governance, m)
	require.NoError(err)
	for _, kind := range []ModuleKind{FollowModuleKind, ReferenceModuleKind, CollectModuleKind} {
		require.NoError(h.WhitelistModule(governance, kind, m.Address(), true))
	}
	require.NoError(h.WhitelistProfileCreator(governance, creator, true))

	alice, err := signer.GenerateLocalSigner()
	require.NoError(err)
	bob, err := signer.GenerateLocalSigner()
	require.NoError(err)
	return &testHub{chain: c, hub: h, module: m, alice: alice, bob: bob}
}

func (th *testHub) createProfile(t *testing.T, owner common.Address, handle string, followModule common.Address) *big.Int {
	t.Helper()
	id, err := th.hub.CreateProfile(context.Background(), creator, CreateProfileData{
		To:           owner,
		Handle:       handle,
		FollowModule: followModule,
	})
	require.NoError(t, err)
	return id
}

func deadline() *big.Int {
	return big.NewInt(now + 3600)
}

func TestGovernance(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	th := newTestHub(t)
	h := th.hub
	other := common.HexToAddress("0x99")

	require.ErrorIs(h.WhitelistModule(other, FollowModuleKind, other, true), ErrNotGovernance)
	require.ErrorIs(h.WhitelistProfileCreator(other, other, true), ErrNotGovernance)
	require.True(h.IsModuleWhitelisted(CollectModuleKind, th.module.Address()))
	require.False(h.IsModuleWhitelisted(CollectModuleKind, other))

	_, err := h.CreateProfile(ctx, other, CreateProfileData{To: other, Handle: "other"})
	require.ErrorIs(err, ErrProfileCreatorNotWhitelisted)

	_, err = h.CreateProfile(ctx, creator, CreateProfileData{To: other, Handle: "other", FollowModule: other})
	require.ErrorIs(err, ErrFollowModuleNotWhitelisted)

	_, err = h.CreateProfile(ctx, creator, CreateProfileData{To: other, Handle: "Other"})
	require.ErrorIs(err, ErrHandleLengthInvalid)

	id := th.createProfile(t, other, "other", common.Address{})
	require.Equal(int64(1), id.Int64())
	_, err = h.CreateProfile(ctx, creator, CreateProfileData{To: other, Handle: "other"})
	require.ErrorIs(err, ErrHandleTaken)

	found, ok := h.ProfileIDByHandle("other")
	require.True(ok)
	require.Equal(id, found)

	require.NoError(h.WhitelistModule(governance, FollowModuleKind, th.module.Address(), false))
	require.ErrorIs(h.SetFollowModule(ctx, other, id, th.module.Address(), nil), ErrFollowModuleNotWhitelisted)
	require.ErrorIs(h.SetFollowModule(ctx, governance, id, common.Address{}, nil), ErrNotProfileOwner)

	require.NoError(h.SetGovernance(governance, other))
	require.Equal(other, h.Governance())
	require.ErrorIs(h.WhitelistModule(governance, FollowModuleKind, other, true), ErrNotGovernance)
}

func TestFollowWithSig(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	th := newTestHub(t)
	h := th.hub
	profileID := th.createProfile(t, th.alice.Address(), "alice", common.Address{})

	vars, err := signer.SignFollow(ctx, th.bob, h.Domain(), []*big.Int{profileID}, [][]byte{{}}, h.SigNonces(th.bob.Address()), deadline())
	require.NoError(err)

	require.NoError(h.FollowWithSig(ctx, vars))
	require.True(h.IsFollowing(profileID, th.bob.Address()))
	require.Equal(int64(1), h.SigNonces(th.bob.Address()).Int64())

	nft, ok := h.FollowNFT(profileID)
	require.True(ok)
	require.Equal(uint64(1), nft.BalanceOf(th.bob.Address()))
	require.Len(chain.Filter[FollowNFTDeployed](th.chain.Logs()), 1)
	followed := chain.Filter[Followed](th.chain.Logs())
	require.Len(followed, 1)
	require.Equal(th.bob.Address(), followed[0].Follower)

	// the nonce is spent
	require.ErrorIs(h.FollowWithSig(ctx, vars), ErrSignatureInvalid)

	// signed by someone else
	forged, err := signer.SignFollow(ctx, th.alice, h.Domain(), []*big.Int{profileID}, [][]byte{{}}, h.SigNonces(th.bob.Address()), deadline())
	require.NoError(err)
	forged.Follower = th.bob.Address()
	require.ErrorIs(h.FollowWithSig(ctx, forged), ErrSignatureInvalid)

	expired, err := signer.SignFollow(ctx, th.bob, h.Domain(), []*big.Int{profileID}, [][]byte{{}}, h.SigNonces(th.bob.Address()), big.NewInt(now-1))
	require.NoError(err)
	require.ErrorIs(h.FollowWithSig(ctx, expired), ErrSignatureExpired)

	mismatch, err := signer.SignFollow(ctx, th.bob, h.Domain(), []*big.Int{profileID}, nil, h.SigNonces(th.bob.Address()), deadline())
	require.NoError(err)
	require.ErrorIs(h.FollowWithSig(ctx, mismatch), ErrArrayMismatch)
	require.Equal(int64(1), h.SigNonces(th.bob.Address()).Int64())

	missing, err := signer.SignFollow(ctx, th.bob, h.Domain(), []*big.Int{big.NewInt(42)}, [][]byte{{}}, h.SigNonces(th.bob.Address()), deadline())
	require.NoError(err)
	require.ErrorIs(h.FollowWithSig(ctx, missing), ErrTokenDoesNotExist)
}

func TestFollowModule(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	th := newTestHub(t)
	h := th.hub
	m := th.module
	profileID := th.createProfile(t, th.alice.Address(), "alice", m.Address())
	require.Equal([]string{"initFollow 1"}, m.Calls())

	require.NoError(h.Follow(ctx, th.bob.Address(), []*big.Int{profileID}, [][]byte{nil}))
	require.Equal(fmt.Sprintf("follow 1 %s by %s", th.bob.Address(), h.Address()), m.Calls()[1])

	m.setErr(errModule)
	carol := common.HexToAddress("0xca")
	require.ErrorIs(h.Follow(ctx, carol, []*big.Int{profileID}, [][]byte{nil}), errModule)
	require.False(h.IsFollowing(profileID, carol))

	// a failed action gives the nonce back
	vars, err := signer.SignFollow(ctx, th.bob, h.Domain(), []*big.Int{profileID}, [][]byte{{}}, h.SigNonces(th.bob.Address()), deadline())
	require.NoError(err)
	require.ErrorIs(h.FollowWithSig(ctx, vars), errModule)
	require.Zero(h.SigNonces(th.bob.Address()).Int64())

	m.setErr(nil)
	require.NoError(h.FollowWithSig(ctx, vars))

	// a failing init leaves the profile unchanged
	m.setErr(errModule)
	require.NoError(h.SetFollowModule(ctx, th.alice.Address(), profileID, common.Address{}, nil))
	require.ErrorIs(h.SetFollowModule(ctx, th.alice.Address(), profileID, m.Address(), nil), errModule)
	p, err := h.Profile(profileID)
	require.NoError(err)
	require.Equal(common.Address{}, p.FollowModule)

	_, err = h.CreateProfile(ctx, creator, CreateProfileData{To: carol, Handle: "carol", FollowModule: m.Address()})
	require.ErrorIs(err, errModule)
	_, ok := h.ProfileIDByHandle("carol")
	require.False(ok)
}

func TestPublications(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	th := newTestHub(t)
	h := th.hub
	m := th.module
	alice := th.createProfile(t, th.alice.Address(), "alice", common.Address{})
	bob := th.createProfile(t, th.bob.Address(), "bob", common.Address{})

	_, err := h.Post(ctx, th.bob.Address(), PostData{ProfileID: alice, ContentURI: "ipfs://post"})
	require.ErrorIs(err, ErrNotProfileOwner)

	postID, err := h.Post(ctx, th.alice.Address(), PostData{
		ProfileID:       alice,
		ContentURI:      "ipfs://post",
		CollectModule:   m.Address(),
		ReferenceModule: m.Address(),
	})
	require.NoError(err)
	require.Equal(int64(1), postID.Int64())
	require.Equal([]string{"initCollect 1/1", "initReference 1/1"}, m.Calls())

	comment, err := signer.SignComment(ctx, th.bob, h.Domain(), payload.CommentWithSigData{
		ProfileID:        bob,
		ContentURI:       "ipfs://comment",
		ProfileIDPointed: alice,
		PubIDPointed:     postID,
	}, h.SigNonces(th.bob.Address()), deadline())
	require.NoError(err)
	commentID, err := h.CommentWithSig(ctx, comment)
	require.NoError(err)
	require.Equal(int64(1), commentID.Int64())
	require.Contains(m.Calls(), "comment 2 on 1/1")

	_, err = h.CommentWithSig(ctx, comment)
	require.ErrorIs(err, ErrSignatureInvalid)

	mirror, err := signer.SignMirror(ctx, th.bob, h.Domain(), payload.MirrorWithSigData{
		ProfileID:        bob,
		ProfileIDPointed: alice,
		PubIDPointed:     postID,
	}, h.SigNonces(th.bob.Address()), deadline())
	require.NoError(err)
	mirrorID, err := h.MirrorWithSig(ctx, mirror)
	require.NoError(err)
	require.Equal(int64(2), mirrorID.Int64())
	require.Contains(m.Calls(), "mirror 2 of 1/1")

	uri, err := h.ContentURI(bob, mirrorID)
	require.NoError(err)
	require.Equal("ipfs://post", uri)

	collect, err := signer.SignCollect(ctx, th.alice, h.Domain(), bob, mirrorID, nil, h.SigNonces(th.alice.Address()), deadline())
	require.NoError(err)
	require.NoError(h.CollectWithSig(ctx, collect))
	require.Contains(m.Calls(), "collect 1/1 via 2")

	collected := chain.Filter[Collected](th.chain.Logs())
	require.Len(collected, 1)
	require.Equal(bob, collected[0].ProfileID)
	require.Equal(alice, collected[0].RootProfileID)
	require.Equal(postID, collected[0].RootPubID)

	post, err := h.Publication(alice, postID)
	require.NoError(err)
	require.Equal(uint64(1), post.Collects)
	nft, ok := h.CollectNFT(alice, postID)
	require.True(ok)
	require.Equal(uint64(1), nft.BalanceOf(th.alice.Address()))

	_, err = h.Comment(ctx, th.bob.Address(), payload.CommentWithSigData{
		ProfileID:        bob,
		ProfileIDPointed: alice,
		PubIDPointed:     big.NewInt(9),
	})
	require.ErrorIs(err, ErrPublicationDoesNotExist)

	m.setErr(errModule)
	_, err = h.Mirror(ctx, th.bob.Address(), payload.MirrorWithSigData{
		ProfileID:        bob,
		ProfileIDPointed: alice,
		PubIDPointed:     postID,
	})
	require.ErrorIs(err, errModule)
	require.ErrorIs(h.Collect(ctx, th.bob.Address(), alice, postID, nil), errModule)

	// a failed module init removes the publication again
	_, err = h.Post(ctx, th.bob.Address(), PostData{ProfileID: bob, ContentURI: "ipfs://x", CollectModule: m.Address()})
	require.ErrorIs(err, errModule)
	_, err = h.Publication(bob, big.NewInt(3))
	require.ErrorIs(err, ErrPublicationDoesNotExist)

	m.setErr(nil)
	_, err = h.Post(ctx, th.bob.Address(), PostData{ProfileID: bob, ContentURI: "ipfs://x", CollectModule: common.HexToAddress("0x77")})
	require.ErrorIs(err, ErrCollectModuleNotWhitelisted)
	p, err := h.Profile(bob)
	require.NoError(err)
	require.Equal(uint64(2), p.PubCount)
}
