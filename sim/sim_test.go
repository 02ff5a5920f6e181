// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package sim

import (
	"context"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/endpoint"
	"github.com/luxfi/lzgate/hub"
	"github.com/luxfi/lzgate/lzapp"
	"github.com/luxfi/lzgate/modules"
	"github.com/luxfi/lzgate/payload"
	"github.com/luxfi/lzgate/proxy"
	"github.com/luxfi/lzgate/sbt"
	"github.com/luxfi/lzgate/signer"
	"github.com/luxfi/lzgate/token"
)

const now = 1_700_000_000

var one = big.NewInt(1)

type scenario struct {
	d      *Deployment
	src    *token.ERC721Mock
	remote *token.ERC721Mock
	gate   common.Address

	alice *signer.LocalSigner
	bob   *signer.LocalSigner
	carol *signer.LocalSigner
}

func twoChains(opts ...endpoint.Option) Config {
	return Config{
		SourceChainID:   10109,
		SourceName:      "mumbai",
		RemoteChainID:   10121,
		RemoteName:      "goerli",
		Clock:           func() uint64 { return now },
		EndpointOptions: opts,
	}
}

func newScenario(t *testing.T, cfg Config) *scenario {
	t.Helper()
	require := require.New(t)

	d, err := Deploy(cfg)
	require.NoError(err)
	src, remote, err := d.DeployToken("Gate", "GATE")
	require.NoError(err)

	s := &scenario{d: d, src: src, remote: remote, gate: src.Address()}
	for _, acc := range []**signer.LocalSigner{&s.alice, &s.bob, &s.carol} {
		*acc, err = signer.GenerateLocalSigner()
		require.NoError(err)
		d.Remote.Fund((*acc).Address(), uint256.NewInt(1_000_000_000_000_000_000))
	}
	return s
}

// hold gives account a gating token on the remote chain and, when
// onSource, on the platform chain too
func (s *scenario) hold(t *testing.T, account common.Address, onSource bool) {
	t.Helper()
	_, err := s.remote.SafeMint(TokenDeployer, account)
	require.NoError(t, err)
	if onSource && !s.d.Loopback() {
		_, err = s.src.SafeMint(TokenDeployer, account)
		require.NoError(t, err)
	}
}

func (s *scenario) gatedInit(t *testing.T, threshold *big.Int) []byte {
	t.Helper()
	init, err := payload.NewGatedInit(s.gate, threshold, s.d.Remote.ID())
	require.NoError(t, err)
	return init.Bytes()
}

func (s *scenario) profile(t *testing.T, owner *signer.LocalSigner, handle string, followModule common.Address, initData []byte) *big.Int {
	t.Helper()
	id, err := s.d.CreateProfile(context.Background(), owner.Address(), handle, followModule, initData)
	require.NoError(t, err)
	return id
}

func (s *scenario) failures(module common.Address) []lzapp.MessageFailed {
	return chain.FilterFrom[lzapp.MessageFailed](s.d.Source.Logs(), module)
}

func (s *scenario) followRelay(t *testing.T, follower *signer.LocalSigner, profileID *big.Int, threshold *big.Int) proxy.FollowRelay {
	t.Helper()
	h := s.d.Hub
	vars, err := signer.SignFollow(context.Background(), follower, h.Domain(), []*big.Int{profileID}, [][]byte{{}}, h.SigNonces(follower.Address()), deadline())
	require.NoError(t, err)
	return proxy.FollowRelay{
		Sender:        follower.Address(),
		ProfileID:     profileID,
		TokenContract: s.gate,
		Threshold:     threshold,
		Sig:           vars,
	}
}

func (s *scenario) relayFollow(t *testing.T, r proxy.FollowRelay) error {
	t.Helper()
	fee, _, err := s.d.Proxy.EstimateFeesFollow(r, false)
	require.NoError(t, err)
	return s.d.Proxy.RelayFollowWithSig(context.Background(), chain.Msg{Sender: r.Sender, Value: fee}, r)
}

func deadline() *big.Int {
	return big.NewInt(now + 3600)
}

func TestGatedFollow(t *testing.T) {
	loopback := Loopback(123)
	loopback.Clock = func() uint64 { return now }
	for _, cfg := range []Config{twoChains(), loopback} {
		t.Run(cfg.SourceName, func(t *testing.T) {
			require := require.New(t)

			ctx := context.Background()
			s := newScenario(t, cfg)
			d := s.d
			aliceID := s.profile(t, s.alice, "alice", d.FollowModule.Address(), s.gatedInit(t, one))

			cond, ok := d.FollowModule.GatedFollowPerProfile(aliceID)
			require.True(ok)
			require.Equal(s.gate, cond.TokenContract)
			require.Equal(d.Remote.ID(), cond.RemoteChainID)
			inits := chain.FilterFrom[modules.InitFollowModule](d.Source.Logs(), d.FollowModule.Address())
			require.Len(inits, 1)

			s.hold(t, s.bob.Address(), true)
			r := s.followRelay(t, s.bob, aliceID, one)
			before := d.Remote.Balance(s.bob.Address())
			require.NoError(s.relayFollow(t, r))
			require.True(d.Hub.IsFollowing(aliceID, s.bob.Address()))
			require.Empty(s.failures(d.FollowModule.Address()))
			require.Equal(-1, d.Remote.Balance(s.bob.Address()).Cmp(before))

			// following directly on the platform is refused
			require.ErrorIs(d.Hub.Follow(ctx, s.carol.Address(), []*big.Int{aliceID}, [][]byte{nil}), lzgate.ErrFollowInvalid)

			// a replayed intent is delivered and rejected by the platform
			require.NoError(s.relayFollow(t, r))
			failed := s.failures(d.FollowModule.Address())
			require.Len(failed, 1)
			require.Equal("SignatureInvalid", failed[0].Reason)
			require.Equal(int64(1), d.Hub.SigNonces(s.bob.Address()).Int64())
		})
	}
}

func TestThresholdBypass(t *testing.T) {
	require := require.New(t)

	s := newScenario(t, twoChains())
	d := s.d
	aliceID := s.profile(t, s.alice, "alice", d.FollowModule.Address(), s.gatedInit(t, big.NewInt(2)))

	// carol holds nothing, claims a zero threshold and passes the proxy
	require.NoError(s.relayFollow(t, s.followRelay(t, s.carol, aliceID, big.NewInt(0))))
	require.False(d.Hub.IsFollowing(aliceID, s.carol.Address()))

	failed := s.failures(d.FollowModule.Address())
	require.Len(failed, 1)
	require.Equal("InvalidRemoteInput", failed[0].Reason)

	// claiming the stored threshold is caught by the proxy
	err := s.relayFollow(t, s.followRelay(t, s.carol, aliceID, big.NewInt(2)))
	require.ErrorIs(err, lzgate.ErrInsufficientBalance)

	// a relay on someone else's behalf is caught too
	r := s.followRelay(t, s.bob, aliceID, big.NewInt(2))
	err = d.Proxy.RelayFollowWithSig(context.Background(), chain.Msg{Sender: s.carol.Address()}, r)
	require.ErrorIs(err, lzgate.ErrSenderMismatch)
}

func TestNonContractToken(t *testing.T) {
	require := require.New(t)

	s := newScenario(t, twoChains())
	d := s.d
	aliceID := s.profile(t, s.alice, "alice", d.FollowModule.Address(), s.gatedInit(t, one))

	r := s.followRelay(t, s.carol, aliceID, big.NewInt(0))
	r.TokenContract = s.carol.Address()
	err := s.relayFollow(t, r)
	require.ErrorIs(err, lzgate.ErrInsufficientBalance)
	require.Equal(lzgate.KindBalance, lzgate.KindOf(err))
	require.Zero(d.Network.Pending())
	require.Empty(s.failures(d.FollowModule.Address()))
}

func TestRemoteBalanceRetry(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	s := newScenario(t, twoChains())
	d := s.d
	aliceID := s.profile(t, s.alice, "alice", d.FollowModule.Address(), s.gatedInit(t, one))

	// bob holds on the remote chain only: optimistic check passes,
	// authoritative one fails
	s.hold(t, s.bob.Address(), false)
	require.NoError(s.relayFollow(t, s.followRelay(t, s.bob, aliceID, one)))
	require.False(d.Hub.IsFollowing(aliceID, s.bob.Address()))

	failed := s.failures(d.FollowModule.Address())
	require.Len(failed, 1)
	f := failed[0]
	require.Equal("InvalidRemoteInput", f.Reason)
	_, ok := d.FollowModule.FailedMessage(f.SrcChainID, f.SrcAddress, f.Nonce)
	require.True(ok)

	require.ErrorIs(d.FollowModule.RetryMessage(ctx, f.SrcChainID, f.SrcAddress, f.Nonce, f.Payload), lzgate.ErrInvalidRemoteInput)
	require.ErrorIs(d.FollowModule.RetryMessage(ctx, f.SrcChainID, f.SrcAddress, f.Nonce, []byte("other")), lzgate.ErrInvalidStoredPayload)

	_, err := s.src.SafeMint(TokenDeployer, s.bob.Address())
	require.NoError(err)
	require.NoError(d.FollowModule.RetryMessage(ctx, f.SrcChainID, f.SrcAddress, f.Nonce, f.Payload))
	require.True(d.Hub.IsFollowing(aliceID, s.bob.Address()))
	require.Len(chain.Filter[lzapp.RetryMessageSuccess](d.Source.Logs()), 1)

	require.ErrorIs(d.FollowModule.RetryMessage(ctx, f.SrcChainID, f.SrcAddress, f.Nonce, f.Payload), lzgate.ErrNoStoredMessage)
}

func TestFailedMessageDoesNotBlockChannel(t *testing.T) {
	require := require.New(t)

	s := newScenario(t, twoChains())
	d := s.d
	aliceID := s.profile(t, s.alice, "alice", d.FollowModule.Address(), s.gatedInit(t, one))
	s.hold(t, s.bob.Address(), true)

	// carol's intent passes the proxy with a zero threshold and fails at
	// the module, bob's valid one follows on the same channel
	require.NoError(s.relayFollow(t, s.followRelay(t, s.carol, aliceID, big.NewInt(0))))
	require.NoError(s.relayFollow(t, s.followRelay(t, s.bob, aliceID, one)))

	require.False(d.Hub.IsFollowing(aliceID, s.carol.Address()))
	require.True(d.Hub.IsFollowing(aliceID, s.bob.Address()))
	failed := s.failures(d.FollowModule.Address())
	require.Len(failed, 1)
	require.Equal(uint64(1), failed[0].Nonce)

	srcPath := lzgate.PackPath(d.Proxy.Address(), d.FollowModule.Address())
	require.False(d.SourceEndpoint.HasStoredPayload(d.Remote.ID(), srcPath))
	require.Equal(uint64(2), d.SourceEndpoint.InboundNonce(d.Remote.ID(), srcPath))
	require.Empty(chain.Filter[endpoint.PayloadStored](d.Source.Logs()))
}

func TestUndecodablePayloadWedgesChannel(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	s := newScenario(t, twoChains())
	d := s.d
	aliceID := s.profile(t, s.alice, "alice", d.FollowModule.Address(), s.gatedInit(t, one))
	s.hold(t, s.bob.Address(), true)

	// garbage sent from the trusted proxy address
	garbage := []byte("not abi")
	proxyAddr := d.Proxy.Address()
	fee, _, err := d.RemoteEndpoint.EstimateFees(d.Source.ID(), proxyAddr, garbage, false, nil)
	require.NoError(err)
	d.Remote.Fund(proxyAddr, fee)
	dstPath := lzgate.PackPath(d.FollowModule.Address(), proxyAddr)
	require.NoError(d.RemoteEndpoint.Send(ctx, chain.Msg{Sender: proxyAddr, Value: fee}, d.Source.ID(), dstPath, garbage, proxyAddr, common.Address{}, nil))

	srcPath := lzgate.PackPath(proxyAddr, d.FollowModule.Address())
	sp, ok := d.SourceEndpoint.StoredPayload(d.Remote.ID(), srcPath)
	require.True(ok)
	require.Equal(garbage, sp.Packet.Payload)
	require.Empty(s.failures(d.FollowModule.Address()))

	require.NoError(s.relayFollow(t, s.followRelay(t, s.bob, aliceID, one)))
	require.False(d.Hub.IsFollowing(aliceID, s.bob.Address()))
	require.Equal(1, d.SourceEndpoint.Queued(d.Remote.ID(), srcPath))

	require.ErrorIs(d.FollowModule.ForceResumeReceive(ctx, s.carol.Address(), d.Remote.ID(), srcPath), lzgate.ErrUnauthorized)
	require.NoError(d.FollowModule.ForceResumeReceive(ctx, SourceDeployer, d.Remote.ID(), srcPath))
	require.True(d.Hub.IsFollowing(aliceID, s.bob.Address()))
	require.False(d.SourceEndpoint.HasStoredPayload(d.Remote.ID(), srcPath))
}

func TestFollowThenCollect(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	s := newScenario(t, twoChains())
	d := s.d
	h := d.Hub
	bob := s.bob.Address()
	aliceID := s.profile(t, s.alice, "alice", d.FollowModule.Address(), s.gatedInit(t, one))
	postID, err := h.Post(ctx, s.alice.Address(), hub.PostData{
		ProfileID:             aliceID,
		ContentURI:            "ipfs://post",
		CollectModule:         d.CollectModule.Address(),
		CollectModuleInitData: s.gatedInit(t, one),
	})
	require.NoError(err)
	s.hold(t, bob, true)

	before := d.Remote.Balance(bob)
	fr := s.followRelay(t, s.bob, aliceID, one)
	followFee, _, err := d.Proxy.EstimateFeesFollow(fr, false)
	require.NoError(err)
	require.NoError(s.relayFollow(t, fr))
	require.True(h.IsFollowing(aliceID, bob))

	collect, err := signer.SignCollect(ctx, s.bob, h.Domain(), aliceID, postID, nil, h.SigNonces(bob), deadline())
	require.NoError(err)
	cl := proxy.CollectRelay{
		Sender:        bob,
		ProfileID:     aliceID,
		PubID:         postID,
		TokenContract: s.gate,
		Threshold:     one,
		Sig:           collect,
	}
	collectFee, _, err := d.Proxy.EstimateFeesCollect(cl, false)
	require.NoError(err)
	require.NoError(d.Proxy.RelayCollectWithSig(ctx, chain.Msg{Sender: bob, Value: collectFee}, cl))

	nft, ok := h.CollectNFT(aliceID, postID)
	require.True(ok)
	require.Equal(uint64(1), nft.BalanceOf(bob))
	require.Empty(s.failures(d.FollowModule.Address()))
	require.Empty(s.failures(d.CollectModule.Address()))

	spent := new(uint256.Int).Add(followFee, collectFee)
	require.Equal(new(uint256.Int).Sub(before, spent), d.Remote.Balance(bob))

	proxyAddr := d.Proxy.Address()
	require.Equal(uint64(1), d.RemoteEndpoint.OutboundNonce(d.Source.ID(), proxyAddr, d.FollowModule.Address()))
	require.Equal(uint64(1), d.RemoteEndpoint.OutboundNonce(d.Source.ID(), proxyAddr, d.CollectModule.Address()))
}

func TestGatedReferencesAndCollect(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	s := newScenario(t, twoChains())
	d := s.d
	h := d.Hub
	aliceID := s.profile(t, s.alice, "alice", common.Address{}, nil)
	bobID := s.profile(t, s.bob, "bob", common.Address{}, nil)

	postID, err := h.Post(ctx, s.alice.Address(), hub.PostData{
		ProfileID:               aliceID,
		ContentURI:              "ipfs://post",
		CollectModule:           d.CollectModule.Address(),
		CollectModuleInitData:   s.gatedInit(t, one),
		ReferenceModule:         d.ReferenceModule.Address(),
		ReferenceModuleInitData: s.gatedInit(t, one),
	})
	require.NoError(err)
	_, ok := d.ReferenceModule.GatedDataPerPub(aliceID, postID)
	require.True(ok)
	_, ok = d.CollectModule.GatedDataPerPub(aliceID, postID)
	require.True(ok)

	s.hold(t, s.bob.Address(), true)
	bob := s.bob.Address()

	comment, err := signer.SignComment(ctx, s.bob, h.Domain(), payload.CommentWithSigData{
		ProfileID:        bobID,
		ContentURI:       "ipfs://comment",
		ProfileIDPointed: aliceID,
		PubIDPointed:     postID,
	}, h.SigNonces(bob), deadline())
	require.NoError(err)
	cr := proxy.CommentRelay{
		Sender:           bob,
		ProfileID:        bobID,
		ProfileIDPointed: aliceID,
		PubIDPointed:     postID,
		TokenContract:    s.gate,
		Threshold:        one,
		Sig:              comment,
	}
	fee, _, err := d.Proxy.EstimateFeesComment(cr, false)
	require.NoError(err)
	require.NoError(d.Proxy.RelayCommentWithSig(ctx, chain.Msg{Sender: bob, Value: fee}, cr))

	pub, err := h.Publication(bobID, big.NewInt(1))
	require.NoError(err)
	require.Equal(hub.Comment, pub.Kind)
	require.Equal("ipfs://comment", pub.ContentURI)

	mirror, err := signer.SignMirror(ctx, s.bob, h.Domain(), payload.MirrorWithSigData{
		ProfileID:        bobID,
		ProfileIDPointed: aliceID,
		PubIDPointed:     postID,
	}, h.SigNonces(bob), deadline())
	require.NoError(err)
	mr := proxy.MirrorRelay{
		Sender:           bob,
		ProfileID:        bobID,
		ProfileIDPointed: aliceID,
		PubIDPointed:     postID,
		TokenContract:    s.gate,
		Threshold:        one,
		Sig:              mirror,
	}
	fee, _, err = d.Proxy.EstimateFeesMirror(mr, false)
	require.NoError(err)
	require.NoError(d.Proxy.RelayMirrorWithSig(ctx, chain.Msg{Sender: bob, Value: fee}, mr))

	pub, err = h.Publication(bobID, big.NewInt(2))
	require.NoError(err)
	require.Equal(hub.Mirror, pub.Kind)

	collect, err := signer.SignCollect(ctx, s.bob, h.Domain(), aliceID, postID, nil, h.SigNonces(bob), deadline())
	require.NoError(err)
	cl := proxy.CollectRelay{
		Sender:        bob,
		ProfileID:     aliceID,
		PubID:         postID,
		TokenContract: s.gate,
		Threshold:     one,
		Sig:           collect,
	}
	fee, _, err = d.Proxy.EstimateFeesCollect(cl, false)
	require.NoError(err)
	require.NoError(d.Proxy.RelayCollectWithSig(ctx, chain.Msg{Sender: bob, Value: fee}, cl))

	nft, ok := h.CollectNFT(aliceID, postID)
	require.True(ok)
	require.Equal(uint64(1), nft.BalanceOf(bob))
	require.Empty(s.failures(d.ReferenceModule.Address()))
	require.Empty(s.failures(d.CollectModule.Address()))

	// the platform refuses the same actions done directly
	_, err = h.Comment(ctx, bob, payload.CommentWithSigData{ProfileID: bobID, ProfileIDPointed: aliceID, PubIDPointed: postID})
	require.ErrorIs(err, lzgate.ErrCommentOrMirrorInvalid)
	_, err = h.Mirror(ctx, bob, payload.MirrorWithSigData{ProfileID: bobID, ProfileIDPointed: aliceID, PubIDPointed: postID})
	require.ErrorIs(err, lzgate.ErrCommentOrMirrorInvalid)
	require.ErrorIs(h.Collect(ctx, bob, aliceID, postID, nil), lzgate.ErrCollectNotAllowed)

	// carol holds the token but relays a comment from bob's profile
	s.hold(t, s.carol.Address(), true)
	forged, err := signer.SignComment(ctx, s.carol, h.Domain(), payload.CommentWithSigData{
		ProfileID:        bobID,
		ContentURI:       "ipfs://forged",
		ProfileIDPointed: aliceID,
		PubIDPointed:     postID,
	}, h.SigNonces(s.carol.Address()), deadline())
	require.NoError(err)
	cr = proxy.CommentRelay{
		Sender:           s.carol.Address(),
		ProfileID:        bobID,
		ProfileIDPointed: aliceID,
		PubIDPointed:     postID,
		TokenContract:    s.gate,
		Threshold:        one,
		Sig:              forged,
	}
	fee, _, err = d.Proxy.EstimateFeesComment(cr, false)
	require.NoError(err)
	require.NoError(d.Proxy.RelayCommentWithSig(ctx, chain.Msg{Sender: s.carol.Address(), Value: fee}, cr))
	failed := s.failures(d.ReferenceModule.Address())
	require.Len(failed, 1)
	require.Equal("InvalidRemoteInput", failed[0].Reason)
	p, err := h.Profile(bobID)
	require.NoError(err)
	require.Equal(uint64(2), p.PubCount)
}

func TestQueuedDelivery(t *testing.T) {
	require := require.New(t)

	s := newScenario(t, twoChains(endpoint.WithQueuedDelivery()))
	d := s.d
	aliceID := s.profile(t, s.alice, "alice", d.FollowModule.Address(), s.gatedInit(t, one))
	s.hold(t, s.bob.Address(), true)

	require.NoError(s.relayFollow(t, s.followRelay(t, s.bob, aliceID, one)))
	require.False(d.Hub.IsFollowing(aliceID, s.bob.Address()))
	require.Equal(1, d.Network.Pending())

	n, err := d.Flush(context.Background())
	require.NoError(err)
	require.Equal(1, n)
	require.True(d.Hub.IsFollowing(aliceID, s.bob.Address()))
}

func TestSoulboundCollect(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	s := newScenario(t, twoChains())
	d := s.d
	h := d.Hub
	aliceID := s.profile(t, s.alice, "alice", d.FollowModule.Address(), s.gatedInit(t, one))

	s.hold(t, s.bob.Address(), true)
	require.NoError(s.relayFollow(t, s.followRelay(t, s.bob, aliceID, one)))

	initData := (&payload.CollectInit{FollowerOnly: true, ChainID: d.Remote.ID()}).Bytes()
	postID, err := h.Post(ctx, s.alice.Address(), hub.PostData{
		ProfileID:             aliceID,
		ContentURI:            "ipfs://sbt",
		CollectModule:         d.SBTCollectModule.Address(),
		CollectModuleInitData: initData,
	})
	require.NoError(err)
	data, ok := d.SBTCollectModule.PubCollectData(aliceID, postID)
	require.True(ok)
	require.Equal(int64(1), data.CollectionID.Int64())

	require.NoError(h.Collect(ctx, s.bob.Address(), aliceID, postID, nil))
	owner, err := d.DestinationSBT.OwnerOf(one)
	require.NoError(err)
	require.Equal(s.bob.Address(), owner)
	uri, err := d.DestinationSBT.TokenURI(one)
	require.NoError(err)
	require.Equal("ipfs://sbt", uri)
	require.Equal(uint64(1), d.DestinationSBT.BalanceOf(s.bob.Address()))
	require.Zero(d.SourceSBT.BalanceOf(s.bob.Address()))
	require.Equal(-1, d.SourceSBT.Balance().Cmp(DefaultSBTFunding))
	require.Len(chain.FilterFrom[sbt.MintSent](d.Source.Logs(), d.SourceSBT.Address()), 1)

	// the token cannot move
	require.ErrorIs(d.DestinationSBT.TransferFrom(s.bob.Address(), s.bob.Address(), s.carol.Address(), one), sbt.ErrSoulbound)

	require.ErrorIs(h.Collect(ctx, s.carol.Address(), aliceID, postID, nil), sbt.ErrOnlyFollowers)

	badInit := (&payload.CollectInit{ChainID: 999}).Bytes()
	_, err = h.Post(ctx, s.alice.Address(), hub.PostData{
		ProfileID:             aliceID,
		ContentURI:            "ipfs://nowhere",
		CollectModule:         d.SBTCollectModule.Address(),
		CollectModuleInitData: badInit,
	})
	require.ErrorIs(err, lzgate.ErrInvalidChainID)
	require.Len(d.SourceSBT.Collections(), 1)
}
