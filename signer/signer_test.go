// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lzgate/payload"
)

var (
	hub      = common.HexToAddress("0x4b")
	deadline = big.NewInt(1_900_000_000)
)

type fakeClient struct {
	signer *LocalSigner
	addr   common.Address
	err    error
}

func (c *fakeClient) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.signer.SignHash(ctx, common.BytesToHash(digest))
}

func (c *fakeClient) Address(context.Context) (common.Address, error) {
	return c.addr, c.err
}

func TestSignFollow(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	s, err := GenerateLocalSigner()
	require.NoError(err)
	d := NewDomain(123, hub)

	profileIDs := []*big.Int{big.NewInt(1)}
	datas := [][]byte{{}}
	intent, err := SignFollow(ctx, s, d, profileIDs, datas, big.NewInt(0), deadline)
	require.NoError(err)
	require.Equal(s.Address(), intent.Follower)

	digest, err := d.FollowDigest(profileIDs, datas, big.NewInt(0), deadline)
	require.NoError(err)
	recovered, err := Recover(digest, intent.Sig)
	require.NoError(err)
	require.Equal(s.Address(), recovered)

	// a spent nonce yields a different digest and so a different signer
	digest, err = d.FollowDigest(profileIDs, datas, big.NewInt(1), deadline)
	require.NoError(err)
	recovered, err = Recover(digest, intent.Sig)
	require.NoError(err)
	require.NotEqual(s.Address(), recovered)

	// a different verifying contract separates the domains
	other, err := NewDomain(123, common.HexToAddress("0x4c")).FollowDigest(profileIDs, datas, big.NewInt(0), deadline)
	require.NoError(err)
	require.NotEqual(digest, other)
}

func TestSignPublications(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	s, err := GenerateLocalSigner()
	require.NoError(err)
	d := NewDomain(123, hub)

	comment, err := SignComment(ctx, s, d, payload.CommentWithSigData{
		ProfileID:        big.NewInt(2),
		ContentURI:       "ipfs://comment",
		ProfileIDPointed: big.NewInt(1),
		PubIDPointed:     big.NewInt(1),
	}, big.NewInt(0), deadline)
	require.NoError(err)
	digest, err := d.CommentDigest(&comment, big.NewInt(0))
	require.NoError(err)
	recovered, err := Recover(digest, comment.Sig)
	require.NoError(err)
	require.Equal(s.Address(), recovered)

	mirror, err := SignMirror(ctx, s, d, payload.MirrorWithSigData{
		ProfileID:        big.NewInt(2),
		ProfileIDPointed: big.NewInt(1),
		PubIDPointed:     big.NewInt(1),
	}, big.NewInt(1), deadline)
	require.NoError(err)
	digest, err = d.MirrorDigest(&mirror, big.NewInt(1))
	require.NoError(err)
	recovered, err = Recover(digest, mirror.Sig)
	require.NoError(err)
	require.Equal(s.Address(), recovered)

	collect, err := SignCollect(ctx, s, d, big.NewInt(1), big.NewInt(1), nil, big.NewInt(2), deadline)
	require.NoError(err)
	require.Equal(s.Address(), collect.Collector)
	digest, err = d.CollectDigest(big.NewInt(1), big.NewInt(1), nil, big.NewInt(2), deadline)
	require.NoError(err)
	recovered, err = Recover(digest, collect.Sig)
	require.NoError(err)
	require.Equal(s.Address(), recovered)
}

func TestRecoverInvalid(t *testing.T) {
	require := require.New(t)

	sig := payload.EIP712Signature{V: 29, Deadline: deadline}
	_, err := Recover(common.Hash{}, sig)
	require.ErrorIs(err, ErrInvalidSignature)

	sig.V = 27
	_, err = Recover(common.Hash{}, sig)
	require.ErrorIs(err, ErrInvalidSignature)
}

func TestRemoteSigner(t *testing.T) {
	require := require.New(t)

	ctx := context.Background()
	local, err := GenerateLocalSigner()
	require.NoError(err)

	remote, err := NewRemoteSigner(ctx, &fakeClient{signer: local, addr: local.Address()})
	require.NoError(err)
	require.Equal(local.Address(), remote.Address())

	intent, err := SignFollow(ctx, remote, NewDomain(1, hub), []*big.Int{big.NewInt(1)}, [][]byte{{}}, big.NewInt(0), deadline)
	require.NoError(err)
	require.Equal(local.Address(), intent.Follower)

	// the remote holds a key for another account
	liar, err := NewRemoteSigner(ctx, &fakeClient{signer: local, addr: hub})
	require.NoError(err)
	_, err = liar.SignHash(ctx, common.Hash{1})
	require.ErrorIs(err, ErrInvalidSignature)

	errUnreachable := errors.New("unreachable")
	_, err = NewRemoteSigner(ctx, &fakeClient{err: errUnreachable})
	require.ErrorIs(err, errUnreachable)
}

func TestNewLocalSignerFromHex(t *testing.T) {
	require := require.New(t)

	s, err := NewLocalSignerFromHex("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(err)
	require.Equal(common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"), s.Address())

	_, err = NewLocalSignerFromHex("zz")
	require.Error(err)
}
