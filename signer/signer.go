// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package signer builds and signs the typed-data intents the platform
// executes on a user's behalf.
package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lzgate/payload"
)

var ErrInvalidSignature = errors.New("invalid signature")

// Signer is an interface for signing intent digests
type Signer interface {
	// Address returns the account the signer signs for
	Address() common.Address

	// SignHash signs a 32 byte digest, returning r || s || v
	SignHash(ctx context.Context, digest common.Hash) ([]byte, error)
}

var (
	_ Signer = (*LocalSigner)(nil)
	_ Signer = (*RemoteSigner)(nil)
)

// LocalSigner signs digests with a local secp256k1 key
type LocalSigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewLocalSigner creates a new local signer
func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key:  key,
		addr: common.Address(crypto.PubkeyToAddress(key.PublicKey)),
	}
}

// NewLocalSignerFromHex creates a local signer from a hex encoded key
func NewLocalSignerFromHex(hexKey string) (*LocalSigner, error) {
	if len(hexKey) > 1 && hexKey[:2] == "0x" {
		hexKey = hexKey[2:]
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signer key: %w", err)
	}
	return NewLocalSigner(key), nil
}

// GenerateLocalSigner creates a local signer with a fresh key
func GenerateLocalSigner() (*LocalSigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return NewLocalSigner(key), nil
}

// Address implements Signer
func (s *LocalSigner) Address() common.Address {
	return s.addr
}

// SignHash implements Signer
func (s *LocalSigner) SignHash(_ context.Context, digest common.Hash) ([]byte, error) {
	return crypto.Sign(digest[:], s.key)
}

// SignerClient is an interface for remote signing
type SignerClient interface {
	// Sign signs a digest remotely
	Sign(ctx context.Context, digest []byte) ([]byte, error)

	// Address gets the remote account
	Address(ctx context.Context) (common.Address, error)
}

// RemoteSigner signs digests via a remote key holder
type RemoteSigner struct {
	client SignerClient
	addr   common.Address
}

// NewRemoteSigner creates a new remote signer
func NewRemoteSigner(ctx context.Context, client SignerClient) (*RemoteSigner, error) {
	addr, err := client.Address(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return &RemoteSigner{
		client: client,
		addr:   addr,
	}, nil
}

// Address implements Signer
func (s *RemoteSigner) Address() common.Address {
	return s.addr
}

// SignHash implements Signer. The returned signature is checked against the
// remote account before it is handed out.
func (s *RemoteSigner) SignHash(ctx context.Context, digest common.Hash) ([]byte, error) {
	sig, err := s.client.Sign(ctx, digest[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign remotely: %w", err)
	}
	bundle, err := payload.NewEIP712Signature(sig, new(big.Int))
	if err != nil {
		return nil, err
	}
	signer, err := Recover(digest, bundle)
	if err != nil {
		return nil, err
	}
	if signer != s.addr {
		return nil, fmt.Errorf("%w: signed by %s, expected %s", ErrInvalidSignature, signer, s.addr)
	}
	return bundle.RecoveryBytes(), nil
}

// Recover returns the account that produced sig over digest
func Recover(digest common.Hash, sig payload.EIP712Signature) (common.Address, error) {
	if sig.V != 27 && sig.V != 28 {
		return common.Address{}, fmt.Errorf("%w: v %d", ErrInvalidSignature, sig.V)
	}
	pub, err := crypto.SigToPub(digest[:], sig.RecoveryBytes())
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return common.Address(crypto.PubkeyToAddress(*pub)), nil
}

func sign(ctx context.Context, s Signer, digest common.Hash, deadline *big.Int) (payload.EIP712Signature, error) {
	raw, err := s.SignHash(ctx, digest)
	if err != nil {
		return payload.EIP712Signature{}, err
	}
	return payload.NewEIP712Signature(raw, deadline)
}

// SignFollow signs a follow of profileIDs by s
func SignFollow(
	ctx context.Context,
	s Signer,
	d Domain,
	profileIDs []*big.Int,
	datas [][]byte,
	nonce *big.Int,
	deadline *big.Int,
) (payload.FollowWithSigData, error) {
	digest, err := d.FollowDigest(profileIDs, datas, nonce, deadline)
	if err != nil {
		return payload.FollowWithSigData{}, err
	}
	sig, err := sign(ctx, s, digest, deadline)
	if err != nil {
		return payload.FollowWithSigData{}, err
	}
	return payload.FollowWithSigData{
		Follower:   s.Address(),
		ProfileIDs: profileIDs,
		Datas:      datas,
		Sig:        sig,
	}, nil
}

// SignComment signs c, filling in its signature
func SignComment(
	ctx context.Context,
	s Signer,
	d Domain,
	c payload.CommentWithSigData,
	nonce *big.Int,
	deadline *big.Int,
) (payload.CommentWithSigData, error) {
	c.Sig.Deadline = deadline
	digest, err := d.CommentDigest(&c, nonce)
	if err != nil {
		return payload.CommentWithSigData{}, err
	}
	c.Sig, err = sign(ctx, s, digest, deadline)
	return c, err
}

// SignMirror signs m, filling in its signature
func SignMirror(
	ctx context.Context,
	s Signer,
	d Domain,
	m payload.MirrorWithSigData,
	nonce *big.Int,
	deadline *big.Int,
) (payload.MirrorWithSigData, error) {
	m.Sig.Deadline = deadline
	digest, err := d.MirrorDigest(&m, nonce)
	if err != nil {
		return payload.MirrorWithSigData{}, err
	}
	m.Sig, err = sign(ctx, s, digest, deadline)
	return m, err
}

// SignCollect signs a collect of publication pubID of profileID by s
func SignCollect(
	ctx context.Context,
	s Signer,
	d Domain,
	profileID *big.Int,
	pubID *big.Int,
	data []byte,
	nonce *big.Int,
	deadline *big.Int,
) (payload.CollectWithSigData, error) {
	digest, err := d.CollectDigest(profileID, pubID, data, nonce, deadline)
	if err != nil {
		return payload.CollectWithSigData{}, err
	}
	sig, err := sign(ctx, s, digest, deadline)
	if err != nil {
		return payload.CollectWithSigData{}, err
	}
	return payload.CollectWithSigData{
		Collector: s.Address(),
		ProfileID: profileID,
		PubID:     pubID,
		Data:      data,
		Sig:       sig,
	}, nil
}
