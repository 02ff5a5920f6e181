// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
)

// SignatureLength is the length of an r || s || v signature
const SignatureLength = 65

// EIP712Signature is the delegated signature bundle of a signed intent
type EIP712Signature struct {
	V        uint8    `abi:"v"`
	R        [32]byte `abi:"r"`
	S        [32]byte `abi:"s"`
	Deadline *big.Int `abi:"deadline"`
}

// NewEIP712Signature splits a 65 byte r || s || v signature. v may be given
// as 0/1 or 27/28.
func NewEIP712Signature(sig []byte, deadline *big.Int) (EIP712Signature, error) {
	if len(sig) != SignatureLength {
		return EIP712Signature{}, fmt.Errorf("%w: signature length %d", ErrInvalidPayload, len(sig))
	}
	s := EIP712Signature{
		V:        sig[64],
		Deadline: deadline,
	}
	if s.V < 27 {
		s.V += 27
	}
	copy(s.R[:], sig[:32])
	copy(s.S[:], sig[32:64])
	return s, s.Verify()
}

// Verify verifies the signature bundle is well formed. Whether it recovers
// to the right signer is for the platform to decide.
func (s EIP712Signature) Verify() error {
	return checkInts("signature", s.Deadline)
}

// RecoveryBytes returns r || s || v with v in {0, 1}, the layout expected by
// public key recovery.
func (s EIP712Signature) RecoveryBytes() []byte {
	b := make([]byte, SignatureLength)
	copy(b, s.R[:])
	copy(b[32:], s.S[:])
	b[64] = s.V
	if b[64] >= 27 {
		b[64] -= 27
	}
	return b
}

func (s EIP712Signature) normalized() EIP712Signature {
	s.Deadline = orZero(s.Deadline)
	return s
}

// FollowWithSigData is a signed follow of one or more profiles
type FollowWithSigData struct {
	Follower   common.Address  `abi:"follower"`
	ProfileIDs []*big.Int      `abi:"profileIds"`
	Datas      [][]byte        `abi:"datas"`
	Sig        EIP712Signature `abi:"sig"`
}

// Verify verifies the intent is well formed
func (d *FollowWithSigData) Verify() error {
	if err := checkInts("follow", d.ProfileIDs...); err != nil {
		return err
	}
	return d.Sig.Verify()
}

func (d FollowWithSigData) normalized() FollowWithSigData {
	d.Sig = d.Sig.normalized()
	if d.ProfileIDs == nil {
		d.ProfileIDs = []*big.Int{}
	}
	if d.Datas == nil {
		d.Datas = [][]byte{}
	}
	return d
}

// CommentWithSigData is a signed comment on a publication
type CommentWithSigData struct {
	ProfileID               *big.Int        `abi:"profileId"`
	ContentURI              string          `abi:"contentURI"`
	ProfileIDPointed        *big.Int        `abi:"profileIdPointed"`
	PubIDPointed            *big.Int        `abi:"pubIdPointed"`
	ReferenceModuleData     []byte          `abi:"referenceModuleData"`
	CollectModule           common.Address  `abi:"collectModule"`
	CollectModuleInitData   []byte          `abi:"collectModuleInitData"`
	ReferenceModule         common.Address  `abi:"referenceModule"`
	ReferenceModuleInitData []byte          `abi:"referenceModuleInitData"`
	Sig                     EIP712Signature `abi:"sig"`
}

// Verify verifies the intent is well formed
func (d *CommentWithSigData) Verify() error {
	if err := checkInts("comment", d.ProfileID, d.ProfileIDPointed, d.PubIDPointed); err != nil {
		return err
	}
	return d.Sig.Verify()
}

// Bytes returns the ABI encoding of the intent alone
func (d *CommentWithSigData) Bytes() []byte {
	return mustPack("commentData", d.normalized())
}

func (d CommentWithSigData) normalized() CommentWithSigData {
	d.ProfileID = orZero(d.ProfileID)
	d.ProfileIDPointed = orZero(d.ProfileIDPointed)
	d.PubIDPointed = orZero(d.PubIDPointed)
	d.Sig = d.Sig.normalized()
	return d
}

// ParseCommentWithSigData parses the ABI encoding of a comment intent
func ParseCommentWithSigData(b []byte) (*CommentWithSigData, error) {
	values, err := unpack("commentData", b)
	if err != nil {
		return nil, err
	}
	d := *abi.ConvertType(values[0], new(CommentWithSigData)).(*CommentWithSigData)
	if err := canonical(&d, b); err != nil {
		return nil, err
	}
	return &d, nil
}

// MirrorWithSigData is a signed mirror of a publication
type MirrorWithSigData struct {
	ProfileID               *big.Int        `abi:"profileId"`
	ProfileIDPointed        *big.Int        `abi:"profileIdPointed"`
	PubIDPointed            *big.Int        `abi:"pubIdPointed"`
	ReferenceModuleData     []byte          `abi:"referenceModuleData"`
	ReferenceModule         common.Address  `abi:"referenceModule"`
	ReferenceModuleInitData []byte          `abi:"referenceModuleInitData"`
	Sig                     EIP712Signature `abi:"sig"`
}

// Verify verifies the intent is well formed
func (d *MirrorWithSigData) Verify() error {
	if err := checkInts("mirror", d.ProfileID, d.ProfileIDPointed, d.PubIDPointed); err != nil {
		return err
	}
	return d.Sig.Verify()
}

// Bytes returns the ABI encoding of the intent alone
func (d *MirrorWithSigData) Bytes() []byte {
	return mustPack("mirrorData", d.normalized())
}

func (d MirrorWithSigData) normalized() MirrorWithSigData {
	d.ProfileID = orZero(d.ProfileID)
	d.ProfileIDPointed = orZero(d.ProfileIDPointed)
	d.PubIDPointed = orZero(d.PubIDPointed)
	d.Sig = d.Sig.normalized()
	return d
}

// ParseMirrorWithSigData parses the ABI encoding of a mirror intent
func ParseMirrorWithSigData(b []byte) (*MirrorWithSigData, error) {
	values, err := unpack("mirrorData", b)
	if err != nil {
		return nil, err
	}
	d := *abi.ConvertType(values[0], new(MirrorWithSigData)).(*MirrorWithSigData)
	if err := canonical(&d, b); err != nil {
		return nil, err
	}
	return &d, nil
}

// CollectWithSigData is a signed collect of a publication
type CollectWithSigData struct {
	Collector common.Address  `abi:"collector"`
	ProfileID *big.Int        `abi:"profileId"`
	PubID     *big.Int        `abi:"pubId"`
	Data      []byte          `abi:"data"`
	Sig       EIP712Signature `abi:"sig"`
}

// Verify verifies the intent is well formed
func (d *CollectWithSigData) Verify() error {
	if err := checkInts("collect", d.ProfileID, d.PubID); err != nil {
		return err
	}
	return d.Sig.Verify()
}

func (d CollectWithSigData) normalized() CollectWithSigData {
	d.ProfileID = orZero(d.ProfileID)
	d.PubID = orZero(d.PubID)
	d.Sig = d.Sig.normalized()
	return d
}
