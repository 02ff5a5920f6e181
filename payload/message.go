// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
)

var (
	_ Payload = (*FollowMessage)(nil)
	_ Payload = (*ReferenceMessage)(nil)
	_ Payload = (*CollectMessage)(nil)
	_ Payload = (*MintMessage)(nil)
)

// FollowMessage is relayed from a proxy to the follow module.
// TokenContract and Threshold are the values claimed by the relayer and are
// not trusted by the receiver.
type FollowMessage struct {
	Sender        common.Address
	TokenContract common.Address
	ProfileID     *big.Int
	Threshold     *big.Int
	Intent        FollowWithSigData
}

// NewFollowMessage creates a new follow message
func NewFollowMessage(
	sender common.Address,
	tokenContract common.Address,
	profileID *big.Int,
	threshold *big.Int,
	intent FollowWithSigData,
) (*FollowMessage, error) {
	m := &FollowMessage{
		Sender:        sender,
		TokenContract: tokenContract,
		ProfileID:     profileID,
		Threshold:     threshold,
		Intent:        intent,
	}
	return m, m.Verify()
}

// Verify verifies the message is well formed
func (m *FollowMessage) Verify() error {
	if err := checkInts("follow message", m.ProfileID, m.Threshold); err != nil {
		return err
	}
	return m.Intent.Verify()
}

// Bytes returns the ABI encoding of the message
func (m *FollowMessage) Bytes() []byte {
	return mustPack("followMessage",
		m.Sender,
		m.TokenContract,
		orZero(m.ProfileID),
		orZero(m.Threshold),
		m.Intent.normalized(),
	)
}

// ParseFollowMessage parses a follow message from bytes
func ParseFollowMessage(b []byte) (*FollowMessage, error) {
	values, err := unpack("followMessage", b)
	if err != nil {
		return nil, err
	}
	m := &FollowMessage{
		Sender:        values[0].(common.Address),
		TokenContract: values[1].(common.Address),
		ProfileID:     values[2].(*big.Int),
		Threshold:     values[3].(*big.Int),
		Intent:        *abi.ConvertType(values[4], new(FollowWithSigData)).(*FollowWithSigData),
	}
	if err := canonical(m, b); err != nil {
		return nil, err
	}
	return m, nil
}

// ReferenceMessage is relayed from a proxy to the reference module. It
// carries either a comment or a mirror intent; exactly one is set.
type ReferenceMessage struct {
	Sender           common.Address
	TokenContract    common.Address
	ProfileID        *big.Int
	ProfileIDPointed *big.Int
	PubIDPointed     *big.Int
	Threshold        *big.Int

	Comment *CommentWithSigData
	Mirror  *MirrorWithSigData
}

// NewCommentMessage creates a reference message carrying a comment
func NewCommentMessage(
	sender common.Address,
	tokenContract common.Address,
	profileID *big.Int,
	profileIDPointed *big.Int,
	pubIDPointed *big.Int,
	threshold *big.Int,
	intent CommentWithSigData,
) (*ReferenceMessage, error) {
	m := &ReferenceMessage{
		Sender:           sender,
		TokenContract:    tokenContract,
		ProfileID:        profileID,
		ProfileIDPointed: profileIDPointed,
		PubIDPointed:     pubIDPointed,
		Threshold:        threshold,
		Comment:          &intent,
	}
	return m, m.Verify()
}

// NewMirrorMessage creates a reference message carrying a mirror
func NewMirrorMessage(
	sender common.Address,
	tokenContract common.Address,
	profileID *big.Int,
	profileIDPointed *big.Int,
	pubIDPointed *big.Int,
	threshold *big.Int,
	intent MirrorWithSigData,
) (*ReferenceMessage, error) {
	m := &ReferenceMessage{
		Sender:           sender,
		TokenContract:    tokenContract,
		ProfileID:        profileID,
		ProfileIDPointed: profileIDPointed,
		PubIDPointed:     pubIDPointed,
		Threshold:        threshold,
		Mirror:           &intent,
	}
	return m, m.Verify()
}

// IsComment reports whether the message carries a comment
func (m *ReferenceMessage) IsComment() bool {
	return m.Comment != nil
}

// Verify verifies the message is well formed
func (m *ReferenceMessage) Verify() error {
	if err := checkInts("reference message", m.ProfileID, m.ProfileIDPointed, m.PubIDPointed, m.Threshold); err != nil {
		return err
	}
	switch {
	case m.Comment != nil && m.Mirror != nil:
		return fmt.Errorf("%w: reference message carries both a comment and a mirror", ErrInvalidPayload)
	case m.Comment != nil:
		return m.Comment.Verify()
	case m.Mirror != nil:
		return m.Mirror.Verify()
	default:
		return fmt.Errorf("%w: reference message carries no intent", ErrInvalidPayload)
	}
}

// Bytes returns the ABI encoding of the message
func (m *ReferenceMessage) Bytes() []byte {
	var data []byte
	switch {
	case m.Comment != nil:
		data = m.Comment.Bytes()
	case m.Mirror != nil:
		data = m.Mirror.Bytes()
	}
	return mustPack("referenceMessage",
		m.IsComment(),
		m.Sender,
		m.TokenContract,
		orZero(m.ProfileID),
		orZero(m.ProfileIDPointed),
		orZero(m.PubIDPointed),
		orZero(m.Threshold),
		data,
	)
}

// ParseReferenceMessage parses a reference message from bytes
func ParseReferenceMessage(b []byte) (*ReferenceMessage, error) {
	values, err := unpack("referenceMessage", b)
	if err != nil {
		return nil, err
	}
	m := &ReferenceMessage{
		Sender:           values[1].(common.Address),
		TokenContract:    values[2].(common.Address),
		ProfileID:        values[3].(*big.Int),
		ProfileIDPointed: values[4].(*big.Int),
		PubIDPointed:     values[5].(*big.Int),
		Threshold:        values[6].(*big.Int),
	}
	data := values[7].([]byte)
	if values[0].(bool) {
		m.Comment, err = ParseCommentWithSigData(data)
	} else {
		m.Mirror, err = ParseMirrorWithSigData(data)
	}
	if err != nil {
		return nil, err
	}
	if err := canonical(m, b); err != nil {
		return nil, err
	}
	return m, nil
}

// CollectMessage is relayed from a proxy to the collect module
type CollectMessage struct {
	Sender        common.Address
	TokenContract common.Address
	ProfileID     *big.Int
	PubID         *big.Int
	Threshold     *big.Int
	Intent        CollectWithSigData
}

// NewCollectMessage creates a new collect message
func NewCollectMessage(
	sender common.Address,
	tokenContract common.Address,
	profileID *big.Int,
	pubID *big.Int,
	threshold *big.Int,
	intent CollectWithSigData,
) (*CollectMessage, error) {
	m := &CollectMessage{
		Sender:        sender,
		TokenContract: tokenContract,
		ProfileID:     profileID,
		PubID:         pubID,
		Threshold:     threshold,
		Intent:        intent,
	}
	return m, m.Verify()
}

// Verify verifies the message is well formed
func (m *CollectMessage) Verify() error {
	if err := checkInts("collect message", m.ProfileID, m.PubID, m.Threshold); err != nil {
		return err
	}
	return m.Intent.Verify()
}

// Bytes returns the ABI encoding of the message
func (m *CollectMessage) Bytes() []byte {
	return mustPack("collectMessage",
		m.Sender,
		m.TokenContract,
		orZero(m.ProfileID),
		orZero(m.PubID),
		orZero(m.Threshold),
		m.Intent.normalized(),
	)
}

// ParseCollectMessage parses a collect message from bytes
func ParseCollectMessage(b []byte) (*CollectMessage, error) {
	values, err := unpack("collectMessage", b)
	if err != nil {
		return nil, err
	}
	m := &CollectMessage{
		Sender:        values[0].(common.Address),
		TokenContract: values[1].(common.Address),
		ProfileID:     values[2].(*big.Int),
		PubID:         values[3].(*big.Int),
		Threshold:     values[4].(*big.Int),
		Intent:        *abi.ConvertType(values[5], new(CollectWithSigData)).(*CollectWithSigData),
	}
	if err := canonical(m, b); err != nil {
		return nil, err
	}
	return m, nil
}

// MintMessage instructs a destination soulbound token contract to mint
type MintMessage struct {
	To           common.Address
	CollectionID *big.Int
	TokenID      *big.Int
	URI          string
}

// NewMintMessage creates a new mint message
func NewMintMessage(to common.Address, collectionID, tokenID *big.Int, uri string) (*MintMessage, error) {
	m := &MintMessage{
		To:           to,
		CollectionID: collectionID,
		TokenID:      tokenID,
		URI:          uri,
	}
	return m, m.Verify()
}

// Verify verifies the message is well formed
func (m *MintMessage) Verify() error {
	if IsZeroAddress(m.To) {
		return fmt.Errorf("%w: mint to the zero address", ErrInvalidPayload)
	}
	return checkInts("mint message", m.CollectionID, m.TokenID)
}

// Bytes returns the ABI encoding of the message
func (m *MintMessage) Bytes() []byte {
	return mustPack("mintMessage", m.To, orZero(m.CollectionID), orZero(m.TokenID), m.URI)
}

// ParseMintMessage parses a mint message from bytes
func ParseMintMessage(b []byte) (*MintMessage, error) {
	values, err := unpack("mintMessage", b)
	if err != nil {
		return nil, err
	}
	m := &MintMessage{
		To:           values[0].(common.Address),
		CollectionID: values[1].(*big.Int),
		TokenID:      values[2].(*big.Int),
		URI:          values[3].(string),
	}
	if err := canonical(m, b); err != nil {
		return nil, err
	}
	return m, nil
}
