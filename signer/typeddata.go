// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/math"
	"github.com/luxfi/geth/signer/core/apitypes"

	"github.com/luxfi/lzgate/payload"
)

const (
	DomainName    = "Lens Protocol Profiles"
	DomainVersion = "1"

	followWithSig  = "FollowWithSig"
	commentWithSig = "CommentWithSig"
	mirrorWithSig  = "MirrorWithSig"
	collectWithSig = "CollectWithSig"
)

var types = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	followWithSig: {
		{Name: "profileIds", Type: "uint256[]"},
		{Name: "datas", Type: "bytes[]"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
	commentWithSig: {
		{Name: "profileId", Type: "uint256"},
		{Name: "contentURI", Type: "string"},
		{Name: "profileIdPointed", Type: "uint256"},
		{Name: "pubIdPointed", Type: "uint256"},
		{Name: "referenceModuleData", Type: "bytes"},
		{Name: "collectModule", Type: "address"},
		{Name: "collectModuleInitData", Type: "bytes"},
		{Name: "referenceModule", Type: "address"},
		{Name: "referenceModuleInitData", Type: "bytes"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
	mirrorWithSig: {
		{Name: "profileId", Type: "uint256"},
		{Name: "profileIdPointed", Type: "uint256"},
		{Name: "pubIdPointed", Type: "uint256"},
		{Name: "referenceModuleData", Type: "bytes"},
		{Name: "referenceModule", Type: "address"},
		{Name: "referenceModuleInitData", Type: "bytes"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
	collectWithSig: {
		{Name: "profileId", Type: "uint256"},
		{Name: "pubId", Type: "uint256"},
		{Name: "data", Type: "bytes"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// Domain is the EIP-712 domain of the platform contract signatures are
// addressed to
type Domain struct {
	ChainID           uint64
	VerifyingContract common.Address
}

// NewDomain returns the platform domain on chainID
func NewDomain(chainID uint64, hub common.Address) Domain {
	return Domain{ChainID: chainID, VerifyingContract: hub}
}

func (d Domain) typedDataDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainId:           math.NewHexOrDecimal256(int64(d.ChainID)),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

func (d Domain) hash(primaryType string, message apitypes.TypedDataMessage) (common.Hash, error) {
	digest, _, err := apitypes.TypedDataAndHash(apitypes.TypedData{
		Types:       types,
		PrimaryType: primaryType,
		Domain:      d.typedDataDomain(),
		Message:     message,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash %s: %w", primaryType, err)
	}
	return common.BytesToHash(digest), nil
}

func bigs(xs []*big.Int) []interface{} {
	out := make([]interface{}, len(xs))
	for i, x := range xs {
		out[i] = bigString(x)
	}
	return out
}

func bytesList(bs [][]byte) []interface{} {
	out := make([]interface{}, len(bs))
	for i, b := range bs {
		out[i] = nonNil(b)
	}
	return out
}

func bigString(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// FollowDigest returns the digest a follower signs to follow profileIDs
func (d Domain) FollowDigest(profileIDs []*big.Int, datas [][]byte, nonce, deadline *big.Int) (common.Hash, error) {
	return d.hash(followWithSig, apitypes.TypedDataMessage{
		"profileIds": bigs(profileIDs),
		"datas":      bytesList(datas),
		"nonce":      bigString(nonce),
		"deadline":   bigString(deadline),
	})
}

// CommentDigest returns the digest a profile owner signs to comment. The
// deadline is taken from c.Sig.
func (d Domain) CommentDigest(c *payload.CommentWithSigData, nonce *big.Int) (common.Hash, error) {
	return d.hash(commentWithSig, apitypes.TypedDataMessage{
		"profileId":               bigString(c.ProfileID),
		"contentURI":              c.ContentURI,
		"profileIdPointed":        bigString(c.ProfileIDPointed),
		"pubIdPointed":            bigString(c.PubIDPointed),
		"referenceModuleData":     nonNil(c.ReferenceModuleData),
		"collectModule":           c.CollectModule.Hex(),
		"collectModuleInitData":   nonNil(c.CollectModuleInitData),
		"referenceModule":         c.ReferenceModule.Hex(),
		"referenceModuleInitData": nonNil(c.ReferenceModuleInitData),
		"nonce":                   bigString(nonce),
		"deadline":                bigString(c.Sig.Deadline),
	})
}

// MirrorDigest returns the digest a profile owner signs to mirror. The
// deadline is taken from m.Sig.
func (d Domain) MirrorDigest(m *payload.MirrorWithSigData, nonce *big.Int) (common.Hash, error) {
	return d.hash(mirrorWithSig, apitypes.TypedDataMessage{
		"profileId":               bigString(m.ProfileID),
		"profileIdPointed":        bigString(m.ProfileIDPointed),
		"pubIdPointed":            bigString(m.PubIDPointed),
		"referenceModuleData":     nonNil(m.ReferenceModuleData),
		"referenceModule":         m.ReferenceModule.Hex(),
		"referenceModuleInitData": nonNil(m.ReferenceModuleInitData),
		"nonce":                   bigString(nonce),
		"deadline":                bigString(m.Sig.Deadline),
	})
}

// CollectDigest returns the digest a collector signs to collect a publication
func (d Domain) CollectDigest(profileID, pubID *big.Int, data []byte, nonce, deadline *big.Int) (common.Hash, error) {
	return d.hash(collectWithSig, apitypes.TypedDataMessage{
		"profileId": bigString(profileID),
		"pubId":     bigString(pubID),
		"data":      nonNil(data),
		"nonce":     bigString(nonce),
		"deadline":  bigString(deadline),
	})
}
