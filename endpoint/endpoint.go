// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package endpoint simulates the messaging transport: one endpoint per
// chain, ordered delivery per channel, fee estimation, and the stored
// payload that blocks a channel whose receiver failed.
package endpoint

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/luxfi/lzgate"
	"github.com/luxfi/lzgate/chain"
	"github.com/luxfi/lzgate/metrics"
	"github.com/luxfi/lzgate/payload"
)

var (
	ErrDestinationNotFound = lzgate.NewError(lzgate.KindTransport, "DestinationNotFound")
	ErrNotEnoughFees       = lzgate.NewError(lzgate.KindTransport, "NotEnoughFees")
	ErrWrongNonce          = lzgate.NewError(lzgate.KindTransport, "WrongNonce")
	ErrInvalidCaller       = lzgate.NewError(lzgate.KindTransport, "InvalidCaller")
	ErrNoStoredPayload     = lzgate.NewError(lzgate.KindTransport, "NoStoredPayload")
	ErrInvalidPayload      = lzgate.NewError(lzgate.KindTransport, "InvalidPayload")
	ErrInvalidAdapter      = lzgate.NewError(lzgate.KindTransport, "InvalidAdapterParams")
	ErrNoReceiver          = lzgate.NewError(lzgate.KindTransport, "NoReceiver")
)

// FaultInjector may fail a delivery before the receiver sees it
type FaultInjector func(pkt *lzgate.Packet) error

// Option configures an Endpoint
type Option func(*Endpoint)

// WithFees replaces the fee model
func WithFees(fees FeeConfig) Option {
	return func(e *Endpoint) {
		e.fees = fees
	}
}

// WithQueuedDelivery keeps sent packets pending until DeliverNext or Flush
// is called, instead of delivering them within Send.
func WithQueuedDelivery() Option {
	return func(e *Endpoint) {
		e.autoDeliver = false
	}
}

// WithFaultInjector installs a hook that can fail deliveries
func WithFaultInjector(f FaultInjector) Option {
	return func(e *Endpoint) {
		e.fault = f
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Endpoint) {
		if log != nil {
			e.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Endpoint) {
		e.metrics = m
	}
}

// StoredPayload is the delivery blocking a channel
type StoredPayload struct {
	Packet      *lzgate.Packet
	PayloadHash common.Hash
	Reason      string
}

// outboundKey is a channel seen from the sending side
type outboundKey struct {
	dstChainID uint16
	srcUA      common.Address
	dstUA      common.Address
}

var _ lzgate.Endpoint = (*Endpoint)(nil)

// Endpoint is the transport contract of one chain
type Endpoint struct {
	chain.Base
	chain.NoFallback

	chainID     uint16
	network     *Network
	fees        FeeConfig
	autoDeliver bool
	fault       FaultInjector

	log     *zap.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	outbound map[outboundKey]uint64
	inbound  map[lzgate.PathKey]uint64
	stored   map[lzgate.PathKey]*StoredPayload
	blocked  map[lzgate.PathKey][]*lzgate.Packet
	inflight map[lzgate.PathKey]bool
	pending  []*lzgate.Packet
}

// New creates an endpoint for c. It sends nothing until it is deployed and
// registered, see Deploy.
func New(c *chain.Chain, network *Network, opts ...Option) *Endpoint {
	e := &Endpoint{
		chainID:     c.ID(),
		network:     network,
		fees:        DefaultFeeConfig(),
		autoDeliver: true,
		log:         zap.NewNop(),
		outbound:    make(map[outboundKey]uint64),
		inbound:     make(map[lzgate.PathKey]uint64),
		stored:      make(map[lzgate.PathKey]*StoredPayload),
		blocked:     make(map[lzgate.PathKey][]*lzgate.Packet),
		inflight:    make(map[lzgate.PathKey]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deploy creates an endpoint, deploys it on c from deployer and registers it
// on network
func Deploy(c *chain.Chain, deployer common.Address, network *Network, opts ...Option) (*Endpoint, error) {
	e := New(c, network, opts...)
	if _, err := c.Deploy(deployer, e); err != nil {
		return nil, err
	}
	if err := network.Register(e); err != nil {
		return nil, err
	}
	return e, nil
}

// ChainID implements lzgate.Endpoint
func (e *Endpoint) ChainID() uint16 { return e.chainID }

// EstimateFees implements lzgate.Endpoint
func (e *Endpoint) EstimateFees(dstChainID uint16, _ common.Address, msg []byte, payInZRO bool, adapterParams []byte) (*uint256.Int, *uint256.Int, error) {
	params, err := payload.ParseAdapterParams(adapterParams)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidAdapter, err)
	}
	nativeFee, zroFee := e.fees.estimate(params.Gas, len(msg), payInZRO)
	return nativeFee, zroFee, nil
}

// Send implements lzgate.Endpoint. msg.Sender is the sending application.
func (e *Endpoint) Send(
	ctx context.Context,
	msg chain.Msg,
	dstChainID uint16,
	destination []byte,
	msgPayload []byte,
	refund common.Address,
	zroPaymentAddress common.Address,
	adapterParams []byte,
) error {
	dstAddress, _, err := lzgate.SplitPath(destination)
	if err != nil {
		return err
	}
	dst, ok := e.network.Endpoint(dstChainID)
	if !ok {
		return fmt.Errorf("%w: chain %d", ErrDestinationNotFound, dstChainID)
	}
	if len(msgPayload) > lzgate.MaxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d", lzgate.ErrInvalidPacket, len(msgPayload), lzgate.MaxPayloadSize)
	}
	nativeFee, _, err := e.EstimateFees(dstChainID, msg.Sender, msgPayload, !lzgate.IsZeroAddress(zroPaymentAddress), adapterParams)
	if err != nil {
		return err
	}
	value := msg.ValueOrZero()
	if value.Lt(nativeFee) {
		return fmt.Errorf("%w: sent %s, need %s", ErrNotEnoughFees, value.Dec(), nativeFee.Dec())
	}

	e.mu.Lock()
	key := outboundKey{dstChainID: dstChainID, srcUA: msg.Sender, dstUA: dstAddress}
	e.outbound[key]++
	nonce := e.outbound[key]
	e.mu.Unlock()

	pkt, err := lzgate.NewPacket(e.chainID, msg.Sender, dstChainID, dstAddress, nonce, slices.Clone(msgPayload))
	if err != nil {
		e.revertSend(key, nonce, msg.Sender, nil)
		return err
	}
	c := e.Chain()
	if err := c.Pay(msg, e.Address()); err != nil {
		e.revertSend(key, nonce, msg.Sender, nil)
		return err
	}
	if err := dst.accept(ctx, pkt); err != nil {
		e.revertSend(key, nonce, msg.Sender, value)
		return err
	}
	if excess := new(uint256.Int).Sub(value, nativeFee); !excess.IsZero() {
		if err := c.Transfer(e.Address(), refund, excess); err != nil {
			return err
		}
	}

	e.Emit(PacketSent{
		DstChainID: dstChainID,
		SrcAddress: msg.Sender,
		DstAddress: dstAddress,
		Nonce:      nonce,
		NativeFee:  nativeFee,
	})
	e.metrics.PacketSent(e.chainID, dstChainID)
	e.log.Debug("packet sent",
		zap.Stringer("packetID", pkt.ID()),
		zap.Uint16("srcChainID", e.chainID),
		zap.Uint16("dstChainID", dstChainID),
		zap.Stringer("ua", msg.Sender),
		zap.Stringer("dstUA", dstAddress),
		zap.Uint64("nonce", nonce),
		zap.String("nativeFee", nativeFee.Dec()),
	)
	return nil
}

// revertSend releases the nonce of a failed send and returns value, if any,
// to sender. The nonce is only released if no later send used the path.
func (e *Endpoint) revertSend(key outboundKey, nonce uint64, sender common.Address, value *uint256.Int) {
	e.mu.Lock()
	if e.outbound[key] == nonce {
		e.outbound[key] = nonce - 1
	}
	e.mu.Unlock()
	if value == nil || value.IsZero() {
		return
	}
	if err := e.Chain().Transfer(e.Address(), sender, value); err != nil {
		e.log.Error("failed to return fee of refused send",
			zap.Stringer("ua", sender),
			zap.String("value", value.Dec()),
			zap.Error(err),
		)
	}
}

// accept takes a packet off the wire
func (e *Endpoint) accept(ctx context.Context, pkt *lzgate.Packet) error {
	if e.autoDeliver {
		return e.ReceivePayload(ctx, pkt)
	}
	e.mu.Lock()
	e.pending = append(e.pending, pkt)
	e.mu.Unlock()
	return nil
}

// Pending returns the number of packets waiting for DeliverNext
func (e *Endpoint) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// DeliverNext delivers the oldest pending packet. It reports false when
// nothing was pending.
func (e *Endpoint) DeliverNext(ctx context.Context) (bool, error) {
	e.mu.Lock()
	if len(e.pending) == 0 {
		e.mu.Unlock()
		return false, nil
	}
	pkt := e.pending[0]
	e.pending = e.pending[1:]
	e.mu.Unlock()
	return true, e.ReceivePayload(ctx, pkt)
}

// Flush delivers pending packets until none are left
func (e *Endpoint) Flush(ctx context.Context) (int, error) {
	delivered := 0
	for {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		ok, err := e.DeliverNext(ctx)
		if err != nil {
			return delivered, err
		}
		if !ok {
			return delivered, nil
		}
		delivered++
	}
}

// ReceivePayload is the inbound entry point of the endpoint. Packets of a
// channel must arrive in nonce order. A packet arriving on a blocked channel
// is queued behind the stored payload.
func (e *Endpoint) ReceivePayload(ctx context.Context, pkt *lzgate.Packet) error {
	if pkt.DstChainID != e.chainID {
		return fmt.Errorf("%w: packet for chain %d delivered to %d", lzgate.ErrInvalidPacket, pkt.DstChainID, e.chainID)
	}
	key := lzgate.NewPathKey(pkt.SrcChainID, pkt.SrcPath())

	e.mu.Lock()
	if expected := e.inbound[key] + 1; pkt.Nonce != expected {
		e.mu.Unlock()
		return fmt.Errorf("%w: got %d, expected %d", ErrWrongNonce, pkt.Nonce, expected)
	}
	e.inbound[key]++
	if e.stored[key] != nil || e.inflight[key] {
		e.blocked[key] = append(e.blocked[key], pkt)
		e.mu.Unlock()
		return nil
	}
	e.inflight[key] = true
	e.mu.Unlock()

	e.drain(ctx, key, pkt)
	return nil
}

// drain delivers pkt and then the packets queued behind it on the channel,
// stopping at the first failure. The channel must be marked in flight.
func (e *Endpoint) drain(ctx context.Context, key lzgate.PathKey, pkt *lzgate.Packet) {
	for pkt != nil {
		err := e.deliver(ctx, pkt)

		e.mu.Lock()
		if err != nil {
			e.stored[key] = &StoredPayload{
				Packet:      pkt,
				PayloadHash: common.Keccak256Hash(pkt.Payload),
				Reason:      lzgate.Reason(err),
			}
			delete(e.inflight, key)
			e.mu.Unlock()
			e.onStored(pkt, err)
			return
		}
		queue := e.blocked[key]
		if len(queue) == 0 {
			delete(e.blocked, key)
			delete(e.inflight, key)
			e.mu.Unlock()
			return
		}
		pkt = queue[0]
		e.blocked[key] = queue[1:]
		e.mu.Unlock()
	}
}

// deliver calls the receiver of pkt
func (e *Endpoint) deliver(ctx context.Context, pkt *lzgate.Packet) error {
	if e.fault != nil {
		if err := e.fault(pkt); err != nil {
			return err
		}
	}
	contract, ok := e.Chain().Contract(pkt.DstAddress)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoReceiver, pkt.DstAddress)
	}
	receiver, ok := contract.(lzgate.Receiver)
	if !ok {
		return fmt.Errorf("%w: %s does not receive", ErrNoReceiver, pkt.DstAddress)
	}
	if err := receiver.LzReceive(ctx, e.Address(), pkt.SrcChainID, pkt.SrcPath(), pkt.Nonce, pkt.Payload); err != nil {
		return err
	}

	e.Emit(PacketReceived{
		SrcChainID:  pkt.SrcChainID,
		SrcAddress:  pkt.SrcPath(),
		DstAddress:  pkt.DstAddress,
		Nonce:       pkt.Nonce,
		PayloadHash: common.Keccak256Hash(pkt.Payload),
	})
	e.metrics.PacketDelivered(pkt.SrcChainID, e.chainID)
	return nil
}

func (e *Endpoint) onStored(pkt *lzgate.Packet, err error) {
	reason := lzgate.Reason(err)
	e.Emit(PayloadStored{
		SrcChainID: pkt.SrcChainID,
		SrcAddress: pkt.SrcPath(),
		DstAddress: pkt.DstAddress,
		Nonce:      pkt.Nonce,
		Payload:    pkt.Payload,
		Reason:     reason,
	})
	e.metrics.PayloadStored(pkt.SrcChainID, e.chainID, reason)
	e.log.Warn("payload stored, channel blocked",
		zap.Stringer("packetID", pkt.ID()),
		zap.Uint16("srcChainID", pkt.SrcChainID),
		zap.Stringer("dstAddress", pkt.DstAddress),
		zap.Uint64("nonce", pkt.Nonce),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

// claim takes the stored payload of a channel for retry or resume, marking
// the channel in flight
func (e *Endpoint) claim(key lzgate.PathKey) (*StoredPayload, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sp := e.stored[key]
	if sp == nil {
		return nil, ErrNoStoredPayload
	}
	if e.inflight[key] {
		return nil, fmt.Errorf("%w: channel busy", ErrNoStoredPayload)
	}
	e.inflight[key] = true
	return sp, nil
}

func (e *Endpoint) release(key lzgate.PathKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, key)
}

// resume clears the stored payload and delivers the queued packets
func (e *Endpoint) resume(ctx context.Context, key lzgate.PathKey) {
	e.mu.Lock()
	delete(e.stored, key)
	var next *lzgate.Packet
	if queue := e.blocked[key]; len(queue) > 0 {
		next = queue[0]
		e.blocked[key] = queue[1:]
	} else {
		delete(e.inflight, key)
	}
	e.mu.Unlock()
	e.metrics.PayloadCleared(e.chainID)

	if next != nil {
		e.drain(ctx, key, next)
	}
}

// RetryPayload implements lzgate.Endpoint. Anyone holding the stored bytes
// may retry; on failure the channel stays blocked.
func (e *Endpoint) RetryPayload(ctx context.Context, srcChainID uint16, srcPath []byte, msg []byte) error {
	key := lzgate.NewPathKey(srcChainID, srcPath)
	sp, err := e.claim(key)
	if err != nil {
		return err
	}
	if common.Keccak256Hash(msg) != sp.PayloadHash || !bytes.Equal(msg, sp.Packet.Payload) {
		e.release(key)
		return ErrInvalidPayload
	}
	err = e.deliver(ctx, sp.Packet)
	e.metrics.Retried(e.chainID, "payload", err)
	if err != nil {
		e.release(key)
		return err
	}

	e.Emit(PayloadCleared{
		SrcChainID: srcChainID,
		SrcAddress: slices.Clone(srcPath),
		DstAddress: sp.Packet.DstAddress,
		Nonce:      sp.Packet.Nonce,
	})
	e.resume(ctx, key)
	return nil
}

// ForceResumeReceive implements lzgate.Endpoint
func (e *Endpoint) ForceResumeReceive(ctx context.Context, caller common.Address, srcChainID uint16, srcPath []byte) error {
	key := lzgate.NewPathKey(srcChainID, srcPath)
	sp, err := e.claim(key)
	if err != nil {
		return err
	}
	if caller != sp.Packet.DstAddress {
		e.release(key)
		return ErrInvalidCaller
	}

	e.Emit(UaForceResumeReceive{ChainID: srcChainID, SrcAddress: slices.Clone(srcPath)})
	e.log.Info("force resumed channel",
		zap.Uint16("srcChainID", srcChainID),
		zap.Binary("srcPath", srcPath),
		zap.Uint64("discardedNonce", sp.Packet.Nonce),
	)
	e.resume(ctx, key)
	return nil
}

// HasStoredPayload implements lzgate.Endpoint
func (e *Endpoint) HasStoredPayload(srcChainID uint16, srcPath []byte) bool {
	_, ok := e.StoredPayload(srcChainID, srcPath)
	return ok
}

// StoredPayload returns the payload blocking a channel
func (e *Endpoint) StoredPayload(srcChainID uint16, srcPath []byte) (*StoredPayload, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sp := e.stored[lzgate.NewPathKey(srcChainID, srcPath)]
	return sp, sp != nil
}

// Queued returns the number of packets waiting behind a blocked channel
func (e *Endpoint) Queued(srcChainID uint16, srcPath []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.blocked[lzgate.NewPathKey(srcChainID, srcPath)])
}

// InboundNonce returns the last nonce received on a channel
func (e *Endpoint) InboundNonce(srcChainID uint16, srcPath []byte) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inbound[lzgate.NewPathKey(srcChainID, srcPath)]
}

// OutboundNonce returns the last nonce sent by ua to dstUA on dstChainID
func (e *Endpoint) OutboundNonce(dstChainID uint16, ua, dstUA common.Address) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outbound[outboundKey{dstChainID: dstChainID, srcUA: ua, dstUA: dstUA}]
}
