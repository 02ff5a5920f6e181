// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain provides an in-memory, single-ledger model of an EVM chain:
// a contract table, a native currency ledger, a block clock and an event log.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	cryptocommon "github.com/luxfi/crypto/common"
	"github.com/luxfi/geth/common"
)

var (
	ErrNoCode            = errors.New("call to non-contract")
	ErrExecutionReverted = errors.New("execution reverted")
	ErrAlreadyDeployed   = errors.New("contract already deployed")
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")
	ErrShortInput        = errors.New("input shorter than selector")
	ErrUnknownSelector   = errors.New("unknown function selector")
	errNilContract       = errors.New("nil contract")
)

// Msg is the call context of a state transition: the caller and the native
// value attached to the call.
type Msg struct {
	Sender common.Address
	Value  *uint256.Int
}

// From returns a Msg without value
func From(sender common.Address) Msg {
	return Msg{Sender: sender}
}

// ValueOrZero returns the attached value, never nil
func (m Msg) ValueOrZero() *uint256.Int {
	if m.Value == nil {
		return new(uint256.Int)
	}
	return m.Value
}

// Contract is code reachable by ABI calldata
type Contract interface {
	// Call executes input as if sent by from. Implementations return
	// ErrExecutionReverted (wrapped) for selectors they do not implement.
	Call(ctx context.Context, from common.Address, input []byte) ([]byte, error)
}

// NoFallback is embedded by contracts that expose no ABI surface, so any call
// reverts.
type NoFallback struct{}

func (NoFallback) Call(context.Context, common.Address, []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: no fallback", ErrExecutionReverted)
}

// Deployable is implemented by contracts that need their own address
type Deployable interface {
	Deployed(c *Chain, addr common.Address)
}

// Base records where a contract is deployed. Embed it to implement
// Deployable.
type Base struct {
	chain *Chain
	addr  common.Address
}

// Deployed implements Deployable
func (b *Base) Deployed(c *Chain, addr common.Address) {
	b.chain = c
	b.addr = addr
}

// Address returns the deployment address, zero until deployed
func (b *Base) Address() common.Address {
	return b.addr
}

// Chain returns the chain the contract is deployed on, nil until deployed
func (b *Base) Chain() *Chain {
	return b.chain
}

// Emit emits ev from the contract; events of undeployed contracts are lost
func (b *Base) Emit(ev Event) {
	if b.chain != nil {
		b.chain.Emit(b.addr, ev)
	}
}

// Clock returns the current block timestamp in unix seconds
type Clock func() uint64

// SystemClock reads the wall clock
func SystemClock() uint64 {
	return uint64(time.Now().Unix())
}

// Chain is the state of one simulated chain
type Chain struct {
	id    uint16
	name  string
	clock Clock

	mu        sync.RWMutex
	contracts map[common.Address]Contract
	nonces    map[common.Address]uint64
	balances  map[common.Address]*uint256.Int

	events *eventLog
}

// New creates an empty chain with the given LayerZero chain id
func New(id uint16, name string) *Chain {
	return &Chain{
		id:        id,
		name:      name,
		clock:     SystemClock,
		contracts: make(map[common.Address]Contract),
		nonces:    make(map[common.Address]uint64),
		balances:  make(map[common.Address]*uint256.Int),
		events:    newEventLog(),
	}
}

// ID returns the LayerZero chain id
func (c *Chain) ID() uint16 { return c.id }

// Name returns the network name
func (c *Chain) Name() string { return c.name }

// SetClock replaces the block clock
func (c *Chain) SetClock(clock Clock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}

// Now returns the current block timestamp
func (c *Chain) Now() uint64 {
	c.mu.RLock()
	clock := c.clock
	c.mu.RUnlock()
	return clock()
}

// PredictAddress returns the address the ahead-th next deployment from
// deployer will receive, ahead being zero for the very next one.
func (c *Chain) PredictAddress(deployer common.Address, ahead uint64) common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return common.Address(crypto.CreateAddress(cryptocommon.Address(deployer), c.nonces[deployer]+ahead))
}

// Deploy registers contract at the next address derived from deployer. A
// Deployable contract is told its address before Deploy returns.
func (c *Chain) Deploy(deployer common.Address, contract Contract) (common.Address, error) {
	if contract == nil {
		return common.Address{}, errNilContract
	}
	c.mu.Lock()
	addr := common.Address(crypto.CreateAddress(cryptocommon.Address(deployer), c.nonces[deployer]))
	if _, ok := c.contracts[addr]; ok {
		c.mu.Unlock()
		return common.Address{}, fmt.Errorf("%w: %s", ErrAlreadyDeployed, addr)
	}
	c.nonces[deployer]++
	c.contracts[addr] = contract
	c.mu.Unlock()

	if d, ok := contract.(Deployable); ok {
		d.Deployed(c, addr)
	}
	return addr, nil
}

// Contract returns the contract at addr
func (c *Chain) Contract(addr common.Address) (Contract, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	contract, ok := c.contracts[addr]
	return contract, ok
}

// IsContract reports whether code exists at addr
func (c *Chain) IsContract(addr common.Address) bool {
	_, ok := c.Contract(addr)
	return ok
}

// StaticCall executes input against the contract at to
func (c *Chain) StaticCall(ctx context.Context, from, to common.Address, input []byte) ([]byte, error) {
	contract, ok := c.Contract(to)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCode, to)
	}
	if len(input) < 4 {
		return nil, fmt.Errorf("%w: %w", ErrExecutionReverted, ErrShortInput)
	}
	return contract.Call(ctx, from, input)
}

// Fund credits amount of native currency to addr
func (c *Chain) Fund(addr common.Address, amount *uint256.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balanceLocked(addr).Add(c.balanceLocked(addr), amount)
}

// Balance returns the native balance of addr
func (c *Chain) Balance(addr common.Address) *uint256.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if bal, ok := c.balances[addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// Transfer moves amount of native currency between two accounts
func (c *Chain) Transfer(from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	fromBal := c.balanceLocked(from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from, fromBal.Dec(), amount.Dec())
	}
	fromBal.Sub(fromBal, amount)
	toBal := c.balanceLocked(to)
	toBal.Add(toBal, amount)
	return nil
}

// Pay moves msg.Value from the sender to the callee, as the EVM does on
// entering a payable function.
func (c *Chain) Pay(msg Msg, callee common.Address) error {
	return c.Transfer(msg.Sender, callee, msg.Value)
}

func (c *Chain) balanceLocked(addr common.Address) *uint256.Int {
	bal, ok := c.balances[addr]
	if !ok {
		bal = new(uint256.Int)
		c.balances[addr] = bal
	}
	return bal
}
