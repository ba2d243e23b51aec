// Package autoswap implements the constant-product automated market maker.
// The pool is a standing all-want offer owned by the contract, so the same
// conservation and safety machinery that protects participants also protects
// the reserves.
package autoswap

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"clearcore/config"
	"clearcore/native/assets"
	nativecommon "clearcore/native/common"
	"clearcore/native/exchange"
)

const moduleName = "autoswap"

// Slot order fixed at instance creation.
const (
	slotTokenA = iota
	slotTokenB
	slotLiquidity
)

var (
	errNilFacet    = errors.New("autoswap: governing facet not configured")
	errNilMint     = errors.New("autoswap: liquidity mint not configured")
	errThreeSlots  = errors.New("autoswap: instance must have token, token and liquidity kinds")
	errNoLiquidity = errors.New("autoswap: pool has no liquidity")
	errDrainsPool  = errors.New("autoswap: trade would drain the pool")
)

// Contract is one constant-product pool over (tokenA, tokenB) with a third
// slot accounting liquidity shares. The contract holds the liquidity mint
// closely; minted shares are escrowed into the provider's offer before the
// reallocation so conservation holds for the liquidity slot too.
type Contract struct {
	facet      *exchange.GoverningFacet
	pauses     nativecommon.PauseView
	feeDivisor *big.Int

	liquidityMint *assets.Mint

	mu     sync.Mutex
	pool   exchange.OfferID
	supply *big.Int
}

// New installs the contract over a three-slot instance and escrows the
// standing pool offer. The fee divisor comes from configuration; the default
// 500 is a 0.2% fee.
func New(facet *exchange.GoverningFacet, liquidityMint *assets.Mint, cfg config.AutoSwap) (*Contract, error) {
	if facet == nil {
		return nil, errNilFacet
	}
	if liquidityMint == nil {
		return nil, errNilMint
	}
	issuers := facet.Issuers()
	if len(issuers) != 3 {
		return nil, errThreeSlots
	}
	if issuers[slotLiquidity].Label() != liquidityMint.Issuer().Label() {
		return nil, fmt.Errorf("autoswap: liquidity slot is %q, mint issues %q", issuers[slotLiquidity].Label(), liquidityMint.Issuer().Label())
	}
	if cfg.FeeDivisor <= 0 {
		return nil, fmt.Errorf("autoswap: fee divisor must be positive, got %d", cfg.FeeDivisor)
	}
	pool, _, err := facet.EscrowEmptyOffer()
	if err != nil {
		return nil, err
	}
	return &Contract{
		facet:         facet,
		feeDivisor:    big.NewInt(cfg.FeeDivisor),
		liquidityMint: liquidityMint,
		pool:          pool,
		supply:        big.NewInt(0),
	}, nil
}

// SetPauses configures the operator pause view.
func (c *Contract) SetPauses(p nativecommon.PauseView) { c.pauses = p }

// PoolID returns the standing pool offer's handle.
func (c *Contract) PoolID() exchange.OfferID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pool
}

// Reserves reads the pool's current quantity vector.
func (c *Contract) Reserves() ([]assets.Quantity, error) {
	c.mu.Lock()
	pool := c.pool
	c.mu.Unlock()
	matrix, err := c.facet.QuantitiesFor([]exchange.OfferID{pool})
	if err != nil {
		return nil, err
	}
	return matrix[0], nil
}

// LiquiditySupply returns the liquidity shares outstanding.
func (c *Contract) LiquiditySupply() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.supply)
}

// CanReallocate reports the activation condition: a standing pool joined by
// one request offer.
func (c *Contract) CanReallocate(ids []exchange.OfferID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.pool.IsZero() && len(ids) == 1
}

// IsValidSwapDescription checks structure only: haveExactly on one token
// slot, wantAtLeast on the other, and an empty want on the liquidity slot.
func (c *Contract) IsValidSwapDescription(issuers []*assets.Issuer, desc exchange.OfferDescription) bool {
	if len(issuers) != 3 || len(desc) != 3 {
		return false
	}
	if !desc[slotLiquidity].Kind.IsWant() {
		return false
	}
	if !issuers[slotLiquidity].Strategy().IsEmpty(desc[slotLiquidity].Amount.Quantity) {
		return false
	}
	aIn := desc[slotTokenA].Kind == exchange.RuleHaveExactly && desc[slotTokenB].Kind == exchange.RuleWantAtLeast
	bIn := desc[slotTokenB].Kind == exchange.RuleHaveExactly && desc[slotTokenA].Kind == exchange.RuleWantAtLeast
	return aIn || bIn
}

// IsValidLiquidityDescription checks structure only: haveExactly on both
// token slots and a want on the liquidity slot.
func (c *Contract) IsValidLiquidityDescription(issuers []*assets.Issuer, desc exchange.OfferDescription) bool {
	if len(issuers) != 3 || len(desc) != 3 {
		return false
	}
	return desc[slotTokenA].Kind == exchange.RuleHaveExactly &&
		desc[slotTokenB].Kind == exchange.RuleHaveExactly &&
		desc[slotLiquidity].Kind.IsWant()
}

func nat(q assets.Quantity) (*big.Int, error) {
	n, ok := q.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("autoswap: quantity %T is not a natural", q)
	}
	return n, nil
}

// MakeSwapOffer executes a swap request against the pool. The trader's
// wantAtLeast amount is the minimum out; if the computed output falls short
// the offer is rejected with ErrSlippageExceeded before any reallocation, so
// the pool is untouched.
func (c *Contract) MakeSwapOffer(id exchange.OfferID) error {
	if err := nativecommon.Guard(c.pauses, moduleName); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	descs, err := c.facet.DescriptionsFor([]exchange.OfferID{id})
	if err != nil {
		return err
	}
	desc := descs[0]
	if !c.IsValidSwapDescription(c.facet.Issuers(), desc) {
		return c.rejectWith(id, exchange.ErrInvalidOfferFormat)
	}
	inSlot, outSlot := slotTokenA, slotTokenB
	if desc[slotTokenB].Kind == exchange.RuleHaveExactly {
		inSlot, outSlot = slotTokenB, slotTokenA
	}

	ids := []exchange.OfferID{c.pool, id}
	matrix, err := c.facet.QuantitiesFor(ids)
	if err != nil {
		return err
	}
	poolQ, tradeQ := matrix[0], matrix[1]
	reserveIn, err := nat(poolQ[inSlot])
	if err != nil {
		return err
	}
	reserveOut, err := nat(poolQ[outSlot])
	if err != nil {
		return err
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return c.rejectWith(id, errNoLiquidity)
	}
	amountIn, err := nat(tradeQ[inSlot])
	if err != nil {
		return err
	}
	amountOut, newReserveIn, newReserveOut, err := calcSwap(reserveIn, reserveOut, amountIn, c.feeDivisor)
	if err != nil {
		return c.rejectWith(id, err)
	}
	// An emptied reserve would strand outstanding liquidity shares with
	// nothing to price them against.
	if newReserveOut.Sign() == 0 {
		return c.rejectWith(id, errDrainsPool)
	}
	minOut, err := nat(desc[outSlot].Amount.Quantity)
	if err != nil {
		return err
	}
	if amountOut.Cmp(minOut) < 0 {
		return c.rejectWith(id, exchange.ErrSlippageExceeded)
	}

	newPool := make([]assets.Quantity, 3)
	newPool[inSlot] = newReserveIn
	newPool[outSlot] = newReserveOut
	newPool[slotLiquidity] = poolQ[slotLiquidity]
	newTrade := make([]assets.Quantity, 3)
	newTrade[inSlot] = big.NewInt(0)
	newTrade[outSlot] = amountOut
	newTrade[slotLiquidity] = tradeQ[slotLiquidity]

	if err := c.facet.Reallocate(ids, [][]assets.Quantity{newPool, newTrade}); err != nil {
		return err
	}
	return c.facet.Eject([]exchange.OfferID{id})
}

// AddLiquidity absorbs a two-sided deposit into the reserves and pays the
// provider newly minted liquidity shares. The first provider sets the
// reserves directly; later providers receive shares proportional to the
// tokenA deposit.
func (c *Contract) AddLiquidity(id exchange.OfferID) error {
	if err := nativecommon.Guard(c.pauses, moduleName); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	descs, err := c.facet.DescriptionsFor([]exchange.OfferID{id})
	if err != nil {
		return err
	}
	desc := descs[0]
	if !c.IsValidLiquidityDescription(c.facet.Issuers(), desc) {
		return c.rejectWith(id, exchange.ErrInvalidOfferFormat)
	}

	ids := []exchange.OfferID{c.pool, id}
	matrix, err := c.facet.QuantitiesFor(ids)
	if err != nil {
		return err
	}
	poolQ, providerQ := matrix[0], matrix[1]
	reserveA, err := nat(poolQ[slotTokenA])
	if err != nil {
		return err
	}
	amountA, err := nat(providerQ[slotTokenA])
	if err != nil {
		return err
	}
	if amountA.Sign() == 0 {
		return c.rejectWith(id, exchange.ErrInvalidOfferFormat)
	}
	liquidityOut, err := calcLiquidityOut(c.supply, reserveA, amountA)
	if err != nil {
		return c.rejectWith(id, err)
	}
	wanted, err := nat(desc[slotLiquidity].Amount.Quantity)
	if err != nil {
		return err
	}
	if liquidityOut.Cmp(wanted) < 0 {
		return c.rejectWith(id, exchange.ErrSlippageExceeded)
	}

	shares, err := c.liquidityMint.MintPayment(liquidityOut)
	if err != nil {
		return err
	}
	if _, err := c.facet.DepositToOffer(id, slotLiquidity, shares); err != nil {
		return err
	}
	// Re-read so the reallocation baseline includes the escrowed shares.
	matrix, err = c.facet.QuantitiesFor(ids)
	if err != nil {
		return err
	}
	poolQ, providerQ = matrix[0], matrix[1]

	strategies := c.facet.Strategies()
	newPool := make([]assets.Quantity, 3)
	newProvider := make([]assets.Quantity, 3)
	for _, slot := range []int{slotTokenA, slotTokenB} {
		combined, err := strategies[slot].With(poolQ[slot], providerQ[slot])
		if err != nil {
			return err
		}
		newPool[slot] = combined
		newProvider[slot] = strategies[slot].Empty()
	}
	newPool[slotLiquidity] = poolQ[slotLiquidity]
	newProvider[slotLiquidity] = providerQ[slotLiquidity]

	if err := c.facet.Reallocate(ids, [][]assets.Quantity{newPool, newProvider}); err != nil {
		return err
	}
	if err := c.facet.Eject([]exchange.OfferID{id}); err != nil {
		return err
	}
	c.supply = new(big.Int).Add(c.supply, liquidityOut)
	return nil
}

// rejectWith rejects the offer (refunding its escrow) and surfaces the cause
// to the caller.
func (c *Contract) rejectWith(id exchange.OfferID, cause error) error {
	if err := c.facet.RejectOffer(id, cause); err != nil {
		return err
	}
	return cause
}
