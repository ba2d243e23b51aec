package autoswap

import (
	"fmt"
	"math/big"
)

// calcSwap computes the constant-product trade. The fee, floor(amountIn /
// feeDivisor), is excluded from the invariant division but stays inside the
// committed reserve-in, so the pool keeps it.
func calcSwap(reserveIn, reserveOut, amountIn, feeDivisor *big.Int) (amountOut, newReserveIn, newReserveOut *big.Int, err error) {
	fee := new(big.Int).Div(amountIn, feeDivisor)
	invariant := new(big.Int).Mul(reserveIn, reserveOut)
	newReserveIn = new(big.Int).Add(reserveIn, amountIn)
	denominator := new(big.Int).Sub(newReserveIn, fee)
	if denominator.Sign() <= 0 {
		return nil, nil, nil, fmt.Errorf("autoswap: degenerate reserves for swap")
	}
	newReserveOut = new(big.Int).Div(invariant, denominator)
	amountOut = new(big.Int).Sub(reserveOut, newReserveOut)
	if amountOut.Sign() < 0 {
		return nil, nil, nil, fmt.Errorf("autoswap: negative amount out")
	}
	return amountOut, newReserveIn, newReserveOut, nil
}

// calcLiquidityOut computes the liquidity tokens owed for a deposit:
// proportional to the current supply, or the deposit itself when the supply
// is zero. A drained reserve cannot price a deposit against outstanding
// shares.
func calcLiquidityOut(supply, reserveIn, amountIn *big.Int) (*big.Int, error) {
	if supply.Sign() > 0 {
		if reserveIn.Sign() == 0 {
			return nil, fmt.Errorf("autoswap: drained reserve cannot price deposit")
		}
		out := new(big.Int).Mul(amountIn, supply)
		return out.Div(out, reserveIn), nil
	}
	return new(big.Int).Set(amountIn), nil
}
