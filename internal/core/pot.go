package core

import "fmt"

// AddMoney returns p with amount added to its total. amount must be positive
// and the new total may not exceed MaxCents.
func (p Pot) AddMoney(amount Money) (Pot, error) {
	if err := amount.Validate(); err != nil {
		return p, err
	}
	if amount.Cents > MaxCents-p.Total.Cents {
		return p, fmt.Errorf("%w: deposit of %s would push pot total past %s", ErrInvalidAmount, amount, Money{Cents: MaxCents})
	}
	p.Total = p.Total.Add(amount)
	return p, nil
}

// Withdraw returns p with amount taken out of its total. The total never goes below zero.
func (p Pot) Withdraw(amount Money) (Pot, error) {
	if err := amount.Validate(); err != nil {
		return p, err
	}
	if amount.Cents > p.Total.Cents {
		return p, fmt.Errorf("%w: withdrawal of %s exceeds pot total %s", ErrInvalidAmount, amount, p.Total)
	}
	p.Total = p.Total.Sub(amount)
	return p, nil
}

// Progress is the share of the target already saved, in percent.
func (p Pot) Progress() float64 {
	if p.Target.Cents <= 0 {
		return 0
	}
	f, _ := p.Total.Decimal().Div(p.Target.Decimal()).Mul(decimalHundred).Float64()
	return f
}
