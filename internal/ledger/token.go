package ledger

import "time"

// balanceOf reads a balance without materializing missing accounts.
func (l *Ledger) balanceOf(account string) Amount {
	return l.balances[account]
}

func (l *Ledger) allowanceOf(owner, spender string) Amount {
	return l.allowances[pairKey(owner, spender)]
}

// moveTokens debits from and credits to after checking the debit. A
// self-transfer still validates the debit but changes nothing, so the
// account nets zero. The conservation invariant holds because credit
// and debit are equal and the credited balance cannot exceed the cap
// while totalSupply is below it. Callers hold the ledger lock.
func (l *Ledger) moveTokens(from, to string, amount Amount) error {
	newFrom, err := l.balanceOf(from).Sub(amount)
	if err != nil {
		return reject(KindInsufficientBalance, "account %s holds %s, needs %s", from, l.balanceOf(from), amount)
	}
	if from == to {
		return nil
	}
	newTo, err := l.balanceOf(to).Add(amount)
	if err != nil {
		return err
	}
	l.balances[from] = newFrom
	l.balances[to] = newTo
	return nil
}

// Mint creates amount new tokens on to's balance. Requires MINTER.
func (l *Ledger) Mint(actor, to string, amount Amount) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		if err := l.authorize(actor, OpMint); err != nil {
			return err
		}
		if to == "" {
			return reject(KindEmptyIdentifier, "mint recipient required")
		}
		if !amount.IsPositive() {
			return reject(KindInvalidAmount, "mint amount must be greater than 0")
		}
		newSupply, err := l.totalSupply.Add(amount)
		if err != nil {
			return err
		}
		newBalance, err := l.balanceOf(to).Add(amount)
		if err != nil {
			return err
		}
		l.totalSupply = newSupply
		l.balances[to] = newBalance
		l.emit(EventTokensMinted, actor, to, map[string]string{"amount": amount.String()}, now)
		return nil
	})
}

// Burn destroys amount tokens from from's balance. Requires BURNER.
func (l *Ledger) Burn(actor, from string, amount Amount) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		if err := l.authorize(actor, OpBurn); err != nil {
			return err
		}
		if !amount.IsPositive() {
			return reject(KindInvalidAmount, "burn amount must be greater than 0")
		}
		newBalance, err := l.balanceOf(from).Sub(amount)
		if err != nil {
			return reject(KindInsufficientBalance, "account %s holds %s, needs %s", from, l.balanceOf(from), amount)
		}
		newSupply, err := l.totalSupply.Sub(amount)
		if err != nil {
			return err
		}
		l.balances[from] = newBalance
		l.totalSupply = newSupply
		l.emit(EventTokensBurned, actor, from, map[string]string{"amount": amount.String()}, now)
		return nil
	})
}

// Transfer moves amount from the actor's balance to to.
func (l *Ledger) Transfer(actor, to string, amount Amount) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		if to == "" {
			return reject(KindEmptyIdentifier, "transfer recipient required")
		}
		if !amount.IsPositive() {
			return reject(KindInvalidAmount, "transfer amount must be greater than 0")
		}
		if err := l.moveTokens(actor, to, amount); err != nil {
			return err
		}
		l.emit(EventTokensTransferred, actor, to, map[string]string{"from": actor, "to": to, "amount": amount.String()}, now)
		return nil
	})
}

// TransferFrom moves amount from owner to to, spending the actor's
// allowance. The allowance is decremented by exactly the moved amount.
func (l *Ledger) TransferFrom(actor, owner, to string, amount Amount) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		if to == "" {
			return reject(KindEmptyIdentifier, "transfer recipient required")
		}
		if !amount.IsPositive() {
			return reject(KindInvalidAmount, "transfer amount must be greater than 0")
		}
		remaining, err := l.allowanceOf(owner, actor).Sub(amount)
		if err != nil {
			return reject(KindInsufficientAllowance, "spender %s allowed %s by %s, needs %s", actor, l.allowanceOf(owner, actor), owner, amount)
		}
		if err := l.moveTokens(owner, to, amount); err != nil {
			return err
		}
		l.allowances[pairKey(owner, actor)] = remaining
		l.emit(EventTokensTransferred, actor, to, map[string]string{"from": owner, "to": to, "amount": amount.String()}, now)
		return nil
	})
}

// Approve sets the actor's allowance for spender to exactly amount,
// overwriting any prior value. Changing a non-zero allowance is subject
// to the usual front-running hazard; callers should check the current
// allowance first. Zero is allowed and clears the approval.
func (l *Ledger) Approve(actor, spender string, amount Amount) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		if spender == "" {
			return reject(KindEmptyIdentifier, "spender required")
		}
		l.allowances[pairKey(actor, spender)] = amount
		l.emit(EventAllowanceSet, actor, spender, map[string]string{"owner": actor, "spender": spender, "amount": amount.String()}, now)
		return nil
	})
}

// BalanceOf returns account's balance. Unknown accounts hold zero.
func (l *Ledger) BalanceOf(account string) Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceOf(account)
}

// Allowance returns what spender may still move on owner's behalf.
func (l *Ledger) Allowance(owner, spender string) Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowanceOf(owner, spender)
}

// TotalSupply returns the current token supply.
func (l *Ledger) TotalSupply() Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalSupply
}
