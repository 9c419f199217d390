package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus represents the state of a ledger account.
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusBlocked AccountStatus = "BLOCKED"
	AccountStatusClosed  AccountStatus = "CLOSED"
)

// Account is a client-owned balance holder.
// Invariants after every committed mutation: Available >= -CreditLimit, Reserved >= 0.
type Account struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	Available   decimal.Decimal `json:"available"`
	Reserved    decimal.Decimal `json:"reserved"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Status      AccountStatus   `json:"status"`
	Version     int64           `json:"-"` // optimistic concurrency token
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsActive returns true if the account accepts new transactions.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// Total is available plus reserved.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Reserved)
}

// CanDebit reports whether amount can leave Available without crossing the credit limit floor.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Available.Sub(amount).GreaterThanOrEqual(a.CreditLimit.Neg())
}

// Accounts is the handler-scoped set of accounts loaded for one settlement, keyed by id.
type Accounts map[int64]*Account

// Get returns the account for id, or nil when id is nil or not loaded.
func (m Accounts) Get(id *int64) *Account {
	if id == nil {
		return nil
	}
	return m[*id]
}

// Add registers accounts by id; nil entries are skipped.
func (m Accounts) Add(accounts ...*Account) {
	for _, a := range accounts {
		if a != nil {
			m[a.ID] = a
		}
	}
}

// Slice returns the loaded accounts ordered by id.
func (m Accounts) Slice() []*Account {
	out := make([]*Account, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
