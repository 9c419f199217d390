package domain

import (
	"strings"
	"time"
)

const (
	MsgAmountNotPositive     = "amount must be greater than zero"
	MsgCurrencyRequired      = "currency is required"
	MsgInvalidType           = "transaction type is invalid"
	MsgSourceRequiredCredit  = "source account is required for credit"
	MsgSourceRequiredDebit   = "source account is required for debit"
	MsgSourceRequiredHold    = "source account is required for hold"
	MsgSourceRequiredCapture = "source account is required for capture"
	MsgTransferAccounts      = "source and destination accounts are required for transfer"
	MsgInsufficientLimit     = "insufficient balance considering credit limit"
	MsgInsufficientHold      = "insufficient available balance for hold"
	MsgInsufficientCapture   = "insufficient reserved balance for capture"
	MsgInsufficientSource    = "insufficient balance in source account"

	MsgOriginalRequired        = "original transaction is required for reversal"
	MsgOriginalNotSuccess      = "only successful transactions can be reversed"
	MsgOriginalIsReversal      = "a reversal cannot be reversed"
	MsgAlreadyReversed         = "transaction already reversed"
	MsgOriginalSourceMissing   = "source account missing on original transaction"
	MsgOriginalAccountsMissing = "source or destination account missing on original transaction"
	MsgReverseHoldReserved     = "insufficient reserved balance to reverse hold"
	MsgReverseCreditLimit      = "insufficient balance to reverse credit considering credit limit"
	MsgReverseTransferDest     = "destination account has insufficient balance to reverse transfer"
	MsgReverseUnsupported      = "transaction type is not supported for reversal"
	MsgUnknownFailure          = "unknown failure"
)

// Result is the outcome of one settlement.
type Result struct {
	Succeeded bool
	Errors    []string
}

// Process settles tx against the supplied accounts.
//
// Balances are mutated in place only when every precondition holds; on failure
// no account changes. tx ends in SUCCESS or FAILURE with ErrorMessage set
// accordingly. For a reversal, tx.Original must be loaded with its Reversed flag
// and its accounts must be present in accounts.
func Process(tx *Transaction, accounts Accounts) Result {
	if errs := validateBasic(tx); len(errs) > 0 {
		return fail(tx, errs...)
	}

	switch tx.Type {
	case TransactionTypeCredit:
		return credit(tx, accounts)
	case TransactionTypeDebit:
		return debit(tx, accounts)
	case TransactionTypeHold:
		return hold(tx, accounts)
	case TransactionTypeCapture:
		return capture(tx, accounts)
	case TransactionTypeTransfer:
		return transfer(tx, accounts)
	case TransactionTypeReversal:
		return reversal(tx, accounts)
	default:
		return fail(tx, MsgInvalidType)
	}
}

func validateBasic(tx *Transaction) []string {
	var errs []string
	if tx.Type != TransactionTypeReversal && !tx.Amount.IsPositive() {
		errs = append(errs, MsgAmountNotPositive)
	}
	if strings.TrimSpace(tx.Currency) == "" {
		errs = append(errs, MsgCurrencyRequired)
	}
	return errs
}

func credit(tx *Transaction, accounts Accounts) Result {
	src := accounts[tx.SourceAccountID]
	if src == nil {
		return fail(tx, MsgSourceRequiredCredit)
	}
	src.Available = src.Available.Add(tx.Amount)
	return succeed(tx)
}

func debit(tx *Transaction, accounts Accounts) Result {
	src := accounts[tx.SourceAccountID]
	if src == nil {
		return fail(tx, MsgSourceRequiredDebit)
	}
	if !src.CanDebit(tx.Amount) {
		return fail(tx, MsgInsufficientLimit)
	}
	src.Available = src.Available.Sub(tx.Amount)
	return succeed(tx)
}

func hold(tx *Transaction, accounts Accounts) Result {
	src := accounts[tx.SourceAccountID]
	if src == nil {
		return fail(tx, MsgSourceRequiredHold)
	}
	if src.Available.LessThan(tx.Amount) {
		return fail(tx, MsgInsufficientHold)
	}
	src.Available = src.Available.Sub(tx.Amount)
	src.Reserved = src.Reserved.Add(tx.Amount)
	return succeed(tx)
}

func capture(tx *Transaction, accounts Accounts) Result {
	src := accounts[tx.SourceAccountID]
	if src == nil {
		return fail(tx, MsgSourceRequiredCapture)
	}
	if src.Reserved.LessThan(tx.Amount) {
		return fail(tx, MsgInsufficientCapture)
	}
	src.Reserved = src.Reserved.Sub(tx.Amount)
	return succeed(tx)
}

func transfer(tx *Transaction, accounts Accounts) Result {
	src := accounts[tx.SourceAccountID]
	dst := accounts.Get(tx.DestinationAccountID)
	if src == nil || dst == nil {
		return fail(tx, MsgTransferAccounts)
	}
	if !src.CanDebit(tx.Amount) {
		return fail(tx, MsgInsufficientSource)
	}
	src.Available = src.Available.Sub(tx.Amount)
	dst.Available = dst.Available.Add(tx.Amount)
	return succeed(tx)
}

func reversal(tx *Transaction, accounts Accounts) Result {
	original := tx.Original
	if original == nil {
		return fail(tx, MsgOriginalRequired)
	}

	var errs []string
	if original.Status != TransactionStatusSuccess {
		errs = append(errs, MsgOriginalNotSuccess)
	}
	if original.Type == TransactionTypeReversal {
		errs = append(errs, MsgOriginalIsReversal)
	}
	if original.Reversed {
		errs = append(errs, MsgAlreadyReversed)
	}
	if len(errs) > 0 {
		return fail(tx, errs...)
	}

	if msg := reverse(original, accounts); msg != "" {
		return fail(tx, msg)
	}
	// The original keeps its own terminal state; the reversal record carries the outcome.
	return succeed(tx)
}

// reverse applies the inverse of original's mutation. It returns a failure
// reason, in which case nothing was mutated.
func reverse(original *Transaction, accounts Accounts) string {
	amount := original.Amount
	src := accounts[original.SourceAccountID]

	switch original.Type {
	case TransactionTypeCredit:
		if src == nil {
			return MsgOriginalSourceMissing
		}
		if !src.CanDebit(amount) {
			return MsgReverseCreditLimit
		}
		src.Available = src.Available.Sub(amount)
	case TransactionTypeDebit:
		if src == nil {
			return MsgOriginalSourceMissing
		}
		src.Available = src.Available.Add(amount)
	case TransactionTypeHold:
		if src == nil {
			return MsgOriginalSourceMissing
		}
		if src.Reserved.LessThan(amount) {
			return MsgReverseHoldReserved
		}
		src.Reserved = src.Reserved.Sub(amount)
		src.Available = src.Available.Add(amount)
	case TransactionTypeCapture:
		if src == nil {
			return MsgOriginalSourceMissing
		}
		src.Available = src.Available.Add(amount)
	case TransactionTypeTransfer:
		dst := accounts.Get(original.DestinationAccountID)
		if src == nil || dst == nil {
			return MsgOriginalAccountsMissing
		}
		if dst.Available.LessThan(amount) {
			return MsgReverseTransferDest
		}
		dst.Available = dst.Available.Sub(amount)
		src.Available = src.Available.Add(amount)
	case TransactionTypeReversal:
		return MsgOriginalIsReversal
	default:
		return MsgReverseUnsupported
	}
	return ""
}

// Fail moves tx to FAILURE with the given reasons without touching any account.
func Fail(tx *Transaction, reasons ...string) Result {
	return fail(tx, reasons...)
}

func succeed(tx *Transaction) Result {
	now := time.Now().UTC()
	tx.Status = TransactionStatusSuccess
	tx.ErrorMessage = ""
	tx.ProcessedAt = &now
	return Result{Succeeded: true}
}

func fail(tx *Transaction, errs ...string) Result {
	valid := make([]string, 0, len(errs))
	for _, e := range errs {
		if strings.TrimSpace(e) != "" {
			valid = append(valid, e)
		}
	}
	if len(valid) == 0 {
		valid = append(valid, MsgUnknownFailure)
	}

	now := time.Now().UTC()
	tx.Status = TransactionStatusFailure
	tx.ErrorMessage = truncate(strings.Join(valid, " | "), MaxErrorMessageLength)
	tx.ProcessedAt = &now
	return Result{Succeeded: false, Errors: valid}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
