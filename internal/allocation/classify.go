package allocation

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"stakelens/internal/chain"
	"stakelens/internal/contracts"
	"stakelens/internal/domain"
)

// Candidate priorities. Lower wins.
const (
	PriorityAvailable        = 1
	PriorityLocked           = 2
	PriorityClaimed          = 3
	PriorityClaimedByBalance = 4

	// PriorityDropped marks a candidate that is not a match. It never ranks.
	PriorityDropped = 0
)

// outcome is the classification of one failed probe.
type outcome int

const (
	outcomeOther outcome = iota
	outcomeNotConfigured
	outcomeLocked
	outcomeClaimed
	outcomeArithmetic
)

// Classify turns one probe result into a candidate. The bool is false when
// the candidate is dropped (not a match); dropped candidates carry status
// not_found.
//
// A successful zero-available probe is told apart by the claimant balance:
// a balance at or above the candidate amount reads as already claimed,
// anything else as locked. This is a heuristic; the balance can come from
// anywhere.
func Classify(amount *big.Int, res chain.Result, balance *big.Int) (domain.AllocationCandidate, bool) {
	c := domain.AllocationCandidate{
		Amount:           new(big.Int).Set(amount),
		AvailableToClaim: new(big.Int),
	}

	if res.OK() {
		available, ok := res.Value.(*big.Int)
		if !ok || available == nil {
			available = new(big.Int)
		}
		c.AvailableToClaim.Set(available)

		switch {
		case available.Sign() > 0:
			c.Status, c.Priority = domain.AllocationAvailable, PriorityAvailable
		case balance != nil && balance.Cmp(amount) >= 0:
			c.Status, c.Priority = domain.AllocationClaimed, PriorityClaimedByBalance
		default:
			c.Status, c.Priority = domain.AllocationLocked, PriorityLocked
		}
		return c, true
	}

	switch classifyError(res.Err) {
	case outcomeNotConfigured, outcomeArithmetic:
		c.Status, c.Priority = domain.AllocationNotFound, PriorityDropped
		c.Error = errString(res.Err)
		return c, false
	case outcomeLocked:
		c.Status, c.Priority = domain.AllocationLocked, PriorityLocked
	case outcomeClaimed:
		c.Status, c.Priority = domain.AllocationClaimed, PriorityClaimed
	default:
		c.Status, c.Priority = domain.AllocationLocked, PriorityLocked
		c.Error = errString(res.Err)
	}
	return c, true
}

// classifyError matches revert data first. Without decodable data, only a
// message the node marks as a revert is matched by text; anything else,
// transport and node errors included, is outcomeOther.
func classifyError(err error) outcome {
	if err == nil {
		return outcomeOther
	}

	msg := err.Error()
	var callErr *chain.CallError
	if errors.As(err, &callErr) {
		if rev, ok := contracts.DecodeRevert(callErr.Data); ok {
			switch {
			case rev.Name == contracts.ErrAllocationNotConfigured:
				return outcomeNotConfigured
			case rev.Name == contracts.ErrAllocationLocked:
				return outcomeLocked
			case rev.Name == contracts.ErrUserMaxReached, rev.Name == contracts.ErrTotalMaxReached:
				return outcomeClaimed
			case rev.IsPanic(contracts.PanicArithmetic):
				return outcomeArithmetic
			case rev.Name == "Error":
				return classifyReason(rev.Reason)
			}
			return outcomeOther
		}
		msg = callErr.Message
	}

	reason, ok := revertReason(msg)
	if !ok {
		return outcomeOther
	}
	return classifyReason(reason)
}

// revertReason returns the text after an "execution reverted" prefix.
func revertReason(msg string) (string, bool) {
	const prefix = "execution reverted"
	m := strings.TrimSpace(msg)
	if len(m) < len(prefix) || !strings.EqualFold(m[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimLeft(m[len(prefix):], ": "), true
}

var (
	reNotConfigured = regexp.MustCompile(`\b` + contracts.ErrAllocationNotConfigured + `\b|(?i:\ballocation not configured\b)`)
	reLocked        = regexp.MustCompile(`\b` + contracts.ErrAllocationLocked + `\b`)
	reClaimed       = regexp.MustCompile(`\b(` + contracts.ErrUserMaxReached + `|` + contracts.ErrTotalMaxReached + `)\b|(?i:\balready claimed\b)`)
	reArithmetic    = regexp.MustCompile(fmt.Sprintf(`(?i)\barithmetic underflow or overflow\b|\bpanic(?: code)?:? ?0x%x\b`, contracts.PanicArithmetic))
)

// classifyReason matches a revert reason against whole error names and
// Solidity's panic phrasing.
func classifyReason(reason string) outcome {
	switch {
	case reNotConfigured.MatchString(reason):
		return outcomeNotConfigured
	case reLocked.MatchString(reason):
		return outcomeLocked
	case reClaimed.MatchString(reason):
		return outcomeClaimed
	case reArithmetic.MatchString(reason):
		return outcomeArithmetic
	}
	return outcomeOther
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
