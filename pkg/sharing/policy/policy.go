// Package policy decides whether a share link may be used for one access
// attempt.
//
// The decision is an ordered list of rules evaluated first match wins. The
// order is part of the contract: a revoked link reports revoked even when
// it has also expired, and a link that is out of accesses never asks for
// its password.
package policy

import (
	"time"

	"github.com/scratchdata/sharelinks/pkg/sharing/credential"
	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
)

type Kind int

const (
	Allow Kind = iota
	PasswordRequired
	Denied
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case PasswordRequired:
		return "password-required"
	case Denied:
		return "denied"
	}
	return "unknown"
}

type Request struct {
	Now time.Time
	// Nil when the caller supplied no password.
	Password *string
}

type Decision struct {
	Kind   Kind
	Reason models.FailureReason
	Rule   string
	// Set on Allow only.
	Permission models.Permission
}

type Predicate func(link models.ShareLink, req Request) bool

type Rule struct {
	Name    string
	Matches Predicate
	Kind    Kind
	Reason  models.FailureReason
}

func Revoked(link models.ShareLink, _ Request) bool {
	return !link.IsActive
}

// Expired has no grace window: the expiry instant itself is expired.
func Expired(link models.ShareLink, req Request) bool {
	return link.ExpiresAt != nil && !req.Now.Before(*link.ExpiresAt)
}

func LimitReached(link models.ShareLink, _ Request) bool {
	return link.MaxAccessCount > 0 && link.AccessCount >= link.MaxAccessCount
}

func PasswordMissing(link models.ShareLink, req Request) bool {
	return link.PasswordHash != nil && req.Password == nil
}

func BadPassword(v credential.Verifier) Predicate {
	return func(link models.ShareLink, req Request) bool {
		if link.PasswordHash == nil {
			return false
		}
		if req.Password == nil {
			return true
		}
		return !v.Verify(*link.PasswordHash, *req.Password)
	}
}

// StateRules only look at the stored link, never at the request password.
func StateRules() []Rule {
	return []Rule{
		{Name: "revoked", Matches: Revoked, Kind: Denied, Reason: models.ReasonRevoked},
		{Name: "expired", Matches: Expired, Kind: Denied, Reason: models.ReasonExpired},
		{Name: "limit-reached", Matches: LimitReached, Kind: Denied, Reason: models.ReasonLimitReached},
	}
}

func DefaultRules(v credential.Verifier) []Rule {
	return append(StateRules(),
		Rule{Name: "password-required", Matches: PasswordMissing, Kind: PasswordRequired, Reason: models.ReasonPasswordRequired},
		Rule{Name: "bad-password", Matches: BadPassword(v), Kind: Denied, Reason: models.ReasonBadPassword},
	)
}

type Evaluator struct {
	rules []Rule
}

func NewEvaluator(v credential.Verifier) *Evaluator {
	return &Evaluator{rules: DefaultRules(v)}
}

func NewEvaluatorWithRules(rules []Rule) *Evaluator {
	return &Evaluator{rules: rules}
}

func (e *Evaluator) Evaluate(link models.ShareLink, now time.Time, password *string) Decision {
	return evaluate(e.rules, link, Request{Now: now, Password: password})
}

// EvaluateState applies the state rules alone. Used to explain why a
// conditional grant was rejected after a concurrent change.
func EvaluateState(link models.ShareLink, now time.Time) Decision {
	return evaluate(StateRules(), link, Request{Now: now})
}

func evaluate(rules []Rule, link models.ShareLink, req Request) Decision {
	for _, rule := range rules {
		if rule.Matches(link, req) {
			return Decision{Kind: rule.Kind, Reason: rule.Reason, Rule: rule.Name}
		}
	}
	return Decision{Kind: Allow, Permission: link.Permission}
}
