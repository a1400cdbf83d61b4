package policy

import (
	"testing"
	"time"

	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
	"github.com/stretchr/testify/assert"
)

type plainVerifier struct {
	calls int
}

func (v *plainVerifier) Hash(plain string) (string, error) { return "hash:" + plain, nil }

func (v *plainVerifier) Verify(hash string, plain string) bool {
	v.calls++
	return hash == "hash:"+plain
}

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func activeLink() models.ShareLink {
	return models.ShareLink{
		ID:         "link-1",
		IsActive:   true,
		Permission: models.ReadOnly | models.AllowCopy,
	}
}

func TestRevoked(t *testing.T) {
	link := activeLink()
	assert.False(t, Revoked(link, Request{Now: now}))
	link.IsActive = false
	assert.True(t, Revoked(link, Request{Now: now}))
}

func TestExpiredHasNoGraceWindow(t *testing.T) {
	link := activeLink()
	assert.False(t, Expired(link, Request{Now: now}), "no expiry set")

	link.ExpiresAt = ptr(now.Add(time.Nanosecond))
	assert.False(t, Expired(link, Request{Now: now}))

	link.ExpiresAt = ptr(now)
	assert.True(t, Expired(link, Request{Now: now}))

	link.ExpiresAt = ptr(now.Add(-time.Second))
	assert.True(t, Expired(link, Request{Now: now}))
}

func TestLimitReached(t *testing.T) {
	link := activeLink()
	link.AccessCount = 1000
	assert.False(t, LimitReached(link, Request{}), "zero max means unlimited")

	link.MaxAccessCount = 2
	link.AccessCount = 1
	assert.False(t, LimitReached(link, Request{}))
	link.AccessCount = 2
	assert.True(t, LimitReached(link, Request{}))
}

func TestPasswordRules(t *testing.T) {
	v := &plainVerifier{}
	bad := BadPassword(v)

	link := activeLink()
	assert.False(t, PasswordMissing(link, Request{}))
	assert.False(t, bad(link, Request{Password: ptr("anything")}))

	link.PasswordHash = ptr("hash:p")
	assert.True(t, PasswordMissing(link, Request{}))
	assert.False(t, PasswordMissing(link, Request{Password: ptr("p")}))
	assert.True(t, bad(link, Request{Password: ptr("wrong")}))
	assert.False(t, bad(link, Request{Password: ptr("p")}))
}

func TestEvaluate(t *testing.T) {
	v := &plainVerifier{}
	e := NewEvaluator(v)

	d := e.Evaluate(activeLink(), now, nil)
	assert.Equal(t, Allow, d.Kind)
	assert.Equal(t, models.ReadOnly|models.AllowCopy, d.Permission)

	protected := activeLink()
	protected.PasswordHash = ptr("hash:p")

	d = e.Evaluate(protected, now, nil)
	assert.Equal(t, PasswordRequired, d.Kind)
	assert.Equal(t, models.ReasonPasswordRequired, d.Reason)

	d = e.Evaluate(protected, now, ptr("wrong"))
	assert.Equal(t, Denied, d.Kind)
	assert.Equal(t, models.ReasonBadPassword, d.Reason)

	d = e.Evaluate(protected, now, ptr("p"))
	assert.Equal(t, Allow, d.Kind)
}

func TestEvaluateOrder(t *testing.T) {
	v := &plainVerifier{}
	e := NewEvaluator(v)

	link := activeLink()
	link.IsActive = false
	link.ExpiresAt = ptr(now.Add(-time.Hour))
	link.MaxAccessCount = 1
	link.AccessCount = 1
	link.PasswordHash = ptr("hash:p")

	d := e.Evaluate(link, now, ptr("wrong"))
	assert.Equal(t, models.ReasonRevoked, d.Reason)

	link.IsActive = true
	d = e.Evaluate(link, now, ptr("wrong"))
	assert.Equal(t, models.ReasonExpired, d.Reason)

	link.ExpiresAt = nil
	d = e.Evaluate(link, now, ptr("wrong"))
	assert.Equal(t, models.ReasonLimitReached, d.Reason)

	link.AccessCount = 0
	d = e.Evaluate(link, now, ptr("wrong"))
	assert.Equal(t, models.ReasonBadPassword, d.Reason)

	// state denials never reach password verification
	assert.Equal(t, 1, v.calls)
}

func TestEvaluateState(t *testing.T) {
	link := activeLink()
	link.PasswordHash = ptr("hash:p")
	assert.Equal(t, Allow, EvaluateState(link, now).Kind)

	link.MaxAccessCount = 3
	link.AccessCount = 3
	d := EvaluateState(link, now)
	assert.Equal(t, Denied, d.Kind)
	assert.Equal(t, "limit-reached", d.Rule)
}

func TestCustomRules(t *testing.T) {
	e := NewEvaluatorWithRules([]Rule{
		{Name: "never", Matches: func(models.ShareLink, Request) bool { return true }, Kind: Denied, Reason: models.ReasonRevoked},
	})
	d := e.Evaluate(activeLink(), now, nil)
	assert.Equal(t, "never", d.Rule)
}
