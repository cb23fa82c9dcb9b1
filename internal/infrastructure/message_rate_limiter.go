package infrastructure

import (
	"context"
	"sync"
	"time"

	"viloai/internal/entities"
	"viloai/internal/interfaces"

	"golang.org/x/time/rate"
)

type accountLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// ThrottledMessenger paces outgoing replies per Instagram account so a large
// sync or a burst of approvals stays under the Graph API send limits.
type ThrottledMessenger struct {
	next      interfaces.Messenger
	mu        sync.Mutex
	limiters  map[string]*accountLimiter
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
}

// NewThrottledMessenger allows perSecond sends per account with the given burst.
func NewThrottledMessenger(next interfaces.Messenger, perSecond float64, burst int) *ThrottledMessenger {
	if burst < 1 {
		burst = 1
	}
	return &ThrottledMessenger{
		next:      next,
		limiters:  make(map[string]*accountLimiter),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		idleTTL:   10 * time.Minute,
		lastSweep: time.Now(),
	}
}

func (t *ThrottledMessenger) limiterFor(accountID string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	// Drop limiters of accounts that have been idle for a while.
	if now.Sub(t.lastSweep) > t.idleTTL {
		for id, l := range t.limiters {
			if now.Sub(l.lastUsed) > t.idleTTL {
				delete(t.limiters, id)
			}
		}
		t.lastSweep = now
	}

	l, ok := t.limiters[accountID]
	if !ok {
		l = &accountLimiter{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.limiters[accountID] = l
	}
	l.lastUsed = now
	return l.limiter
}

func (t *ThrottledMessenger) SendDirectMessage(ctx context.Context, acct entities.InstagramAccount, recipientID, text string) (string, error) {
	if err := t.limiterFor(acct.ID).Wait(ctx); err != nil {
		return "", err
	}
	return t.next.SendDirectMessage(ctx, acct, recipientID, text)
}

func (t *ThrottledMessenger) ReplyToComment(ctx context.Context, acct entities.InstagramAccount, commentID, text string) (string, error) {
	if err := t.limiterFor(acct.ID).Wait(ctx); err != nil {
		return "", err
	}
	return t.next.ReplyToComment(ctx, acct, commentID, text)
}

// ActiveAccounts returns how many accounts currently hold a limiter.
func (t *ThrottledMessenger) ActiveAccounts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}
