package inventory

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Reclaimer releases the reservations of carts nobody has touched within the
// TTL. It does not own a timer: something outside calls Sweep on an interval.
type Reclaimer struct {
	store Store
	coord *Coordinator
	ttl   time.Duration
	log   *logrus.Entry
	now   func() time.Time
}

func NewReclaimer(store Store, coord *Coordinator, ttl time.Duration, log *logrus.Entry) *Reclaimer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Reclaimer{
		store: store,
		coord: coord,
		ttl:   ttl,
		log:   log.WithField("component", "cart-reclaimer"),
		now:   time.Now,
	}
}

// Sweep releases every expired cart, one transaction per cart so a failing
// cart cannot block the rest. Failures are logged and retried on the next
// sweep. Returns the number of carts reclaimed.
func (r *Reclaimer) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.ttl)
	cartIDs, err := r.store.StaleCarts(ctx, cutoff)
	if err != nil {
		r.log.WithError(err).Error("failed to list stale carts")
		return 0
	}

	reclaimed := 0
	for _, cartID := range cartIDs {
		if ctx.Err() != nil {
			return reclaimed
		}
		if err := r.coord.ReleaseAll(ctx, cartID); err != nil {
			r.log.WithError(err).WithField("cart_id", cartID).Warn("failed to reclaim cart, will retry next sweep")
			continue
		}
		reclaimed++
	}
	if reclaimed > 0 {
		r.log.WithField("carts", reclaimed).Info("reclaimed expired carts")
	}
	return reclaimed
}
