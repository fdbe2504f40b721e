package limiter

import (
	"sort"
	"sync"
)

// Keyed lazily creates one shared limiter per key from a single Config, for
// callers that limit per user, API key or IP. Limiters for different keys
// never share state.
type Keyed struct {
	cfg      Config
	opts     []Option
	limiters sync.Map // string -> *Shared[Limiter]
}

// NewKeyed validates cfg and returns an empty set.
func NewKeyed(cfg Config, opts ...Option) (*Keyed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Keyed{cfg: cfg, opts: opts}, nil
}

// Config returns the configuration every key's limiter is built from.
func (k *Keyed) Config() Config {
	return k.cfg
}

// Get returns the limiter for key, creating it on first use.
func (k *Keyed) Get(key string) *Shared[Limiter] {
	if v, ok := k.limiters.Load(key); ok {
		return v.(*Shared[Limiter])
	}
	// cfg was validated in NewKeyed, so Build cannot fail here.
	created, _ := BuildShared(k.cfg, k.opts...)
	v, _ := k.limiters.LoadOrStore(key, created)
	return v.(*Shared[Limiter])
}

// TryAcquire admits units against key's limiter.
func (k *Keyed) TryAcquire(key string, units uint32) bool {
	return k.Acquire(key, units).Allowed
}

// Acquire admits units against key's limiter and reports the resulting state.
// The acquire only lands on the limiter currently registered for key, so a
// concurrent Prune or Delete cannot strand it on a detached instance.
func (k *Keyed) Acquire(key string, units uint32) Decision {
	for {
		s := k.Get(key)
		var (
			d    Decision
			live bool
		)
		s.Do(func(core Limiter) {
			if v, ok := k.limiters.Load(key); !ok || v != s {
				return
			}
			live = true
			d = Decision{
				Allowed:  core.TryAcquire(units),
				Units:    units,
				Snapshot: snapshotOf(core),
			}
		})
		if live {
			return d
		}
	}
}

// Delete forgets key's limiter. A later Get starts from a fresh limiter.
func (k *Keyed) Delete(key string) {
	k.limiters.Delete(key)
}

// Len returns the number of keys with a limiter.
func (k *Keyed) Len() int {
	n := 0
	k.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Keys returns the known keys in sorted order.
func (k *Keyed) Keys() []string {
	var keys []string
	k.limiters.Range(func(key, _ any) bool {
		keys = append(keys, key.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// idler is implemented by cores that can tell, without changing state,
// whether their next refresh will leave them exactly as a limiter newly
// built at that moment.
type idler interface {
	idle() bool
}

// Prune forgets every limiter that a limiter built on the key's next use
// would reproduce exactly, so pruning never changes an admission decision.
// Limiters it keeps are left untouched. It returns the number removed. Call it periodically in long-running
// processes with many short-lived keys. Use TryAcquire or Acquire rather
// than holding on to a limiter from Get, which a prune may detach.
func (k *Keyed) Prune() int {
	removed := 0
	k.limiters.Range(func(key, v any) bool {
		s := v.(*Shared[Limiter])
		s.Do(func(core Limiter) {
			c, ok := core.(idler)
			if ok && c.idle() && k.limiters.CompareAndDelete(key, s) {
				removed++
			}
		})
		return true
	})
	return removed
}
