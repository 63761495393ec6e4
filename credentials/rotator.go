package credentials

import "errors"

// ErrEmptyPool is returned when a Rotator is constructed over a pool with
// no credentials in it. This is a configuration fault and is surfaced
// before any directory contact is made.
var ErrEmptyPool = errors.New("credential pool is empty")

// Rotator hands out credentials from a pool in original pool order, never
// repeating one until every pool member has been used once. After a full
// cycle the used set is cleared, so rotation never starves — a pool of
// size one simply returns the same credential every time.
type Rotator struct {
	pool Pool
	used map[string]struct{}
}

func NewRotator(pool Pool) (*Rotator, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	return &Rotator{
		pool: pool,
		used: make(map[string]struct{}, len(pool)),
	}, nil
}

// Next returns the first credential in pool order whose identifier has not
// been handed out this cycle.
func (r *Rotator) Next() Credential {
	if len(r.used) >= len(r.pool) {
		clear(r.used)
	}
	for _, cred := range r.pool {
		if _, taken := r.used[cred.Identifier]; taken {
			continue
		}
		r.used[cred.Identifier] = struct{}{}
		return cred
	}
	// Duplicate identifiers can exhaust the scan before len(used) reaches
	// len(pool); start a fresh cycle.
	clear(r.used)
	r.used[r.pool[0].Identifier] = struct{}{}
	return r.pool[0]
}

// Fixed is the single-credential alternative to a Rotator: Next always
// returns the same credential and keeps no rotation state.
type Fixed struct {
	Credential Credential
}

func (f Fixed) Next() Credential {
	return f.Credential
}
