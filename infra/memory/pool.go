package memory

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ErrExhausted is returned by Get once the pool's live budget is spent.
var ErrExhausted = errors.New("memory: pool exhausted")

// Pool is a typed object pool with an optional budget on the number of
// objects handed out and not yet returned.
type Pool[T any] struct {
	p     *sync.Pool
	limit int64
	live  atomic.Int64
}

// NewPool builds a pool around ctor. A limit of 0 means unbounded.
func NewPool[T any](ctor func() *T, limit int) *Pool[T] {
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
		limit: int64(limit),
	}
}

// Get hands out an object, or ErrExhausted when the budget is spent.
// Objects come back exactly as they were Put.
func (p *Pool[T]) Get() (*T, error) {
	for {
		n := p.live.Load()
		if p.limit > 0 && n >= p.limit {
			return nil, errors.Wrapf(ErrExhausted, "limit %d", p.limit)
		}
		if p.live.CompareAndSwap(n, n+1) {
			break
		}
	}
	return p.p.Get().(*T), nil
}

// Put returns v to the pool. Every Put must pair with a successful Get.
func (p *Pool[T]) Put(v *T) {
	if p.live.Add(-1) < 0 {
		panic("memory.Pool: Put without matching Get")
	}
	p.p.Put(v)
}

// Live is the number of objects handed out and not yet returned.
func (p *Pool[T]) Live() int {
	return int(p.live.Load())
}

func (p *Pool[T]) Limit() int {
	return int(p.limit)
}
