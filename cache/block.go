package cache

import "sync"

// Block is a per-query pinned reservation: the set of chunk keys a
// query has asked to hold onto across several Next calls. While a key
// is pinned, the cache's eviction pass skips it even if it becomes the
// least recently used entry, so a slow consumer reading one chunk at a
// time never has earlier chunks it still needs yanked out from under
// it. Release must be called when the query finishes (or is abandoned)
// to let the pins go away.
type Block struct {
	cache *Cache
	keys  map[Key]struct{}
}

// Reserve pins key for the lifetime of the returned Block.
func (b *Block) Reserve(key Key) {
	b.cache.pin(key)
	b.keys[key] = struct{}{}
}

// Release unpins every key this Block reserved, making those entries
// evictable again. Fetch never waits on pins, so nothing is woken.
func (b *Block) Release() {
	for key := range b.keys {
		b.cache.unpin(key)
	}
	b.keys = make(map[Key]struct{})
}

type pinSet struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count map[Key]int
}

func newPinSet() *pinSet {
	p := &pinSet{count: make(map[Key]int)}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *pinSet) add(key Key) {
	p.mu.Lock()
	p.count[key]++
	p.mu.Unlock()
}

func (p *pinSet) remove(key Key) {
	p.mu.Lock()
	if n := p.count[key]; n <= 1 {
		delete(p.count, key)
	} else {
		p.count[key] = n - 1
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *pinSet) pinned(key Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count[key] > 0
}

// waitForHeadroom blocks until fn reports true or there are no pins at
// all left to wait out, giving the caller a chance to re-check eviction
// feasibility after every unpin.
func (p *pinSet) waitForHeadroom(fn func() bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !fn() && len(p.count) > 0 {
		p.cond.Wait()
	}
}
