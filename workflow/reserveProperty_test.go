package workflow

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/papermoa/trade_backend/models"
)

// In-memory model of the check-then-reserve critical section: per-group
// mutex keyed the same way as the advisory lock, availability re-checked
// under the lock. Races N goroutines against one group and asserts the
// balance never goes negative.

type memoryGuard struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	balance map[string]decimal.Decimal
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{
		locks:   map[string]*sync.Mutex{},
		balance: map[string]decimal.Decimal{},
	}
}

func (g *memoryGuard) lockOf(key StockGroupKey) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	name := stockGroupLockName(key)
	if g.locks[name] == nil {
		g.locks[name] = &sync.Mutex{}
	}
	return g.locks[name]
}

func (g *memoryGuard) seed(key StockGroupKey, quantity decimal.Decimal) {
	g.balance[key.String()] = quantity
}

func (g *memoryGuard) reserve(key StockGroupKey, quantity decimal.Decimal) bool {
	lock := g.lockOf(key)
	lock.Lock()
	defer lock.Unlock()

	g.mu.Lock()
	available := g.balance[key.String()]
	g.mu.Unlock()
	if available.LessThan(quantity) {
		return false
	}
	g.mu.Lock()
	g.balance[key.String()] = available.Sub(quantity)
	g.mu.Unlock()
	return true
}

func TestCheckThenReserve_NeverOversells(t *testing.T) {
	key := StockGroupKey{
		CompanyId: 1,
		GoodSpec:  models.GoodSpec{ProductId: 10, PackagingId: 20, Grammage: 80, SizeX: 788, SizeY: 1091},
	}
	guard := newMemoryGuard()
	guard.seed(key, decimal.NewFromInt(150))

	const workers = 32
	reserveQty := decimal.NewFromInt(40)

	var wg sync.WaitGroup
	results := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = guard.reserve(key, reserveQty)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, ok := range results {
		if ok {
			succeeded++
		}
	}
	// 150 / 40 = 3 full reservations, never 4
	if succeeded != 3 {
		t.Fatalf("expected exactly 3 reservations to win, got %d", succeeded)
	}
	remaining := guard.balance[key.String()]
	if remaining.IsNegative() {
		t.Fatalf("oversold: remaining %s", remaining)
	}
	if !remaining.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("remaining = %s; want 30", remaining)
	}
}

func TestCheckThenReserve_IndependentGroups(t *testing.T) {
	a := StockGroupKey{CompanyId: 1, GoodSpec: models.GoodSpec{ProductId: 10, PackagingId: 20, Grammage: 80, SizeX: 788}}
	b := a
	b.Grammage = 100

	guard := newMemoryGuard()
	guard.seed(a, decimal.NewFromInt(50))
	guard.seed(b, decimal.NewFromInt(50))

	if !guard.reserve(a, decimal.NewFromInt(50)) {
		t.Fatal("group a should cover its own reservation")
	}
	if !guard.reserve(b, decimal.NewFromInt(50)) {
		t.Fatal("draining group a must not affect group b")
	}
	if guard.reserve(a, decimal.NewFromInt(1)) {
		t.Fatal("group a is empty")
	}
}
