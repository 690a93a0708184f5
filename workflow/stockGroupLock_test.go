package workflow

import (
	"testing"

	"bitbucket.org/papermoa/trade_backend/models"
)

func intPtr(v int) *int { return &v }

func TestStockGroupKeyString_NilVersusZero(t *testing.T) {
	base := StockGroupKey{
		CompanyId: 1,
		GoodSpec: models.GoodSpec{
			ProductId:   10,
			PackagingId: 20,
			Grammage:    80,
			SizeX:       788,
			SizeY:       1091,
		},
	}
	withZero := base
	withZero.PaperColorId = intPtr(0)

	if base.String() == withZero.String() {
		t.Fatal("nil and zero-valued nullable columns must produce distinct keys")
	}
}

func TestStockGroupKeyString_DistinctScopes(t *testing.T) {
	a := StockGroupKey{CompanyId: 1, GoodSpec: models.GoodSpec{ProductId: 10, PackagingId: 20, Grammage: 80, SizeX: 788}}
	b := a
	b.PlanId = intPtr(7)
	c := a
	c.WarehouseId = intPtr(7)

	if a.String() == b.String() || a.String() == c.String() || b.String() == c.String() {
		t.Fatal("plan scope and warehouse scope must not collide")
	}
}

func TestStockGroupLockName_FitsAdvisoryLockLimit(t *testing.T) {
	key := StockGroupKey{
		CompanyId:   123456789,
		WarehouseId: intPtr(987654321),
		PlanId:      intPtr(192837465),
		GoodSpec: models.GoodSpec{
			ProductId:         1000000,
			PackagingId:       2000000,
			Grammage:          300,
			SizeX:             99999,
			SizeY:             99999,
			PaperColorGroupId: intPtr(11111),
			PaperColorId:      intPtr(22222),
			PaperPatternId:    intPtr(33333),
			PaperCertId:       intPtr(44444),
		},
	}
	name := stockGroupLockName(key)
	if len(name) > 64 {
		t.Fatalf("lock name exceeds the 64-char advisory lock limit: %d", len(name))
	}

	other := key
	other.CompanyId++
	if stockGroupLockName(other) == name {
		t.Fatal("different groups must hash to different lock names")
	}
}
