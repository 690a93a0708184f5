package workflow_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/utils"
	"bitbucket.org/papermoa/trade_backend/workflow"
)

// End-to-end ledger regression tests against real MySQL + redis in docker.
// Gated behind INTEGRATION_TESTS=1.

type tradeFixture struct {
	db     *gorm.DB
	logger *logrus.Logger
	buyer  models.Company
	seller models.Company

	buyerUser  models.User
	sellerUser models.User

	product   models.Product
	skid      models.Packaging
	warehouse models.Warehouse
}

func setupTradeFixture(t *testing.T) *tradeFixture {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "trade_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	f := &tradeFixture{
		db:     config.GetDB(),
		logger: config.GetLogger(),
	}

	f.buyer = models.Company{
		BusinessName:              "Buyer Co",
		CompanyRegistrationNumber: "1112223334",
		InvoiceCode:               "BYR",
	}
	f.seller = models.Company{
		BusinessName:              "Seller Co",
		CompanyRegistrationNumber: "5556667778",
		InvoiceCode:               "SLR",
	}
	for _, c := range []*models.Company{&f.buyer, &f.seller} {
		if err := f.db.Create(c).Error; err != nil {
			t.Fatalf("seed company %s: %v", c.BusinessName, err)
		}
	}
	if err := f.db.Create(&models.BusinessRelationship{
		SrcCompanyId: f.buyer.ID,
		DstCompanyId: f.seller.ID,
		IsActivated:  true,
	}).Error; err != nil {
		t.Fatalf("seed relationship: %v", err)
	}

	f.buyerUser = models.User{CompanyId: f.buyer.ID, Username: "buyer", Name: "Buyer"}
	f.sellerUser = models.User{CompanyId: f.seller.ID, Username: "seller", Name: "Seller"}
	for _, u := range []*models.User{&f.buyerUser, &f.sellerUser} {
		if err := f.db.Create(u).Error; err != nil {
			t.Fatalf("seed user %s: %v", u.Username, err)
		}
	}

	f.product = models.Product{PaperDomainId: 1, PaperGroupId: 1, PaperTypeId: 1, ManufacturerId: 1}
	if err := f.db.Create(&f.product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	f.skid = models.Packaging{Name: "SKID", Type: models.PackagingTypeSkid, PackCount: 1}
	if err := f.db.Create(&f.skid).Error; err != nil {
		t.Fatalf("seed packaging: %v", err)
	}
	f.warehouse = models.Warehouse{CompanyId: f.seller.ID, Name: "Main"}
	if err := f.db.Create(&f.warehouse).Error; err != nil {
		t.Fatalf("seed warehouse: %v", err)
	}
	return f
}

func (f *tradeFixture) spec(grammage int) models.GoodSpec {
	return models.GoodSpec{
		ProductId:   f.product.ID,
		PackagingId: f.skid.ID,
		Grammage:    grammage,
		SizeX:       788,
		SizeY:       1091,
	}
}

// seedStock plants a stock row with a NORMAL opening event.
func (f *tradeFixture) seedStock(t *testing.T, companyId int, warehouseId *int, spec models.GoodSpec, quantity int64) models.Stock {
	t.Helper()
	stock := models.Stock{
		Serial:      fmt.Sprintf("P-SEED-%d", time.Now().UnixNano()),
		CompanyId:   companyId,
		WarehouseId: warehouseId,
		GoodSpec:    spec,
	}
	if err := f.db.Create(&stock).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	if _, err := workflow.AppendStockEvent(f.db, f.logger, stock.ID, decimal.NewFromInt(quantity), models.StockEventStatusNormal, workflow.StockEventLinks{}); err != nil {
		t.Fatalf("seed stock event: %v", err)
	}
	return stock
}

func (f *tradeFixture) groupInput(warehouseId *int, spec models.GoodSpec, quantity int64) workflow.StockGroupInput {
	return workflow.StockGroupInput{
		WarehouseId:       warehouseId,
		ProductId:         spec.ProductId,
		PackagingId:       spec.PackagingId,
		Grammage:          spec.Grammage,
		SizeX:             spec.SizeX,
		SizeY:             spec.SizeY,
		PaperColorGroupId: spec.PaperColorGroupId,
		PaperColorId:      spec.PaperColorId,
		PaperPatternId:    spec.PaperPatternId,
		PaperCertId:       spec.PaperCertId,
		Quantity:          decimal.NewFromInt(quantity),
	}
}

func (f *tradeFixture) groupKey(companyId int, warehouseId *int, spec models.GoodSpec) workflow.StockGroupKey {
	return workflow.StockGroupKey{
		CompanyId:   companyId,
		WarehouseId: warehouseId,
		GoodSpec:    spec,
	}
}

func (f *tradeFixture) availability(t *testing.T, key workflow.StockGroupKey) decimal.Decimal {
	t.Helper()
	available, err := workflow.GetStockGroupAvailableQuantity(f.db, key)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	return available
}

// assertLedgerMatchesCache verifies the core ledger invariant: for every
// stock, the cached snapshot equals the sum over non-cancelled events.
func (f *tradeFixture) assertLedgerMatchesCache(t *testing.T) {
	t.Helper()
	var stocks []models.Stock
	if err := f.db.Find(&stocks).Error; err != nil {
		t.Fatalf("list stocks: %v", err)
	}
	for _, stock := range stocks {
		var total *decimal.Decimal
		err := f.db.Model(&models.StockEvent{}).
			Where("stock_id = ?", stock.ID).
			Where("status <> ?", models.StockEventStatusCancelled).
			Select("SUM(`change`)").
			Scan(&total).Error
		if err != nil {
			t.Fatalf("sum events of stock %d: %v", stock.ID, err)
		}
		want := decimal.Zero
		if total != nil {
			want = *total
		}
		if !stock.CachedQuantityAvailable.Equal(want) {
			t.Fatalf("stock %d cache %s != ledger sum %s", stock.ID, stock.CachedQuantityAvailable, want)
		}
	}
}

func TestNormalOrderLifecycle_ReservesAndRestores(t *testing.T) {
	f := setupTradeFixture(t)
	ctx := context.Background()

	spec := f.spec(80)
	f.seedStock(t, f.seller.ID, &f.warehouse.ID, spec, 150)
	sellerKey := f.groupKey(f.seller.ID, &f.warehouse.ID, spec)

	// buyer creates a NORMAL order for 100 out of the seller's 150
	order, err := workflow.CreateNormalOrder(ctx, workflow.CreateNormalOrderParams{
		CreateOrderBase: workflow.CreateOrderBase{
			ActorCompanyId: f.buyer.ID,
			UserId:         f.buyerUser.ID,
			SrcCompanyId:   f.buyer.ID,
			DstCompanyId:   f.seller.ID,
			OrderDate:      time.Now(),
		},
		StockGroupInput: f.groupInput(&f.warehouse.ID, spec, 100),
	})
	if err != nil {
		t.Fatalf("CreateNormalOrder: %v", err)
	}
	if order.Status != models.OrderStatusOrderPreparing {
		t.Fatalf("expected ORDER_PREPARING, got %s", order.Status)
	}

	if _, err := workflow.RequestOrder(ctx, f.buyer.ID, f.buyerUser.ID, order.ID); err != nil {
		t.Fatalf("RequestOrder: %v", err)
	}
	// order path: nothing reserved until the seller accepts
	if got := f.availability(t, sellerKey); !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("availability after request = %s; want 150", got)
	}

	accepted, err := workflow.AcceptOrder(ctx, f.seller.ID, f.sellerUser.ID, order.ID)
	if err != nil {
		t.Fatalf("AcceptOrder: %v", err)
	}
	if accepted.Status != models.OrderStatusAccepted {
		t.Fatalf("expected ACCEPTED, got %s", accepted.Status)
	}
	if got := f.availability(t, sellerKey); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("seller availability after accept = %s; want 50", got)
	}

	// buyer received one pending incoming stock of +100 under a new plan
	var buyerStocks []models.Stock
	if err := f.db.Where("company_id = ?", f.buyer.ID).Find(&buyerStocks).Error; err != nil {
		t.Fatalf("list buyer stocks: %v", err)
	}
	if len(buyerStocks) != 1 {
		t.Fatalf("expected 1 buyer stock, got %d", len(buyerStocks))
	}
	if buyerStocks[0].InitialPlanId == nil {
		t.Fatal("buyer stock should carry its producing plan")
	}
	var incoming []models.StockEvent
	if err := f.db.Where("stock_id = ?", buyerStocks[0].ID).Find(&incoming).Error; err != nil {
		t.Fatalf("list buyer events: %v", err)
	}
	if len(incoming) != 1 || incoming[0].Status != models.StockEventStatusPending ||
		!incoming[0].Change.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected one +100 PENDING incoming event, got %+v", incoming)
	}

	f.assertLedgerMatchesCache(t)

	// cancel flips the assign event and recomputes the seller group back up
	if _, err := workflow.CancelOrder(ctx, f.seller.ID, f.sellerUser.ID, order.ID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if got := f.availability(t, sellerKey); !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("seller availability after cancel = %s; want 150", got)
	}
	buyerKey := f.groupKey(f.buyer.ID, nil, spec)
	if got := f.availability(t, buyerKey); !got.Equal(decimal.Zero) {
		t.Fatalf("buyer availability after cancel = %s; want 0", got)
	}
	f.assertLedgerMatchesCache(t)
}

func TestOfferPath_RejectThenResetRoundTrip(t *testing.T) {
	f := setupTradeFixture(t)
	ctx := context.Background()

	spec := f.spec(100)
	f.seedStock(t, f.seller.ID, &f.warehouse.ID, spec, 150)
	sellerKey := f.groupKey(f.seller.ID, &f.warehouse.ID, spec)

	// seller creates the order: offer path, reservation happens at request
	order, err := workflow.CreateNormalOrder(ctx, workflow.CreateNormalOrderParams{
		CreateOrderBase: workflow.CreateOrderBase{
			ActorCompanyId: f.seller.ID,
			UserId:         f.sellerUser.ID,
			SrcCompanyId:   f.buyer.ID,
			DstCompanyId:   f.seller.ID,
			OrderDate:      time.Now(),
		},
		StockGroupInput: f.groupInput(&f.warehouse.ID, spec, 100),
	})
	if err != nil {
		t.Fatalf("CreateNormalOrder: %v", err)
	}
	if order.Status != models.OrderStatusOfferPreparing {
		t.Fatalf("expected OFFER_PREPARING, got %s", order.Status)
	}

	if _, err := workflow.RequestOrder(ctx, f.seller.ID, f.sellerUser.ID, order.ID); err != nil {
		t.Fatalf("RequestOrder: %v", err)
	}
	if got := f.availability(t, sellerKey); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("availability after offer request = %s; want 50", got)
	}

	rejected, err := workflow.RejectOrder(ctx, f.buyer.ID, f.buyerUser.ID, order.ID)
	if err != nil {
		t.Fatalf("RejectOrder: %v", err)
	}
	if rejected.Status != models.OrderStatusOfferRejected {
		t.Fatalf("expected OFFER_REJECTED, got %s", rejected.Status)
	}
	if got := f.availability(t, sellerKey); !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("availability after reject = %s; want 150 (round trip)", got)
	}

	reset, err := workflow.ResetOrder(ctx, f.seller.ID, f.sellerUser.ID, order.ID)
	if err != nil {
		t.Fatalf("ResetOrder: %v", err)
	}
	if reset.Status != models.OrderStatusOfferPreparing {
		t.Fatalf("expected OFFER_PREPARING after reset, got %s", reset.Status)
	}
	if reset.Revision <= order.Revision {
		t.Fatalf("reset should bump revision: %d -> %d", order.Revision, reset.Revision)
	}
	if got := f.availability(t, sellerKey); !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("availability after reset = %s; want 150", got)
	}
	f.assertLedgerMatchesCache(t)
}

func TestConcurrentOfferRequests_NeverOversell(t *testing.T) {
	f := setupTradeFixture(t)
	ctx := context.Background()

	spec := f.spec(120)
	f.seedStock(t, f.seller.ID, &f.warehouse.ID, spec, 150)
	sellerKey := f.groupKey(f.seller.ID, &f.warehouse.ID, spec)

	// eight offers of 40 against 150 available: at most 3 can reserve
	const orders = 8
	orderIds := make([]int, 0, orders)
	for i := 0; i < orders; i++ {
		order, err := workflow.CreateNormalOrder(ctx, workflow.CreateNormalOrderParams{
			CreateOrderBase: workflow.CreateOrderBase{
				ActorCompanyId: f.seller.ID,
				UserId:         f.sellerUser.ID,
				SrcCompanyId:   f.buyer.ID,
				DstCompanyId:   f.seller.ID,
				OrderDate:      time.Now(),
			},
			StockGroupInput: f.groupInput(&f.warehouse.ID, spec, 40),
		})
		if err != nil {
			t.Fatalf("CreateNormalOrder #%d: %v", i, err)
		}
		orderIds = append(orderIds, order.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, orders)
	for i, orderId := range orderIds {
		wg.Add(1)
		go func(i, orderId int) {
			defer wg.Done()
			_, errs[i] = workflow.RequestOrder(ctx, f.seller.ID, f.sellerUser.ID, orderId)
		}(i, orderId)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 3 {
		t.Fatalf("expected exactly 3 successful reservations, got %d", succeeded)
	}
	got := f.availability(t, sellerKey)
	if !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("final availability = %s; want 30", got)
	}
	if got.IsNegative() {
		t.Fatalf("oversold: availability %s", got)
	}
	f.assertLedgerMatchesCache(t)
}

func TestOutsourceProcessAccept_QuantityConservation(t *testing.T) {
	f := setupTradeFixture(t)
	ctx := context.Background()

	spec := f.spec(150)
	f.seedStock(t, f.buyer.ID, nil, spec, 80)

	order, err := workflow.CreateOrderProcess(ctx, workflow.CreateOrderProcessParams{
		CreateOrderBase: workflow.CreateOrderBase{
			ActorCompanyId: f.buyer.ID,
			UserId:         f.buyerUser.ID,
			SrcCompanyId:   f.buyer.ID,
			DstCompanyId:   f.seller.ID,
			OrderDate:      time.Now(),
		},
		StockGroupInput: f.groupInput(nil, spec, 30),
	})
	if err != nil {
		t.Fatalf("CreateOrderProcess: %v", err)
	}
	if _, err := workflow.RequestOrder(ctx, f.buyer.ID, f.buyerUser.ID, order.ID); err != nil {
		t.Fatalf("RequestOrder: %v", err)
	}
	if _, err := workflow.AcceptOrder(ctx, f.seller.ID, f.sellerUser.ID, order.ID); err != nil {
		t.Fatalf("AcceptOrder: %v", err)
	}

	full, err := workflow.GetOrder(f.db, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if full.OrderProcess == nil {
		t.Fatal("missing process sub-record")
	}

	var buyerPlan, sellerPlan models.Plan
	if err := f.db.Where("order_process_id = ? AND type = ?", full.OrderProcess.ID,
		models.PlanTypeTradeOutsourceProcessBuyer).First(&buyerPlan).Error; err != nil {
		t.Fatalf("buyer plan: %v", err)
	}
	if err := f.db.Where("order_process_id = ? AND type = ?", full.OrderProcess.ID,
		models.PlanTypeTradeOutsourceProcessSeller).First(&sellerPlan).Error; err != nil {
		t.Fatalf("seller plan: %v", err)
	}

	var task models.Task
	if err := f.db.Where("plan_id = ? AND type = ?", buyerPlan.ID, models.TaskTypeRelease).
		First(&task).Error; err != nil {
		t.Fatalf("release task: %v", err)
	}
	var arrival models.StockEvent
	if err := f.db.Where("plan_id = ?", sellerPlan.ID).First(&arrival).Error; err != nil {
		t.Fatalf("seller arrival event: %v", err)
	}

	want := decimal.NewFromInt(30)
	if !task.Quantity.Equal(want) || !arrival.Change.Equal(want) {
		t.Fatalf("conservation violated: task=%s arrival=%s order=%s",
			task.Quantity, arrival.Change, want)
	}
	f.assertLedgerMatchesCache(t)
}

func TestDepositOrderAccept_GrowsPairBalance(t *testing.T) {
	f := setupTradeFixture(t)
	ctx := context.Background()

	spec := f.spec(180)
	order, err := workflow.CreateDepositOrder(ctx, workflow.CreateDepositOrderParams{
		CreateOrderBase: workflow.CreateOrderBase{
			ActorCompanyId: f.buyer.ID,
			UserId:         f.buyerUser.ID,
			SrcCompanyId:   f.buyer.ID,
			DstCompanyId:   f.seller.ID,
			OrderDate:      time.Now(),
		},
		StockGroupInput: f.groupInput(nil, spec, 500),
	})
	if err != nil {
		t.Fatalf("CreateDepositOrder: %v", err)
	}
	if _, err := workflow.RequestOrder(ctx, f.buyer.ID, f.buyerUser.ID, order.ID); err != nil {
		t.Fatalf("RequestOrder: %v", err)
	}
	if _, err := workflow.AcceptOrder(ctx, f.seller.ID, f.sellerUser.ID, order.ID); err != nil {
		t.Fatalf("AcceptOrder: %v", err)
	}

	var deposit models.Deposit
	if err := f.db.Where("src_company_registration_number = ?", f.buyer.CompanyRegistrationNumber).
		First(&deposit).Error; err != nil {
		t.Fatalf("deposit row: %v", err)
	}
	balance, err := workflow.GetDepositBalance(f.db, deposit.ID)
	if err != nil {
		t.Fatalf("GetDepositBalance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("balance = %s; want 500", balance)
	}

	// cancelling the order voids the ledger entry
	if _, err := workflow.CancelOrder(ctx, f.seller.ID, f.sellerUser.ID, order.ID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	balance, err = workflow.GetDepositBalance(f.db, deposit.ID)
	if err != nil {
		t.Fatalf("GetDepositBalance after cancel: %v", err)
	}
	if !balance.Equal(decimal.Zero) {
		t.Fatalf("balance after cancel = %s; want 0", balance)
	}
}

func TestSequentialReservationsSameGroup_NoLockStall(t *testing.T) {
	f := setupTradeFixture(t)
	ctx := context.Background()

	spec := f.spec(200)
	f.seedStock(t, f.seller.ID, &f.warehouse.ID, spec, 150)
	sellerKey := f.groupKey(f.seller.ID, &f.warehouse.ID, spec)

	// two back-to-back reservations on the same group must both go through
	// promptly; a leaked advisory lock would stall the second request for
	// the full GET_LOCK timeout on any other pooled connection
	orderIds := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		order, err := workflow.CreateNormalOrder(ctx, workflow.CreateNormalOrderParams{
			CreateOrderBase: workflow.CreateOrderBase{
				ActorCompanyId: f.seller.ID,
				UserId:         f.sellerUser.ID,
				SrcCompanyId:   f.buyer.ID,
				DstCompanyId:   f.seller.ID,
				OrderDate:      time.Now(),
			},
			StockGroupInput: f.groupInput(&f.warehouse.ID, spec, 40),
		})
		if err != nil {
			t.Fatalf("CreateNormalOrder #%d: %v", i, err)
		}
		orderIds = append(orderIds, order.ID)
	}

	start := time.Now()
	for i, orderId := range orderIds {
		if _, err := workflow.RequestOrder(ctx, f.seller.ID, f.sellerUser.ID, orderId); err != nil {
			t.Fatalf("RequestOrder #%d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 20*time.Second {
		t.Fatalf("sequential reservations took %s; group lock not released after commit", elapsed)
	}
	if got := f.availability(t, sellerKey); !got.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("availability = %s; want 70", got)
	}
}

func TestOutsourceProcessOffer_ManagedBuyerAccepts(t *testing.T) {
	f := setupTradeFixture(t)
	ctx := context.Background()

	managed := models.Company{
		BusinessName:              "Managed Mill",
		CompanyRegistrationNumber: "9998887776",
		InvoiceCode:               "MGM",
		ManagedById:               &f.seller.ID,
	}
	if err := f.db.Create(&managed).Error; err != nil {
		t.Fatalf("seed managed company: %v", err)
	}

	// a managed orderer tracks no stock; the offer must still be
	// acceptable by its managing seller
	spec := f.spec(220)
	order, err := workflow.CreateOrderProcess(ctx, workflow.CreateOrderProcessParams{
		CreateOrderBase: workflow.CreateOrderBase{
			ActorCompanyId: f.seller.ID,
			UserId:         f.sellerUser.ID,
			SrcCompanyId:   managed.ID,
			DstCompanyId:   f.seller.ID,
			OrderDate:      time.Now(),
		},
		StockGroupInput: f.groupInput(nil, spec, 30),
	})
	if err != nil {
		t.Fatalf("CreateOrderProcess: %v", err)
	}
	if _, err := workflow.RequestOrder(ctx, f.seller.ID, f.sellerUser.ID, order.ID); err != nil {
		t.Fatalf("RequestOrder: %v", err)
	}
	accepted, err := workflow.AcceptOrder(ctx, f.seller.ID, f.sellerUser.ID, order.ID)
	if err != nil {
		t.Fatalf("AcceptOrder: %v", err)
	}
	if accepted.Status != models.OrderStatusAccepted {
		t.Fatalf("expected ACCEPTED, got %s", accepted.Status)
	}

	full, err := workflow.GetOrder(f.db, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	var buyerPlans int64
	if err := f.db.Model(&models.Plan{}).
		Where("order_process_id = ? AND type = ?", full.OrderProcess.ID,
			models.PlanTypeTradeOutsourceProcessBuyer).
		Count(&buyerPlans).Error; err != nil {
		t.Fatalf("count buyer plans: %v", err)
	}
	if buyerPlans != 0 {
		t.Fatalf("managed orderer must not get a reservation plan, found %d", buyerPlans)
	}

	var sellerPlan models.Plan
	if err := f.db.Where("order_process_id = ? AND type = ?", full.OrderProcess.ID,
		models.PlanTypeTradeOutsourceProcessSeller).First(&sellerPlan).Error; err != nil {
		t.Fatalf("seller plan: %v", err)
	}
	var arrival models.StockEvent
	if err := f.db.Where("plan_id = ?", sellerPlan.ID).First(&arrival).Error; err != nil {
		t.Fatalf("seller arrival event: %v", err)
	}
	if !arrival.Change.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("arrival = %s; want 30", arrival.Change)
	}
}

func TestCreateNormalOrder_UnknownWarehouseRejected(t *testing.T) {
	f := setupTradeFixture(t)
	ctx := context.Background()

	spec := f.spec(240)
	f.seedStock(t, f.seller.ID, &f.warehouse.ID, spec, 150)

	bogus := f.warehouse.ID + 1000
	_, err := workflow.CreateNormalOrder(ctx, workflow.CreateNormalOrderParams{
		CreateOrderBase: workflow.CreateOrderBase{
			ActorCompanyId: f.buyer.ID,
			UserId:         f.buyerUser.ID,
			SrcCompanyId:   f.buyer.ID,
			DstCompanyId:   f.seller.ID,
			OrderDate:      time.Now(),
		},
		StockGroupInput: f.groupInput(&bogus, spec, 50),
	})
	if err == nil {
		t.Fatal("unknown warehouse id must be rejected")
	}
	if utils.KindOf(err) != utils.ErrorKindNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", utils.KindOf(err))
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("trade-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "redis-cli", "ping"); err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("trade-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=trade_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent"); err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
