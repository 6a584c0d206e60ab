package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/gopay-next/internal/constants"
	"github.com/gopay-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupOrderRepositoryTest(t *testing.T) *GormOrderRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:order_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewOrderRepository(db)
}

func newTestOrder(id, outTradeNo, channel string) *models.Order {
	return &models.Order{
		ID:         id,
		OutTradeNo: outTradeNo,
		NotifyURL:  "http://shop.example.com/notify",
		ReturnURL:  "http://shop.example.com/return",
		Type:       channel,
		PID:        1001,
		Title:      "测试商品",
		Money:      "1.00",
		Status:     constants.OrderStatusUnpaid,
	}
}

func TestOrderRepositoryCreateAndGetByID(t *testing.T) {
	repo := setupOrderRepositoryTest(t)
	if err := repo.Create(newTestOrder("ORDER1", "A123", constants.ChannelAlipay)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	order, err := repo.GetByID("ORDER1")
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if order == nil || order.OutTradeNo != "A123" {
		t.Fatalf("unexpected order: %+v", order)
	}

	missing, err := repo.GetByID("NOPE")
	if err != nil {
		t.Fatalf("get missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing order")
	}

	empty, err := repo.GetByID("  ")
	if err != nil || empty != nil {
		t.Fatalf("blank id should return nil, got %+v err=%v", empty, err)
	}
}

func TestOrderRepositoryGetLatestByOutTradeNo(t *testing.T) {
	repo := setupOrderRepositoryTest(t)

	older := newTestOrder("ORDER1", "A123", constants.ChannelAlipay)
	older.CreatedAt = time.Now().Add(-time.Hour)
	if err := repo.Create(older); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	newer := newTestOrder("ORDER2", "A123", constants.ChannelAlipay)
	newer.CreatedAt = time.Now()
	if err := repo.Create(newer); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	wxOrder := newTestOrder("ORDER3", "A123", constants.ChannelWxpay)
	if err := repo.Create(wxOrder); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.GetLatestByOutTradeNo("A123", constants.ChannelAlipay)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if got == nil || got.ID != "ORDER2" {
		t.Fatalf("expected latest alipay order ORDER2, got %+v", got)
	}

	// channel 过滤
	gotWx, err := repo.GetLatestByOutTradeNo("A123", constants.ChannelWxpay)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if gotWx == nil || gotWx.ID != "ORDER3" {
		t.Fatalf("expected wxpay order ORDER3, got %+v", gotWx)
	}

	none, err := repo.GetLatestByOutTradeNo("B999", constants.ChannelAlipay)
	if err != nil || none != nil {
		t.Fatalf("missing out_trade_no should return nil, got %+v err=%v", none, err)
	}
}

func TestOrderRepositoryMarkPaidFlipsOnce(t *testing.T) {
	repo := setupOrderRepositoryTest(t)
	if err := repo.Create(newTestOrder("ORDER1", "A123", constants.ChannelAlipay)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	flipped, err := repo.MarkPaid("ORDER1")
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if !flipped {
		t.Fatalf("first mark paid should flip")
	}

	again, err := repo.MarkPaid("ORDER1")
	if err != nil {
		t.Fatalf("second mark paid failed: %v", err)
	}
	if again {
		t.Fatalf("second mark paid must not flip again")
	}

	order, err := repo.GetByID("ORDER1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !order.Paid() {
		t.Fatalf("order should be paid")
	}

	missing, err := repo.MarkPaid("NOPE")
	if err != nil || missing {
		t.Fatalf("missing order should not flip, got %v err=%v", missing, err)
	}
}
