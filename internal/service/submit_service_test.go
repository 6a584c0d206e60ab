package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/gopay-next/internal/config"
	"github.com/gopay-next/internal/constants"
	"github.com/gopay-next/internal/epay"
	"github.com/gopay-next/internal/merchant"
	"github.com/gopay-next/internal/models"
	alipaychan "github.com/gopay-next/internal/payment/alipay"
	wxchan "github.com/gopay-next/internal/payment/wechatpay"
	"github.com/gopay-next/internal/repository"
)

const (
	testPID = 1001
	testKey = "secretkey"
)

var orderIDPattern = regexp.MustCompile(`^[0-9A-F]{32}$`)

func testOrderRepo(t *testing.T) repository.OrderRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:submit_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return repository.NewOrderRepository(db)
}

func testAlipayManager(t *testing.T) *alipaychan.Manager {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key failed: %v", err)
	}
	priv := base64.StdEncoding.EncodeToString(x509.MarshalPKCS1PrivateKey(key))
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key failed: %v", err)
	}
	pub := base64.StdEncoding.EncodeToString(pubDER)
	return alipaychan.NewManager([]alipaychan.Config{{
		AppID:           "2021000000000001",
		PrivateKey:      priv,
		AlipayPublicKey: pub,
		IsProd:          true,
	}}, nil)
}

func signedInput(channel string) SubmitInput {
	params := map[string]string{
		"pid":          "1001",
		"type":         channel,
		"out_trade_no": "A123",
		"notify_url":   "http://shop.example.com/notify",
		"return_url":   "http://shop.example.com/return",
		"name":         "测试商品",
		"money":        "1.00",
	}
	return SubmitInput{
		Params:     params,
		Sign:       epay.Sign(params, testKey),
		Money:      params["money"],
		Name:       params["name"],
		NotifyURL:  params["notify_url"],
		ReturnURL:  params["return_url"],
		OutTradeNo: params["out_trade_no"],
		PID:        params["pid"],
		Type:       channel,
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		ClientIP:   "203.0.113.9",
	}
}

func newTestSubmitService(t *testing.T, alipayMgr *alipaychan.Manager, wxpayMgr *wxchan.Manager) (*SubmitService, repository.OrderRepository) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Web.PayURL = "https://pay.example.com"
	registry := merchant.NewRegistry([]config.MerchantEntry{{PID: testPID, Key: testKey}})
	repo := testOrderRepo(t)
	if alipayMgr == nil {
		alipayMgr = alipaychan.NewManager(nil, nil)
	}
	if wxpayMgr == nil {
		wxpayMgr = wxchan.NewManager(nil, nil)
	}
	return NewSubmitService(cfg, registry, repo, alipayMgr, wxpayMgr), repo
}

func TestSubmitRejectsUnknownMerchant(t *testing.T) {
	svc, _ := newTestSubmitService(t, nil, nil)

	input := signedInput(constants.ChannelAlipay)
	input.PID = "9999"
	if _, err := svc.Submit(context.Background(), input); !errors.Is(err, ErrMerchantNotFound) {
		t.Fatalf("expected ErrMerchantNotFound, got %v", err)
	}

	input = signedInput(constants.ChannelAlipay)
	input.PID = "abc"
	if _, err := svc.Submit(context.Background(), input); !errors.Is(err, ErrMerchantNotFound) {
		t.Fatalf("expected ErrMerchantNotFound for non numeric pid, got %v", err)
	}
}

func TestSubmitRejectsBadSign(t *testing.T) {
	svc, _ := newTestSubmitService(t, nil, nil)

	input := signedInput(constants.ChannelAlipay)
	input.Sign = "00000000000000000000000000000000"
	if _, err := svc.Submit(context.Background(), input); !errors.Is(err, ErrSignInvalid) {
		t.Fatalf("expected ErrSignInvalid, got %v", err)
	}

	input = signedInput(constants.ChannelAlipay)
	input.Params["money"] = "9999.00"
	if _, err := svc.Submit(context.Background(), input); !errors.Is(err, ErrSignInvalid) {
		t.Fatalf("expected ErrSignInvalid for tampered params, got %v", err)
	}
}

func TestSubmitRejectsUnsupportedChannel(t *testing.T) {
	svc, _ := newTestSubmitService(t, nil, nil)
	if _, err := svc.Submit(context.Background(), signedInput("qqpay")); !errors.Is(err, ErrUnsupportedChannel) {
		t.Fatalf("expected ErrUnsupportedChannel, got %v", err)
	}
}

func TestSubmitChannelNotEnabled(t *testing.T) {
	svc, _ := newTestSubmitService(t, nil, nil)
	if _, err := svc.Submit(context.Background(), signedInput(constants.ChannelAlipay)); !errors.Is(err, ErrAlipayNotEnabled) {
		t.Fatalf("expected ErrAlipayNotEnabled, got %v", err)
	}
	if _, err := svc.Submit(context.Background(), signedInput(constants.ChannelWxpay)); !errors.Is(err, ErrWxpayNotEnabled) {
		t.Fatalf("expected ErrWxpayNotEnabled, got %v", err)
	}
}

func TestSubmitAlipay(t *testing.T) {
	svc, repo := newTestSubmitService(t, testAlipayManager(t), nil)

	result, err := svc.Submit(context.Background(), signedInput(constants.ChannelAlipay))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Type != PayURLTypeNone {
		t.Fatalf("alipay payurl should not be encoded, got %s", result.Type)
	}
	if !strings.Contains(result.PayURL, "alipay.trade.page.pay") {
		t.Fatalf("desktop ua should create a page trade: %s", result.PayURL)
	}

	order, err := repo.GetLatestByOutTradeNo("A123", constants.ChannelAlipay)
	if err != nil {
		t.Fatalf("query order failed: %v", err)
	}
	if order == nil {
		t.Fatal("order was not persisted")
	}
	if !orderIDPattern.MatchString(order.ID) {
		t.Fatalf("unexpected order id: %s", order.ID)
	}
	if order.OutTradeNo != "A123" || order.PID != testPID || order.Money != "1.00" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.Status != constants.OrderStatusUnpaid {
		t.Fatalf("new order must be unpaid, status=%d", order.Status)
	}
}

func TestSubmitAlipayMobileUA(t *testing.T) {
	svc, _ := newTestSubmitService(t, testAlipayManager(t), nil)

	input := signedInput(constants.ChannelAlipay)
	input.UserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) Mobile/15E148"
	result, err := svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !strings.Contains(result.PayURL, "alipay.trade.wap.pay") {
		t.Fatalf("mobile ua should create a wap trade: %s", result.PayURL)
	}
}

func TestRewriteText(t *testing.T) {
	svc, _ := newTestSubmitService(t, nil, nil)

	plain := config.FormRewriteConfig{}
	if got := svc.rewriteText(plain, "原始标题"); got != "原始标题" {
		t.Fatalf("rewrite disabled should keep original: %s", got)
	}

	rewrite := config.FormRewriteConfig{Rewrite: true, Text: []string{"数码产品"}}
	if got := svc.rewriteText(rewrite, "原始标题"); got != "数码产品" {
		t.Fatalf("rewrite should replace the title: %s", got)
	}

	empty := config.FormRewriteConfig{Rewrite: true}
	if got := svc.rewriteText(empty, "原始标题"); got != "原始标题" {
		t.Fatalf("rewrite without candidates should keep original: %s", got)
	}
}
