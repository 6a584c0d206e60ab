package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gopay-next/internal/config"
	"github.com/gopay-next/internal/constants"
	"github.com/gopay-next/internal/epay"
	"github.com/gopay-next/internal/logger"
	"github.com/gopay-next/internal/merchant"
	"github.com/gopay-next/internal/models"
	alipaychan "github.com/gopay-next/internal/payment/alipay"
	wxchan "github.com/gopay-next/internal/payment/wechatpay"
	"github.com/gopay-next/internal/repository"
)

// 提交结果的 payurl 形态
const (
	PayURLTypeNone   = "none"
	PayURLTypeBase64 = "base64"
)

const wechatH5AppName = "GOPAY"

// SubmitInput 下单请求，字段已由入口层完成格式校验
type SubmitInput struct {
	// Params 原始提交参数，用于复算签名
	Params     map[string]string
	Sign       string
	Money      string
	Name       string
	NotifyURL  string
	ReturnURL  string
	OutTradeNo string
	PID        string
	Type       string
	UserAgent  string
	ClientIP   string
}

// SubmitResult 下单结果
type SubmitResult struct {
	PayURL string
	// Type 为 base64 时 payurl 需要前端解码后跳转
	Type string
}

// SubmitService 下单流程：验签、选渠道、生成支付地址、落单
type SubmitService struct {
	cfg       *config.Config
	merchants *merchant.Registry
	orders    repository.OrderRepository
	alipay    *alipaychan.Manager
	wxpay     *wxchan.Manager

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSubmitService 创建下单服务
func NewSubmitService(
	cfg *config.Config,
	merchants *merchant.Registry,
	orders repository.OrderRepository,
	alipayMgr *alipaychan.Manager,
	wxpayMgr *wxchan.Manager,
) *SubmitService {
	return &SubmitService{
		cfg:       cfg,
		merchants: merchants,
		orders:    orders,
		alipay:    alipayMgr,
		wxpay:     wxpayMgr,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Submit 处理一次易支付下单
func (s *SubmitService) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	pid, err := strconv.Atoi(input.PID)
	if err != nil {
		return nil, ErrMerchantNotFound
	}
	m, ok := s.merchants.Get(pid)
	if !ok {
		return nil, ErrMerchantNotFound
	}

	// 校验提交签名，确认请求来自已接入的源站
	if !epay.Verify(epay.FilterParams(input.Params), input.Sign, m.Key) {
		return nil, ErrSignInvalid
	}

	mobile := epay.IsMobileUA(input.UserAgent)
	switch input.Type {
	case constants.ChannelAlipay:
		return s.submitAlipay(ctx, input, pid, mobile)
	case constants.ChannelWxpay:
		return s.submitWxpay(ctx, input, pid, mobile)
	default:
		return nil, ErrUnsupportedChannel
	}
}

func (s *SubmitService) submitAlipay(ctx context.Context, input SubmitInput, pid int, mobile bool) (*SubmitResult, error) {
	inst, err := s.alipay.Instance()
	if err != nil {
		return nil, ErrAlipayNotEnabled
	}

	subject := s.rewriteText(s.cfg.Form.Subject, input.Name)
	body := s.rewriteText(s.cfg.Form.Body, "")

	payURL, err := inst.CreatePayment(ctx, alipaychan.CreateInput{
		OutTradeNo: input.OutTradeNo,
		Amount:     input.Money,
		Subject:    subject,
		Body:       body,
		NotifyURL:  s.cfg.Web.PayURL + "/pay/alipay_notify",
		ReturnURL:  s.cfg.Web.PayURL + "/pay/alipay_return",
	}, mobile)
	if err != nil {
		logger.Warnw("submit_alipay_create_failed", "pid", pid, "out_trade_no", input.OutTradeNo, "error", err)
		return nil, ErrCreateOrderFailed
	}

	order := &models.Order{
		ID:         models.NewOrderID(),
		OutTradeNo: input.OutTradeNo,
		NotifyURL:  input.NotifyURL,
		ReturnURL:  input.ReturnURL,
		Type:       input.Type,
		PID:        pid,
		Title:      input.Name,
		Money:      input.Money,
		Status:     constants.OrderStatusUnpaid,
	}
	if err := s.orders.Create(order); err != nil {
		logger.Warnw("submit_alipay_persist_failed", "pid", pid, "out_trade_no", input.OutTradeNo, "error", err)
		return nil, ErrCreateOrderFailed
	}
	logger.Infow("submit_order_created", "channel", input.Type, "order_id", order.ID, "out_trade_no", order.OutTradeNo)

	return &SubmitResult{PayURL: payURL, Type: PayURLTypeNone}, nil
}

func (s *SubmitService) submitWxpay(ctx context.Context, input SubmitInput, pid int, mobile bool) (*SubmitResult, error) {
	inst, err := s.wxpay.Instance()
	if err != nil {
		return nil, ErrWxpayNotEnabled
	}

	fen, err := wxchan.ConvertAmountToFen(input.Money)
	if err != nil {
		return nil, fmt.Errorf("创建微信订单错误: %w", err)
	}

	// 微信侧使用网关自己的订单号，源站订单号仅在回调时透传
	orderID := models.NewOrderID()
	notifyURL := s.cfg.Web.PayURL + "/pay/wxpay_notify/" + inst.AppID()

	channel := wxchan.ChannelNative
	if mobile {
		channel = wxchan.ChannelH5
	}
	form, err := inst.BuildForm(channel, wxchan.FormData{
		OutTradeNo:  orderID,
		Description: s.rewriteText(s.cfg.Form.Subject, input.Name),
		TotalFen:    fen,
		NotifyURL:   notifyURL,
		ClientIP:    input.ClientIP,
		AppName:     wechatH5AppName,
		AppURL:      s.cfg.Web.PayURL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建微信订单错误: %w", err)
	}

	created, err := inst.CreatePayment(ctx, form)
	if err != nil {
		logger.Warnw("submit_wxpay_create_failed", "pid", pid, "out_trade_no", input.OutTradeNo, "error", err)
		return nil, fmt.Errorf("创建微信订单错误: %w", err)
	}

	result := &SubmitResult{Type: PayURLTypeNone}
	if form.Scene == nil {
		// 扫码流程跳转到网关自身的二维码页，整体 base64 防止嵌套跳转时被转义
		nativeURL := s.cfg.Web.PayURL + "/pay/wxpay/native?cr=" + url.QueryEscape(created.CodeURL) +
			"&out_trade_no=" + orderID + "&ua=" + uaLabel(mobile)
		result.PayURL = base64.StdEncoding.EncodeToString([]byte(nativeURL))
		result.Type = PayURLTypeBase64
	} else {
		result.PayURL = created.H5URL
	}

	order := &models.Order{
		ID:         orderID,
		OutTradeNo: input.OutTradeNo,
		NotifyURL:  input.NotifyURL,
		ReturnURL:  input.ReturnURL,
		Type:       input.Type,
		PID:        pid,
		Title:      input.Name,
		Money:      input.Money,
		Status:     constants.OrderStatusUnpaid,
	}
	if err := s.orders.Create(order); err != nil {
		logger.Warnw("submit_wxpay_persist_failed", "pid", pid, "out_trade_no", input.OutTradeNo, "error", err)
		return nil, ErrCreateOrderFailed
	}
	logger.Infow("submit_order_created", "channel", input.Type, "order_id", order.ID, "out_trade_no", order.OutTradeNo)

	return result, nil
}

// rewriteText 按配置用随机文案替换渠道可见的订单文案
func (s *SubmitService) rewriteText(cfg config.FormRewriteConfig, original string) string {
	if !cfg.Rewrite || len(cfg.Text) == 0 {
		return original
	}
	s.mu.Lock()
	idx := s.rng.Intn(len(cfg.Text))
	s.mu.Unlock()
	return cfg.Text[idx]
}

func uaLabel(mobile bool) string {
	if mobile {
		return "mobile"
	}
	return "pc"
}
