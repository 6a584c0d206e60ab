package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gopay-next/internal/cache"
	"github.com/gopay-next/internal/config"
	"github.com/gopay-next/internal/constants"
	"github.com/gopay-next/internal/epay"
	"github.com/gopay-next/internal/logger"
	"github.com/gopay-next/internal/merchant"
	"github.com/gopay-next/internal/models"
	alipaychan "github.com/gopay-next/internal/payment/alipay"
	wxchan "github.com/gopay-next/internal/payment/wechatpay"
	"github.com/gopay-next/internal/queue"
	"github.com/gopay-next/internal/repository"
)

// NotifyService 渠道异步通知的核销流程：验签、幂等置位、回源转发
type NotifyService struct {
	cfg       *config.Config
	merchants *merchant.Registry
	orders    repository.OrderRepository
	alipay    *alipaychan.Manager
	wxpay     *wxchan.Manager
	forwarder *Forwarder
	queue     *queue.Client
}

// NewNotifyService 创建通知服务
func NewNotifyService(
	cfg *config.Config,
	merchants *merchant.Registry,
	orders repository.OrderRepository,
	alipayMgr *alipaychan.Manager,
	wxpayMgr *wxchan.Manager,
	forwarder *Forwarder,
	queueClient *queue.Client,
) *NotifyService {
	return &NotifyService{
		cfg:       cfg,
		merchants: merchants,
		orders:    orders,
		alipay:    alipayMgr,
		wxpay:     wxpayMgr,
		forwarder: forwarder,
		queue:     queueClient,
	}
}

// HandleAlipayNotify 处理支付宝异步通知。
// 返回值即应答渠道的响应体：fail 触发渠道重试，其余一律视为受理成功。
func (s *NotifyService) HandleAlipayNotify(ctx context.Context, form url.Values) string {
	appID := strings.TrimSpace(form.Get("app_id"))
	outTradeNo := strings.TrimSpace(form.Get("out_trade_no"))
	if appID == "" || outTradeNo == "" {
		logger.Infow("alipay_notify_empty_params", "app_id", appID, "out_trade_no", outTradeNo)
		return constants.CallbackAckFail
	}

	inst, err := s.alipay.InstanceByAppID(appID)
	if err != nil {
		logger.Infow("alipay_notify_instance_not_found", "app_id", appID, "out_trade_no", outTradeNo)
		return constants.CallbackAckFail
	}
	if err := inst.VerifyNotify(form); err != nil {
		logger.Infow("alipay_notify_sign_invalid", "app_id", appID, "out_trade_no", outTradeNo, "error", err)
		return constants.CallbackAckFail
	}

	tradeStatus := form.Get("trade_status")
	tradeNo := form.Get("trade_no")

	// 退款期限届满的终态通知，直接受理
	if tradeStatus == constants.AlipayTradeFinished {
		return constants.CallbackAckSuccess
	}

	order, err := s.orders.GetLatestByOutTradeNo(outTradeNo, constants.ChannelAlipay)
	if err != nil {
		logger.Warnw("alipay_notify_order_query_failed", "out_trade_no", outTradeNo, "error", err)
		return constants.CallbackAckSuccess
	}
	if order == nil {
		// 受理未知订单，避免渠道无限重试
		logger.Infow("alipay_notify_order_not_found", "app_id", appID, "out_trade_no", outTradeNo)
		return constants.CallbackAckSuccess
	}

	if tradeStatus != constants.AlipayTradeSuccess {
		return constants.CallbackAckSuccess
	}

	flipped, err := s.orders.MarkPaid(order.ID)
	if err != nil {
		logger.Warnw("alipay_notify_mark_paid_failed", "order_id", order.ID, "error", err)
		return constants.CallbackAckSuccess
	}
	if !flipped {
		// 重复通知，状态已翻转过
		return constants.CallbackAckSuccess
	}

	m, ok := s.merchants.Get(order.PID)
	if !ok {
		logger.Infow("alipay_notify_merchant_not_found", "order_id", order.ID, "pid", order.PID)
		return constants.CallbackAckSuccess
	}

	result := s.forwardOrigin(ctx, order, tradeNo, m.Key)
	if result != nil && result.StatusCode >= 200 && result.StatusCode < 500 {
		// 源站响应体原样转发给渠道
		return result.Body
	}
	return constants.CallbackAckSuccess
}

// HandleAlipayReturn 处理支付宝同步跳转，成功时返回带签名的源站跳转地址
func (s *NotifyService) HandleAlipayReturn(ctx context.Context, query url.Values) (string, error) {
	appID := strings.TrimSpace(query.Get("app_id"))
	outTradeNo := strings.TrimSpace(query.Get("out_trade_no"))
	if appID == "" || outTradeNo == "" {
		return "", ErrEmptyParams
	}

	inst, err := s.alipay.InstanceByAppID(appID)
	if err != nil {
		return "", ErrChannelInstance
	}
	if err := inst.VerifyNotify(query); err != nil {
		logger.Infow("alipay_return_sign_invalid", "app_id", appID, "out_trade_no", outTradeNo, "error", err)
		return "", ErrSignInvalid
	}

	order, err := s.orders.GetLatestByOutTradeNo(outTradeNo, constants.ChannelAlipay)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	}
	if order == nil {
		return "", ErrOrderNotFound
	}

	// 同步跳转也推进一次状态，异步通知可能尚未到达
	flipped, err := s.orders.MarkPaid(order.ID)
	if err != nil {
		logger.Warnw("alipay_return_mark_paid_failed", "order_id", order.ID, "error", err)
	}

	m, ok := s.merchants.Get(order.PID)
	if !ok {
		return "", ErrMerchantNotFound
	}

	// 翻转发生在同步跳转这一侧时，回源通知也由这一侧负责，
	// 否则后到的异步通知会因状态已翻转而跳过转发
	if flipped {
		s.forwardOrigin(ctx, order, query.Get("trade_no"), m.Key)
	}
	return epay.BuildReturnURL(order, query.Get("trade_no"), m.Key), nil
}

// wechatNotifyBody 微信回调报文
type wechatNotifyBody struct {
	EventType string `json:"event_type"`
	Resource  struct {
		Nonce          string `json:"nonce"`
		Ciphertext     string `json:"ciphertext"`
		AssociatedData string `json:"associated_data"`
	} `json:"resource"`
}

// wechatResource 解密后的交易内容
type wechatResource struct {
	OutTradeNo string `json:"out_trade_no"`
	TradeState string `json:"trade_state"`
}

// HandleWechatNotify 处理微信支付异步通知。
// 返回 nil 表示应答 SUCCESS；其余错误由入口层映射为各自的 HTTP 状态。
func (s *NotifyService) HandleWechatNotify(ctx context.Context, appID string, headers map[string]string, body []byte) error {
	var notifyBody wechatNotifyBody
	if err := json.Unmarshal(body, &notifyBody); err != nil {
		return fmt.Errorf("%w: event_type", ErrEmptyParams)
	}
	if strings.TrimSpace(notifyBody.EventType) == "" || strings.TrimSpace(appID) == "" {
		return fmt.Errorf("%w: event_type/appid", ErrEmptyParams)
	}
	// 非支付成功事件直接受理
	if notifyBody.EventType != constants.WechatEventTransactionSuccess {
		logger.Debugw("wxpay_notify_event_ignored", "appid", appID, "event_type", notifyBody.EventType)
		return nil
	}

	inst, err := s.wxpay.InstanceByAppID(appID)
	if err != nil {
		return ErrChannelInstance
	}

	if err := inst.VerifySignature(ctx, headers, body); err != nil {
		logger.Infow("wxpay_notify_sign_invalid", "appid", appID, "error", err)
		return err
	}

	plaintext, err := inst.DecryptResource(
		notifyBody.Resource.AssociatedData,
		notifyBody.Resource.Nonce,
		notifyBody.Resource.Ciphertext,
	)
	if err != nil {
		logger.Warnw("wxpay_notify_decrypt_failed", "appid", appID, "error", err)
		return err
	}

	var resource wechatResource
	if err := json.Unmarshal([]byte(plaintext), &resource); err != nil {
		logger.Warnw("wxpay_notify_resource_invalid", "appid", appID, "error", err)
		return fmt.Errorf("%w: decode resource failed", wxchan.ErrResponseInvalid)
	}

	// 微信侧订单号就是网关订单号
	order, err := s.orders.GetByID(resource.OutTradeNo)
	if err != nil {
		logger.Warnw("wxpay_notify_order_query_failed", "order_id", resource.OutTradeNo, "error", err)
		return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	}
	if order == nil {
		return ErrOrderNotFound
	}

	if resource.TradeState != constants.WechatTradeStateSuccess {
		logger.Infow("wxpay_notify_state_ignored", "order_id", order.ID, "trade_state", resource.TradeState)
		return nil
	}

	flipped, err := s.orders.MarkPaid(order.ID)
	if err != nil {
		logger.Warnw("wxpay_notify_mark_paid_failed", "order_id", order.ID, "error", err)
		return nil
	}
	if !flipped {
		return nil
	}

	m, ok := s.merchants.Get(order.PID)
	if !ok {
		logger.Infow("wxpay_notify_merchant_not_found", "order_id", order.ID, "pid", order.PID)
		return nil
	}
	s.forwardOrigin(ctx, order, order.ID, m.Key)
	return nil
}

// OrderStatusResult 订单状态查询结果
type OrderStatusResult struct {
	Paid        bool   `json:"paid"`
	CallbackURL string `json:"callback_url"`
}

const orderStatusCacheTTL = 5 * time.Minute

// OrderStatus 供前端轮询的订单状态查询，已支付的结果短期缓存
func (s *NotifyService) OrderStatus(ctx context.Context, orderID string) (*OrderStatusResult, error) {
	cacheKey := "order_status:" + orderID
	var cached OrderStatusResult
	if hit, err := cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.Paid() {
		return &OrderStatusResult{Paid: false}, nil
	}
	m, ok := s.merchants.Get(order.PID)
	if !ok {
		return nil, ErrMerchantNotFound
	}
	result := &OrderStatusResult{
		Paid:        true,
		CallbackURL: epay.BuildReturnURL(order, "", m.Key),
	}
	if err := cache.SetJSON(ctx, cacheKey, result, orderStatusCacheTTL); err != nil {
		logger.Debugw("order_status_cache_set_failed", "order_id", orderID, "error", err)
	}
	return result, nil
}

// forwardOrigin 通知源站。队列可用时转入后台任务并立即受理渠道，
// 否则同步转发并返回源站响应。
func (s *NotifyService) forwardOrigin(ctx context.Context, order *models.Order, tradeNo, key string) *ForwardResult {
	notifyURL := epay.BuildNotifyURL(order, tradeNo, key)
	if s.queue.Enabled() {
		if err := s.queue.EnqueueOriginNotify(queue.OriginNotifyPayload{
			OrderID:   order.ID,
			NotifyURL: notifyURL,
		}); err == nil {
			logger.Infow("origin_forward_enqueued", "order_id", order.ID)
			return nil
		} else {
			logger.Warnw("origin_forward_enqueue_failed", "order_id", order.ID, "error", err)
		}
	}
	result, err := s.forwarder.Forward(ctx, notifyURL)
	if err != nil {
		logger.Warnw("origin_forward_failed", "order_id", order.ID, "error", err)
		return nil
	}
	logger.Infow("origin_forward_done", "order_id", order.ID, "status", result.StatusCode)
	return result
}
