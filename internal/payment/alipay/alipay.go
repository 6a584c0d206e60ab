// Package alipay 封装支付宝渠道，下单与验签委托 gopay SDK。
package alipay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-pay/gopay"
	aliclient "github.com/go-pay/gopay/alipay"
	"github.com/gopay-next/internal/payment"
)

var (
	ErrConfigInvalid    = errors.New("alipay config invalid")
	ErrNoInstance       = errors.New("alipay no instance configured")
	ErrCreateFailed     = errors.New("alipay create payment failed")
	ErrSignatureInvalid = errors.New("alipay signature invalid")
)

const productCodePage = "FAST_INSTANT_TRADE_PAY"

// Config 单个商户号的支付宝配置
type Config struct {
	AppID           string
	PrivateKey      string
	AlipayPublicKey string
	IsProd          bool
}

// ValidateConfig 校验配置完整性
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.AppID) == "" {
		return fmt.Errorf("%w: app_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return fmt.Errorf("%w: private_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.AlipayPublicKey) == "" {
		return fmt.Errorf("%w: alipay_public_key is required", ErrConfigInvalid)
	}
	return nil
}

// CreateInput 支付宝下单输入
type CreateInput struct {
	OutTradeNo string
	Amount     string
	Subject    string
	Body       string
	NotifyURL  string
	ReturnURL  string
}

// Instance 绑定单个商户号的支付宝实例
type Instance struct {
	cfg    Config
	client *aliclient.Client
}

// AppID 返回实例绑定的应用 ID
func (i *Instance) AppID() string {
	return i.cfg.AppID
}

// CreatePayment 创建支付并返回跳转地址，移动端走 WAP 交易
func (i *Instance) CreatePayment(ctx context.Context, input CreateInput, mobile bool) (string, error) {
	if strings.TrimSpace(input.OutTradeNo) == "" || strings.TrimSpace(input.Amount) == "" {
		return "", fmt.Errorf("%w: out_trade_no and amount are required", ErrCreateFailed)
	}
	i.client.SetNotifyUrl(input.NotifyURL)
	i.client.SetReturnUrl(input.ReturnURL)

	bm := gopay.BodyMap{}
	bm.Set("subject", input.Subject)
	bm.Set("out_trade_no", input.OutTradeNo)
	bm.Set("total_amount", input.Amount)
	bm.Set("product_code", productCodePage)
	if strings.TrimSpace(input.Body) != "" {
		bm.Set("body", input.Body)
	}

	var payURL string
	var err error
	if mobile {
		payURL, err = i.client.TradeWapPay(ctx, bm)
	} else {
		payURL, err = i.client.TradePagePay(ctx, bm)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}
	return payURL, nil
}

// VerifyNotify 校验支付宝异步通知签名
func (i *Instance) VerifyNotify(form url.Values) error {
	bm, err := aliclient.ParseNotifyByURLValues(form)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	ok, err := aliclient.VerifySign(i.cfg.AlipayPublicKey, bm)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if !ok {
		return ErrSignatureInvalid
	}
	return nil
}

// Manager 支付宝实例管理器，按 appId 缓存 SDK 客户端
type Manager struct {
	configs  []Config
	strategy payment.Strategy

	mu    sync.Mutex
	cache map[string]*Instance
}

// NewManager 构建管理器，appId 为空的配置会被过滤
func NewManager(configs []Config, strategy payment.Strategy) *Manager {
	valid := make([]Config, 0, len(configs))
	for _, cfg := range configs {
		if strings.TrimSpace(cfg.AppID) == "" {
			continue
		}
		valid = append(valid, cfg)
	}
	if strategy == nil {
		strategy = payment.NewRandomStrategy()
	}
	return &Manager{
		configs:  valid,
		strategy: strategy,
		cache:    make(map[string]*Instance),
	}
}

// Enabled 是否配置了可用的商户号
func (m *Manager) Enabled() bool {
	return m != nil && len(m.configs) > 0
}

// Instance 按策略选取一个实例
func (m *Manager) Instance() (*Instance, error) {
	if !m.Enabled() {
		return nil, ErrNoInstance
	}
	idx := m.strategy.Pick(len(m.configs))
	if idx < 0 || idx >= len(m.configs) {
		return nil, ErrNoInstance
	}
	return m.instance(m.configs[idx])
}

// InstanceByAppID 按应用 ID 精确选取实例
func (m *Manager) InstanceByAppID(appID string) (*Instance, error) {
	if m == nil {
		return nil, ErrNoInstance
	}
	appID = strings.TrimSpace(appID)
	for _, cfg := range m.configs {
		if cfg.AppID == appID {
			return m.instance(cfg)
		}
	}
	return nil, ErrNoInstance
}

func (m *Manager) instance(cfg Config) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.cache[cfg.AppID]; ok {
		return inst, nil
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	client, err := aliclient.NewClient(cfg.AppID, cfg.PrivateKey, cfg.IsProd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	client.SetCharset(aliclient.UTF8).SetSignType(aliclient.RSA2)
	inst := &Instance{cfg: cfg, client: client}
	m.cache[cfg.AppID] = inst
	return inst, nil
}
