package provider

import (
	"github.com/gopay-next/internal/cache"
	"github.com/gopay-next/internal/config"
	"github.com/gopay-next/internal/logger"
	"github.com/gopay-next/internal/merchant"
	"github.com/gopay-next/internal/models"
	alipaychan "github.com/gopay-next/internal/payment/alipay"
	wxchan "github.com/gopay-next/internal/payment/wechatpay"
	"github.com/gopay-next/internal/queue"
	"github.com/gopay-next/internal/repository"
	"github.com/gopay-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	Merchants *merchant.Registry
	OrderRepo repository.OrderRepository

	AlipayManager *alipaychan.Manager
	WxpayManager  *wxchan.Manager
	Forwarder     *service.Forwarder

	SubmitService *service.SubmitService
	NotifyService *service.NotifyService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.Merchants = merchant.NewRegistry(cfg.Merchants)
	if c.Merchants.Len() == 0 {
		logger.Warnw("provider_no_merchants_configured")
	}

	c.OrderRepo = repository.NewOrderRepository(models.DB)

	c.AlipayManager = alipaychan.NewManager(buildAlipayConfigs(cfg), nil)
	c.WxpayManager = wxchan.NewManager(buildWxpayConfigs(cfg), nil)

	c.Forwarder = service.NewForwarder(cfg.Forward)

	c.SubmitService = service.NewSubmitService(cfg, c.Merchants, c.OrderRepo, c.AlipayManager, c.WxpayManager)
	c.NotifyService = service.NewNotifyService(cfg, c.Merchants, c.OrderRepo, c.AlipayManager, c.WxpayManager, c.Forwarder, c.QueueClient)

	return c
}

func buildAlipayConfigs(cfg *config.Config) []alipaychan.Config {
	configs := make([]alipaychan.Config, 0, len(cfg.Alipay))
	for _, ch := range cfg.Alipay {
		privateKey, err := ch.ResolvePrivateKey()
		if err != nil {
			logger.Errorw("provider_alipay_private_key_failed", "app_id", ch.AppID, "error", err)
			continue
		}
		publicKey, err := ch.ResolvePublicKey()
		if err != nil {
			logger.Errorw("provider_alipay_public_key_failed", "app_id", ch.AppID, "error", err)
			continue
		}
		configs = append(configs, alipaychan.Config{
			AppID:           ch.AppID,
			PrivateKey:      privateKey,
			AlipayPublicKey: publicKey,
			IsProd:          ch.IsProd,
		})
	}
	return configs
}

func buildWxpayConfigs(cfg *config.Config) []wxchan.Config {
	configs := make([]wxchan.Config, 0, len(cfg.Wxpay))
	for _, ch := range cfg.Wxpay {
		privateKey, err := ch.ResolvePrivateKey()
		if err != nil {
			logger.Errorw("provider_wxpay_private_key_failed", "app_id", ch.AppID, "error", err)
			continue
		}
		configs = append(configs, wxchan.Config{
			AppID:      ch.AppID,
			MchID:      ch.MchID,
			SerialNo:   ch.SerialNo,
			PrivateKey: privateKey,
			APIV3Key:   ch.APIV3Key,
			OnlyNative: ch.OnlyNative,
		})
	}
	return configs
}
