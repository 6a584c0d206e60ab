package constants

// 订单状态常量
const (
	OrderStatusUnpaid = 0
	OrderStatusPaid   = 1
)

// 支付渠道常量
const (
	ChannelAlipay = "alipay"
	ChannelWxpay  = "wxpay"
)

// 签名类型常量
const (
	SignTypeMD5 = "MD5"
)

// 支付宝交易状态常量
const (
	AlipayTradeSuccess  = "TRADE_SUCCESS"
	AlipayTradeFinished = "TRADE_FINISHED"
)

// 微信支付事件与交易状态常量
const (
	WechatEventTransactionSuccess = "TRANSACTION.SUCCESS"
	WechatTradeStateSuccess       = "SUCCESS"
	WechatTradeTypeNative         = "NATIVE"
	WechatTradeTypeH5             = "MWEB"
)

// 渠道回调应答常量
const (
	CallbackAckSuccess = "success"
	CallbackAckFail    = "fail"
)

// 队列与任务常量
const (
	QueueDefault     = "default"
	TaskOriginNotify = "origin:notify"
)

// 回源请求头常量
const (
	ForwardHeaderName  = "X-GOPAY"
	ForwardHeaderValue = "1"
)
