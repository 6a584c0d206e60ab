package epay

import (
	"strconv"
	"strings"

	"github.com/gopay-next/internal/constants"
	"github.com/gopay-next/internal/models"
)

// BuildNotifyURL 拼装通知源站的异步回调地址。
// trade_no 始终进入参数集（空值会被过滤规则剔除）。
func BuildNotifyURL(order *models.Order, tradeNo, key string) string {
	params := map[string]string{
		"pid":          strconv.Itoa(order.PID),
		"trade_no":     tradeNo,
		"out_trade_no": order.OutTradeNo,
		"type":         order.Type,
		"name":         order.Title,
		"money":        order.Money,
		"trade_status": constants.AlipayTradeSuccess,
	}
	return appendSignedQuery(order.NotifyURL, params, key)
}

// BuildReturnURL 拼装同步跳转地址，trade_no 为空时不参与签名
func BuildReturnURL(order *models.Order, tradeNo, key string) string {
	params := map[string]string{
		"pid":          strconv.Itoa(order.PID),
		"out_trade_no": order.OutTradeNo,
		"type":         order.Type,
		"name":         order.Title,
		"money":        order.Money,
		"trade_status": constants.AlipayTradeSuccess,
	}
	if strings.TrimSpace(tradeNo) != "" {
		params["trade_no"] = tradeNo
	}
	return appendSignedQuery(order.ReturnURL, params, key)
}

// appendSignedQuery 追加签名后的查询串。
// 目标地址已含 ? 时不再插入 ?，与既有客户端的拼接约定保持一致。
func appendSignedQuery(target string, params map[string]string, key string) string {
	filtered := FilterParams(params)
	sign := Sign(filtered, key)
	query := EncodeQuery(filtered) + "&sign=" + sign + "&sign_type=" + constants.SignTypeMD5
	if !strings.Contains(target, "?") {
		return target + "?" + query
	}
	return target + query
}
