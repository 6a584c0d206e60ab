package public

import (
	"errors"
	"net/http"

	"github.com/gopay-next/internal/http/response"
	"github.com/gopay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AlipayNotify 支付宝异步通知，响应体为纯文本 success/fail
func (h *Handler) AlipayNotify(c *gin.Context) {
	log := requestLog(c)
	if err := c.Request.ParseForm(); err != nil {
		log.Warnw("alipay_notify_parse_form_failed", "error", err)
		c.String(http.StatusOK, "fail")
		return
	}
	body := h.NotifyService.HandleAlipayNotify(c.Request.Context(), c.Request.PostForm)
	c.String(http.StatusOK, body)
}

// AlipayReturn 支付宝同步跳转
func (h *Handler) AlipayReturn(c *gin.Context) {
	log := requestLog(c)
	query := c.Request.URL.Query()
	returnURL, err := h.NotifyService.HandleAlipayReturn(c.Request.Context(), query)
	if err != nil {
		log.Infow("alipay_return_failed",
			"app_id", query.Get("app_id"),
			"out_trade_no", query.Get("out_trade_no"),
			"error", err,
		)
		switch {
		case errors.Is(err, service.ErrEmptyParams):
			response.EmptyParams(c, "app_id/out_trade_no")
		case errors.Is(err, service.ErrChannelInstance):
			response.ChannelNotFound(c)
		case errors.Is(err, service.ErrSignInvalid):
			response.SignError(c)
		case errors.Is(err, service.ErrOrderNotFound):
			response.SysError(c, "支付成功, 但是发生订单不同步错误, 未找到该订单信息, 请联系卖家客服")
		case errors.Is(err, service.ErrMerchantNotFound):
			response.SysError(c, "支付成功, 但是未找到PID, 请联系卖家客服")
		default:
			response.SysError(c, "系统错误")
		}
		return
	}

	c.HTML(http.StatusOK, "jump.html", gin.H{
		"return_url": returnURL,
	})
}
