package public

import (
	"errors"
	"io"
	"net/http"
	"strings"

	wxchan "github.com/gopay-next/internal/payment/wechatpay"
	"github.com/gopay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// WxpayNotify 微信支付异步通知
func (h *Handler) WxpayNotify(c *gin.Context) {
	log := requestLog(c)
	appID := c.Param("appid")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("wxpay_notify_body_read_failed", "appid", appID, "error", err)
		respondWxpayCallback(c, http.StatusBadRequest, false)
		return
	}

	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	err = h.NotifyService.HandleWechatNotify(c.Request.Context(), appID, headers, body)
	if err != nil {
		log.Infow("wxpay_notify_failed", "appid", appID, "error", err)
		switch {
		case errors.Is(err, service.ErrEmptyParams):
			// 微信侧的畸形请求按纯文本 400 拒绝，不走商户侧 JSON 包装
			if strings.TrimSpace(appID) == "" {
				c.String(http.StatusBadRequest, "缺少appid参数")
			} else {
				c.String(http.StatusBadRequest, "缺少事件类型参数")
			}
		case errors.Is(err, service.ErrChannelInstance):
			c.String(http.StatusPaymentRequired, "appid NotFound")
		case errors.Is(err, wxchan.ErrSignatureInvalid):
			respondWxpayCallback(c, http.StatusUnauthorized, false)
		case errors.Is(err, service.ErrOrderNotFound):
			c.String(http.StatusNotFound, "order NotFound")
		default:
			respondWxpayCallback(c, http.StatusInternalServerError, false)
		}
		return
	}

	respondWxpayCallback(c, http.StatusOK, true)
}

func respondWxpayCallback(c *gin.Context, status int, success bool) {
	if success {
		c.JSON(status, gin.H{
			"code":    "SUCCESS",
			"message": "成功",
		})
		return
	}
	c.JSON(status, gin.H{
		"code":    "FAIL",
		"message": "失败",
	})
}
