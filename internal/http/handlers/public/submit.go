package public

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gopay-next/internal/http/response"
	"github.com/gopay-next/internal/service"

	"github.com/gin-gonic/gin"
)

var (
	moneyPattern      = regexp.MustCompile(`^[0-9.]+$`)
	outTradeNoPattern = regexp.MustCompile(`^[a-zA-Z0-9._-|]+$`)
)

// Submit 易支付兼容下单入口
func (h *Handler) Submit(c *gin.Context) {
	log := requestLog(c)

	params := collectParams(c)
	if len(params) == 0 {
		response.EmptyParams(c, "form")
		return
	}

	sign := params["sign"]
	money := params["money"]
	name := params["name"]
	notifyURL := params["notify_url"]
	returnURL := params["return_url"]
	outTradeNo := params["out_trade_no"]
	pid := params["pid"]
	payType := params["type"]

	ua := c.GetHeader("User-Agent")
	clientIP := strings.TrimSpace(c.GetHeader("X-Real-IP"))
	if clientIP == "" {
		clientIP = c.ClientIP()
	}

	if strings.TrimSpace(ua) == "" {
		response.EmptyParams(c, "UA")
		return
	}
	if strings.TrimSpace(payType) == "" {
		response.EmptyParams(c, "type")
		return
	}
	if strings.TrimSpace(pid) == "" {
		response.EmptyParams(c, "pid")
		return
	}
	if strings.TrimSpace(name) == "" {
		response.EmptyParams(c, "name")
		return
	}
	if strings.TrimSpace(notifyURL) == "" {
		response.EmptyParams(c, "notify_url")
		return
	}
	if strings.TrimSpace(returnURL) == "" {
		response.EmptyParams(c, "return_url")
		return
	}
	if strings.TrimSpace(money) == "" || !moneyPattern.MatchString(money) {
		response.EmptyParams(c, "money")
		return
	}
	if strings.TrimSpace(outTradeNo) == "" || !outTradeNoPattern.MatchString(outTradeNo) {
		response.EmptyParams(c, "out_trade_no")
		return
	}
	if strings.TrimSpace(sign) == "" {
		response.EmptyParams(c, "sign")
		return
	}

	result, err := h.SubmitService.Submit(c.Request.Context(), service.SubmitInput{
		Params:     params,
		Sign:       sign,
		Money:      money,
		Name:       name,
		NotifyURL:  notifyURL,
		ReturnURL:  returnURL,
		OutTradeNo: outTradeNo,
		PID:        pid,
		Type:       payType,
		UserAgent:  ua,
		ClientIP:   clientIP,
	})
	if err != nil {
		log.Infow("submit_failed",
			"pid", pid,
			"type", payType,
			"out_trade_no", outTradeNo,
			"error", err,
		)
		switch {
		case errors.Is(err, service.ErrMerchantNotFound):
			response.PIDError(c)
		case errors.Is(err, service.ErrSignInvalid):
			response.SignError(c)
		case errors.Is(err, service.ErrAlipayNotEnabled):
			response.ChannelNotConfigured(c, "alipay")
		case errors.Is(err, service.ErrWxpayNotEnabled):
			response.ChannelNotConfigured(c, "wxpay")
		case errors.Is(err, service.ErrUnsupportedChannel):
			response.Fail(c, response.CodeUnsupported, "其他支付方式开发中")
		case errors.Is(err, service.ErrCreateOrderFailed):
			response.SysError(c, "创建订单失败，请返回重试。")
		default:
			response.SysError(c, err.Error())
		}
		return
	}

	log.Infow("submit_ok", "pid", pid, "type", payType, "out_trade_no", outTradeNo)
	c.HTML(http.StatusOK, "submit.html", gin.H{
		"payurl": result.PayURL,
		"time":   time.Now().UnixMilli(),
		"type":   result.Type,
	})
}

// collectParams 读取提交参数，表单优先于 query
func collectParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	if err := c.Request.ParseForm(); err != nil {
		return params
	}
	if len(c.Request.PostForm) > 0 {
		for key, values := range c.Request.PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
		return params
	}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}
