package public

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gopay-next/internal/http/response"
	"github.com/gopay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderStatus 收银台轮询的订单状态接口
func (h *Handler) OrderStatus(c *gin.Context) {
	orderID := strings.TrimSpace(c.Query("out_trade_no"))
	if orderID == "" {
		response.EmptyParams(c, "Params")
		return
	}

	result, err := h.NotifyService.OrderStatus(c.Request.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			response.SysError(c, "订单不存在")
		case errors.Is(err, service.ErrMerchantNotFound):
			response.SysError(c, "PID不存在，无法查询，请以实际到账为准")
		default:
			response.SysError(c, "订单查询失败")
		}
		return
	}

	if !result.Paid {
		response.Fail(c, response.CodeUnpaid, "当前订单尚未支付")
		return
	}
	response.OK(c, "支付成功", gin.H{
		"callback_url": result.CallbackURL,
	})
}

// Test 探活接口
func (h *Handler) Test(c *gin.Context) {
	c.String(http.StatusOK, "1")
}
