package public

import (
	"net/http"

	"github.com/gopay-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// WxpayNativePage 微信扫码收银台页面
func (h *Handler) WxpayNativePage(c *gin.Context) {
	log := requestLog(c)
	codeURL := c.Query("cr")
	orderID := c.Query("out_trade_no")
	ua := c.Query("ua")

	if ua == "mobile" {
		c.HTML(http.StatusOK, "wxpay_m_native.html", gin.H{
			"url":          codeURL,
			"out_trade_no": orderID,
		})
		return
	}

	order, err := h.OrderRepo.GetByID(orderID)
	if err != nil {
		log.Warnw("wxpay_native_order_query_failed", "order_id", orderID, "error", err)
		response.SysError(c, "当前订单不存在")
		return
	}
	if order == nil {
		response.SysError(c, "当前订单不存在")
		return
	}

	c.HTML(http.StatusOK, "wxpay_pc_native.html", gin.H{
		"url":          codeURL,
		"out_trade_no": orderID,
		"title":        order.Title,
		"money":        order.Money,
	})
}
