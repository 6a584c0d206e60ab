package public

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gopay-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Index 收银台首页
func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

// Redirect 中转跳转页，type=base64 时先解码目标地址
func (h *Handler) Redirect(c *gin.Context) {
	redirectURL := c.Query("url")
	if c.Query("type") == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(redirectURL)
		if err != nil {
			response.EmptyParams(c, "redirectUrl")
			return
		}
		redirectURL = string(decoded)
	}

	if strings.TrimSpace(redirectURL) == "" {
		response.EmptyParams(c, "redirectUrl")
		return
	}

	c.HTML(http.StatusOK, "jump.html", gin.H{
		"return_url": redirectURL,
	})
}
