// Package response 统一的 JSON 响应信封。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code int         `json:"code"`           // 业务状态码
	Msg  string      `json:"msg"`            // 提示消息
	Data interface{} `json:"data,omitempty"` // 数据内容
}

// OK 成功响应
func OK(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeOK,
		Msg:  msg,
		Data: data,
	})
}

// Fail 失败响应
func Fail(c *gin.Context, code int, msg string) {
	c.JSON(http.StatusOK, Response{
		Code: code,
		Msg:  msg,
	})
}

// EmptyParams 参数为空错误
func EmptyParams(c *gin.Context, field string) {
	Fail(c, CodeForbidden, field+" 参数不能为空")
}

// SignError 签名校验失败
func SignError(c *gin.Context) {
	Fail(c, CodeForbidden, "请求签名校验失败")
}

// PIDError 商户号不存在
func PIDError(c *gin.Context) {
	Fail(c, CodeForbidden, "PID不存在")
}

// ChannelNotConfigured 渠道未配置
func ChannelNotConfigured(c *gin.Context, channel string) {
	Fail(c, CodeChannelEmpty, "未配置 "+channel+" 渠道信息")
}

// ChannelNotFound 未获取到指定渠道信息
func ChannelNotFound(c *gin.Context) {
	Fail(c, CodeUnsupported, "未获取到指定支付渠道信息")
}

// Unsupported 暂不支持的渠道类型
func Unsupported(c *gin.Context, channel string) {
	Fail(c, CodeUnsupported, "暂不支持 "+channel+" 渠道")
}

// SysError 系统错误
func SysError(c *gin.Context, msg string) {
	Fail(c, CodeSysError, msg)
}
