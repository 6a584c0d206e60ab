package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gopay-next/internal/constants"
)

// Order 聚合订单表
type Order struct {
	ID         string    `gorm:"type:varchar(40);primarykey" json:"id"`          // 网关订单号
	OutTradeNo string    `gorm:"index;not null" json:"out_trade_no"`             // 源站订单号
	NotifyURL  string    `gorm:"not null" json:"notify_url"`                     // 源站异步通知地址
	ReturnURL  string    `json:"return_url"`                                     // 源站同步跳转地址
	Type       string    `gorm:"type:varchar(10);not null" json:"type"`          // 支付渠道（alipay/wxpay）
	PID        int       `gorm:"column:pid;index;not null" json:"pid"`           // 商户号
	Title      string    `gorm:"not null" json:"title"`                          // 商品名称
	Money      string    `gorm:"type:varchar(20);not null" json:"money"`         // 金额（字符串，保留源站原样）
	Status     int       `gorm:"index;not null;default:0" json:"status"`         // 0 未支付 1 已支付
	Attach     string    `json:"attach,omitempty"`                               // 附加数据，原样回传源站
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "gopay_order"
}

// Paid 判断订单是否已支付
func (o *Order) Paid() bool {
	return o.Status == constants.OrderStatusPaid
}

// NewOrderID 生成网关订单号，去掉连字符并转为大写
func NewOrderID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
