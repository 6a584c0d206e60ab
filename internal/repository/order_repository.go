package repository

import (
	"errors"
	"strings"

	"github.com/gopay-next/internal/constants"
	"github.com/gopay-next/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	GetLatestByOutTradeNo(outTradeNo, channel string) (*models.Order, error)
	MarkPaid(id string) (bool, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID 根据网关订单号获取订单
func (r *GormOrderRepository) GetByID(id string) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetLatestByOutTradeNo 根据源站订单号获取最新订单，channel 为空时不限渠道
func (r *GormOrderRepository) GetLatestByOutTradeNo(outTradeNo, channel string) (*models.Order, error) {
	outTradeNo = strings.TrimSpace(outTradeNo)
	if outTradeNo == "" {
		return nil, nil
	}
	query := r.db.Where("out_trade_no = ?", outTradeNo)
	if strings.TrimSpace(channel) != "" {
		query = query.Where("type = ?", channel)
	}
	var order models.Order
	if err := query.Order("created_at DESC").First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// MarkPaid 将订单置为已支付，条件更新保证 0 -> 1 只发生一次。
// 返回值为 true 表示本次调用完成了状态翻转。
func (r *GormOrderRepository) MarkPaid(id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, nil
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, constants.OrderStatusUnpaid).
		Update("status", constants.OrderStatusPaid)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
