// Package merchant 维护接入商户（pid -> 密钥）的只读注册表。
package merchant

import (
	"strings"

	"github.com/gopay-next/internal/config"
)

// Merchant 接入商户
type Merchant struct {
	PID int
	Key string
}

// Registry 商户注册表，启动时从配置构建，运行期只读
type Registry struct {
	entries map[int]Merchant
}

// NewRegistry 构建注册表，密钥为空的条目会被忽略
func NewRegistry(entries []config.MerchantEntry) *Registry {
	m := make(map[int]Merchant, len(entries))
	for _, e := range entries {
		key := strings.TrimSpace(e.Key)
		if e.PID <= 0 || key == "" {
			continue
		}
		m[e.PID] = Merchant{PID: e.PID, Key: e.Key}
	}
	return &Registry{entries: m}
}

// Get 按商户号查找
func (r *Registry) Get(pid int) (Merchant, bool) {
	if r == nil {
		return Merchant{}, false
	}
	m, ok := r.entries[pid]
	return m, ok
}

// Len 返回已配置的商户数量
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}
