// Package payment 定义渠道实例的选取策略。
package payment

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Strategy 多商户号之间的实例选取策略
type Strategy interface {
	// Pick 在 [0, n) 中选取一个下标，n <= 0 时返回 -1
	Pick(n int) int
}

// RandomStrategy 均匀随机选取，用于在多个商户号之间分摊交易量
type RandomStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomStrategy 创建随机策略
func NewRandomStrategy() *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Pick 随机选取
func (s *RandomStrategy) Pick(n int) int {
	if n <= 0 {
		return -1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// RoundRobinStrategy 轮询选取
type RoundRobinStrategy struct {
	counter atomic.Uint64
}

// NewRoundRobinStrategy 创建轮询策略
func NewRoundRobinStrategy() *RoundRobinStrategy {
	return &RoundRobinStrategy{}
}

// Pick 轮询选取
func (s *RoundRobinStrategy) Pick(n int) int {
	if n <= 0 {
		return -1
	}
	return int((s.counter.Add(1) - 1) % uint64(n))
}
