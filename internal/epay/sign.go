// Package epay 实现易支付风格的参数签名与回调地址拼装。
//
// 签名规则：剔除 sign / sign_type / 空值参数后按键名升序排列，
// 以 k1=v1&k2=v2 形式拼接（值不做 URL 编码），拼接商户密钥后取 MD5。
package epay

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// FilterParams 剔除 sign、sign_type 以及值为空字符串的参数，不修改入参
func FilterParams(params map[string]string) map[string]string {
	filtered := make(map[string]string, len(params))
	for key, value := range params {
		if key == "sign" || key == "sign_type" || value == "" {
			continue
		}
		filtered[key] = value
	}
	return filtered
}

// SortedKeys 返回按字典序升序排列的键名
func SortedKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Canonicalize 以 k1=v1&k2=v2 形式拼接参数，键名升序，值保持原样
func Canonicalize(params map[string]string) string {
	keys := SortedKeys(params)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+params[key])
	}
	return strings.Join(parts, "&")
}

// Sign 计算易支付签名，密钥参与拼接前会去除首尾空白
func Sign(params map[string]string, key string) string {
	return md5Hex(Canonicalize(params) + strings.TrimSpace(key))
}

// Verify 校验签名
func Verify(params map[string]string, sign, key string) bool {
	return sign != "" && Sign(params, key) == sign
}

// EncodeQuery 以键名升序拼接 URL 编码后的查询串
func EncodeQuery(params map[string]string) string {
	keys := SortedKeys(params)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+encodeComponent(params[key]))
	}
	return strings.Join(parts, "&")
}

// encodeComponent 按组件编码，空格输出 %20 而非 +
func encodeComponent(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

func md5Hex(content string) string {
	sum := md5.Sum([]byte(content))
	return strings.ToLower(hex.EncodeToString(sum[:]))
}

var mobileKeywords = []string{
	"android",
	"midp",
	"nokia",
	"mobile",
	"iphone",
	"ipod",
	"blackberry",
	"windows phone",
}

// IsMobileUA 判断 User-Agent 是否来自移动端
func IsMobileUA(userAgent string) bool {
	userAgent = strings.ToLower(userAgent)
	for _, keyword := range mobileKeywords {
		if strings.Contains(userAgent, keyword) {
			return true
		}
	}
	return false
}
