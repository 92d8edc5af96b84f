// Package utils 工具函数
package utils

import (
	"strings"

	"github.com/google/uuid"
)

// accessCodeLength 展示端访问码长度
const accessCodeLength = 10

// GenerateAccessCode 生成展示端访问码（大写十六进制）
func GenerateAccessCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:accessCodeLength])
}

// TrimToLimit 去除首尾空白，超过 limit 个字符时返回 false
func TrimToLimit(s string, limit int) (string, bool) {
	s = strings.TrimSpace(s)
	if len([]rune(s)) > limit {
		return s, false
	}
	return s, true
}
