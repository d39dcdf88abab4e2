// Package util 提供通用工具函数
package util

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword 使用 bcrypt 哈希密码
// 参数:
//   - password: 明文密码
//
// 返回:
//   - string: 密码哈希值
//   - error: 哈希错误
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword 验证密码是否匹配
func CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateUUID 生成不含连字符的 UUID v4
func GenerateUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// DeriveAPIKey 由用户标识确定性地派生 API Key
// 配置了密钥时使用 HMAC-SHA256，否则退回旧版 MD5(user_id)
// 参数:
//   - secret: HMAC 密钥，可为空
//   - userID: 用户标识
//
// 返回:
//   - string: 十六进制 API Key
func DeriveAPIKey(secret, userID string) string {
	if secret == "" {
		sum := md5.Sum([]byte(userID))
		return hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SecureCompare 常量时间比较两个字符串
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
