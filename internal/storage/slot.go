// Package storage 提供购物车持久化槽位的各类实现。
//
// 槽位是一个 key 对应一段序列化内容的持久化位置，语义上等同于浏览器中的单个本地存储项：
// 读取不存在的 key 返回 found=false，写入为整体覆盖（后写者胜出）。
package storage

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnavailable 槽位后端不可用
var ErrUnavailable = errors.New("storage slot unavailable")

// ErrEmptyKey 槽位 key 为空
var ErrEmptyKey = errors.New("storage slot key is empty")

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}

// SessionKey 为会话生成独立的槽位 key
func SessionKey(sessionID, key string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return key
	}
	return sessionID + ":" + key
}
