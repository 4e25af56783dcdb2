package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	LocaleZH = "zh-CN"
	LocaleEN = "en-US"

	DefaultLocale = LocaleZH
)

// NormalizeLocale 归一化语言标识，未识别时返回默认语言
func NormalizeLocale(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.IndexAny(value, ",;"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	switch {
	case value == "":
		return DefaultLocale
	case strings.HasPrefix(value, "en"):
		return LocaleEN
	case strings.HasPrefix(value, "zh"):
		return LocaleZH
	default:
		return DefaultLocale
	}
}

// ResolveLocale 依次读取 lang 查询参数与 Accept-Language 请求头
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return NormalizeLocale(lang)
	}
	return NormalizeLocale(c.GetHeader("Accept-Language"))
}

// T 翻译消息 key，缺失时回退到默认语言，再缺失时返回 key 本身
func T(locale, key string) string {
	if table, ok := messages[NormalizeLocale(locale)]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译后按参数格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
