package util

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
)

// GetEnv 获取环境变量（未设置时返回空串）
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvDefault 获取环境变量，未设置时返回默认值
func GetEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetIntEnv 获取整型环境变量
func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

// GetBoolEnv 获取布尔环境变量（"1"/"true"/"yes" 均视为 true）
func GetBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "yes" {
		return true
	}
	return cast.ToBool(v)
}

// LoadEnv 按环境名加载 .env 文件（.env.development / .env.production）
// 已存在的环境变量不会被覆盖
func LoadEnv(env string) error {
	filename := ".env." + env
	f, err := os.Open(filename)
	if err != nil {
		// 回退到普通 .env
		f, err = os.Open(".env")
		if err != nil {
			return fmt.Errorf("no env file for %s: %w", env, err)
		}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
