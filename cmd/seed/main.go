package main

import (
	"flag"
	"fmt"

	"github.com/railbook-next/internal/clock"
	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/logger"
	"github.com/railbook-next/internal/models"
	"github.com/railbook-next/internal/service"

	"github.com/fatih/color"
)

func main() {
	var userID string
	var expireHours int
	flag.StringVar(&userID, "user", "demo-user", "签发令牌的用户标识")
	flag.IntVar(&expireHours, "hours", 0, "令牌有效小时数，0 表示使用配置")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		color.Yellow("warning: load .env failed: %v", err)
	}
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	// 连接数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.LogMode, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	color.Green("schema migrated (%s)", cfg.Database.Driver)

	tokens := service.NewUserTokenService(cfg.JWT, clock.Real())
	token, expiresAt, err := tokens.GenerateUserJWT(userID, expireHours)
	if err != nil {
		stdLog.Fatalf("Failed to sign demo token: %v", err)
	}
	color.Cyan("demo user: %s (expires %s)", userID, expiresAt.Format("2006-01-02 15:04:05"))
	fmt.Println(token)
}
