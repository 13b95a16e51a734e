package main

import (
	"context"
	"flag"
	"log"

	"tenco_blog/internal/config"
	"tenco_blog/internal/seed"
	"tenco_blog/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	users := flag.Int("users", 100, "用户数")
	boards := flag.Int("boards", 500, "帖子数")
	flag.Parse()

	conf, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	if err := logger.InitLogger(conf.App.LogLevel, ""); err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}

	db, err := gorm.Open(mysql.Open(conf.MySQL.DSN()), &gorm.Config{})
	if err != nil {
		logger.Log.Fatalf("无法连接到数据库: %v", err)
	}
	logger.Log.Info("数据库连接成功，开始填充测试数据（会删除旧表）")

	res, err := seed.Run(context.Background(), db, seed.Options{Users: *users, Boards: *boards, Reset: true})
	if err != nil {
		logger.Log.Fatalf("填充测试数据失败: %v", err)
	}
	logger.Log.WithField("users", res.Users).WithField("boards", res.Boards).
		Infof("所有测试数据填充完毕，默认密码: %s", seed.DefaultPassword)
}
