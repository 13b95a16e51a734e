package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"tenco_blog/internal/config"
	"tenco_blog/internal/consumer"
	"tenco_blog/internal/observability"
	"tenco_blog/internal/repository"
	"tenco_blog/internal/service"
	"tenco_blog/pkg/logger"
	"tenco_blog/pkg/rabbitmq"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// 消费者进程：连接mysql，rabbitMQ，把浏览消息累加到 boards.view_count
func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	if err := logger.InitLogger(conf.App.LogLevel, conf.App.LogFile); err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}

	db, err := gorm.Open(mysql.Open(conf.MySQL.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Log.Fatalf("消费者无法连接到数据库: %v", err)
	}

	rabbitMQConn, err := rabbitmq.InitRabbitMQ(conf.RabbitMQ.URL)
	if err != nil {
		logger.Log.Fatalf("消费者无法连接到RabbitMQ: %v", err)
	}
	defer rabbitMQConn.Close()
	if err := rabbitmq.DeclareQueue(rabbitMQConn, service.QueueBoardView); err != nil {
		logger.Log.Fatalf("队列声明失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 消费者进程不对外暴露HTTP，指标只在进程内累计
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	// 消费者不碰缓存，rdb传nil
	c := consumer.NewBoardViewConsumer(repository.NewBoardRepository(db, nil), metrics)
	if err := c.Run(ctx, rabbitMQConn); err != nil {
		logger.Log.Fatalf("浏览消息消费者退出: %v", err)
	}
	logger.Log.Info("消费者已退出")
}
