package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenco_blog/internal/config"
	"tenco_blog/internal/data"
	"tenco_blog/internal/handler"
	"tenco_blog/internal/middleware"
	"tenco_blog/internal/model"
	"tenco_blog/internal/observability"
	"tenco_blog/internal/repository"
	"tenco_blog/internal/router"
	"tenco_blog/internal/service"
	"tenco_blog/internal/session"
	"tenco_blog/internal/view"
	"tenco_blog/pkg/logger"
	"tenco_blog/pkg/rabbitmq"
	"tenco_blog/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	if err := logger.InitLogger(conf.App.LogLevel, conf.App.LogFile); err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	gin.SetMode(conf.App.GinMode)

	// 初始化Redis
	redisClient, err := redis.InitRedis(conf.Redis)
	if err != nil {
		logger.Log.Fatalf("无法连接到Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Log.Info("Redis连接成功")

	// 初始化RabbitMQ，队列声明是幂等的，server和consumer谁先起都行
	rabbitMQConn, err := rabbitmq.InitRabbitMQ(conf.RabbitMQ.URL)
	if err != nil {
		logger.Log.Fatalf("无法连接到RabbitMQ: %v", err)
	}
	defer rabbitMQConn.Close()
	if err := rabbitmq.DeclareQueue(rabbitMQConn, service.QueueBoardView); err != nil {
		logger.Log.Fatalf("队列声明失败: %v", err)
	}
	logger.Log.Info("RabbitMQ连接成功")

	// TranslateError 让重复键这类错误变成 gorm.ErrDuplicatedKey
	db, err := gorm.Open(mysql.Open(conf.MySQL.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Log.Fatalf("无法连接到数据库: %v", err)
	}
	logger.Log.Info("数据库连接成功")
	// 没有这个表就创建，没有列就加列；不会主动删除和修改
	if err := db.AutoMigrate(&model.User{}, &model.Board{}); err != nil {
		logger.Log.Fatalf("数据库迁移失败: %v", err)
	}
	logger.Log.Info("数据库迁移成功")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	templates, err := view.Load()
	if err != nil {
		logger.Log.Fatalf("模板加载失败: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	boardRepo := repository.NewBoardRepository(db, redisClient)
	uow := data.NewUnitOfWork(db, boardRepo, userRepo)

	userService := service.NewUserService(userRepo, uow)
	boardService := service.NewBoardService(boardRepo, uow, rabbitmq.NewPublisher(rabbitMQConn), metrics)

	sessions := session.NewRedisStore(redisClient, conf.Session.Secret, conf.Session.TTL)
	cookie := session.Cookie{Name: conf.Session.CookieName, Secure: conf.Session.Secure}

	r, err := router.SetupRouter(router.Deps{
		Templates:    templates,
		BoardHandler: handler.NewBoardHandler(boardService),
		UserHandler:  handler.NewUserHandler(userService, sessions, cookie, metrics),
		UserService:  userService,
		Sessions:     sessions,
		Cookie:       cookie,
		Redis:        redisClient,
		LoginLimit: middleware.RateLimiterConfig{
			Limit:  conf.RateLimit.LoginAttempts,
			Window: conf.RateLimit.LoginWindow,
		},
		Metrics:        metrics,
		Gatherer:       registry,
		TrustedProxies: conf.App.TrustedProxies,
	})
	if err != nil {
		logger.Log.Fatalf("路由初始化失败: %v", err)
	}

	srv := &http.Server{
		Addr:    ":" + conf.App.Port,
		Handler: r,
	}
	go func() {
		logger.Log.Infof("服务器将在: %s端口启动", conf.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("服务器关闭失败")
	}
	logger.Log.Info("服务器已退出")
}
