package redis

import (
	"context"
	"time"

	"tenco_blog/internal/config"

	"github.com/go-redis/redis/v8"
)

// InitRedis 初始化Redis客户端，并Ping一次确认连接可用
func InitRedis(conf config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
