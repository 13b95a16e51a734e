// Package consumer 处理RabbitMQ里的帖子浏览消息，把浏览次数落到MySQL
package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"tenco_blog/internal/observability"
	"tenco_blog/internal/repository"
	"tenco_blog/internal/service"
	"tenco_blog/pkg/logger"

	"github.com/streadway/amqp"
)

// Outcome 决定一条消息最后怎么确认
type Outcome int

const (
	// Ack 处理成功，或者重试也没用但不算坏消息（比如帖子已经删了）
	Ack Outcome = iota
	// Drop 坏消息，Nack且不重新入队
	Drop
	// Requeue 临时错误，Nack并重新入队
	Requeue
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Drop:
		return "drop"
	case Requeue:
		return "requeue"
	}
	return "unknown"
}

type BoardViewConsumer struct {
	boardRepo repository.BoardRepository
	metrics   *observability.Metrics
}

func NewBoardViewConsumer(boardRepo repository.BoardRepository, metrics *observability.Metrics) *BoardViewConsumer {
	return &BoardViewConsumer{boardRepo: boardRepo, metrics: metrics}
}

// Handle 1、反序列化 2、浏览数+1 3、根据结果返回确认方式
func (c *BoardViewConsumer) Handle(ctx context.Context, body []byte) Outcome {
	logCtx := logger.Log.WithField("body", string(body))

	var msg service.BoardViewMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		logCtx.WithError(err).Error("消息JSON解析失败")
		return Drop
	}
	if msg.BoardID == 0 {
		logCtx.Error("消息里没有board_id")
		return Drop
	}

	logCtx = logCtx.WithField("board_id", msg.BoardID)
	err := c.boardRepo.IncrementViewCount(ctx, msg.BoardID)
	switch {
	case err == nil:
		return Ack
	case errors.Is(err, repository.ErrBoardNotFound):
		logCtx.Warn("帖子已不存在，丢弃浏览消息")
		return Ack
	default:
		logCtx.WithError(err).Error("处理消息失败，将进行重试")
		return Requeue
	}
}

// Deliver 处理一条投递并按 Handle 的结果 Ack/Nack
func (c *BoardViewConsumer) Deliver(ctx context.Context, d amqp.Delivery) Outcome {
	outcome := c.Handle(ctx, d.Body)

	var err error
	switch outcome {
	case Ack:
		err = d.Ack(false)
	case Drop:
		err = d.Nack(false, false)
	case Requeue:
		err = d.Nack(false, true)
	}
	if err != nil {
		logger.Log.WithError(err).WithField("delivery_tag", d.DeliveryTag).Error("消息确认失败")
	}
	c.metrics.Consumed(service.QueueBoardView, outcome.String())
	return outcome
}

// Run 在conn上注册消费者，一直处理到ctx取消或者channel被关闭
func (c *BoardViewConsumer) Run(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	msgs, err := ch.Consume(
		service.QueueBoardView, // queue
		"",                     // consumer
		false,                  // auto-ack: 手动确认
		false,                  // exclusive
		false,                  // no-local
		false,                  // no-wait
		nil,                    // args
	)
	if err != nil {
		return err
	}

	logger.Log.Info(" [*] 等待浏览消息中. 按 CTRL+C 退出")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("rabbitmq: 消费通道已关闭")
			}
			c.Deliver(ctx, d)
		}
	}
}
