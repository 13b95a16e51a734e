package rabbitmq

import (
	"context"
	"encoding/json"

	"github.com/streadway/amqp"
)

// InitRabbitMQ 初始化RabbitMQ连接
func InitRabbitMQ(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// DeclareQueue 声明一个持久化队列，已存在则什么都不做（幂等）
func DeclareQueue(conn *amqp.Connection, name string) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	return err
}

// Publisher 把任意结构体序列化成JSON投递到默认交换机
type Publisher struct {
	conn *amqp.Connection
}

func NewPublisher(conn *amqp.Connection) *Publisher {
	return &Publisher{conn: conn}
}

// PublishJSON 每条消息单独开一个channel，消息之间互不影响
func (p *Publisher) PublishJSON(ctx context.Context, queue string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return ch.Publish(
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
}
