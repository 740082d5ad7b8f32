// Package rmq connects the tagging worker to RabbitMQ: one connection
// consumes tagging tasks, a second one publishes progress messages to
// the sequencer. Both queues are declared passively, the broker owns
// their topology.
package rmq

import (
	"github.com/presic/chunker/logger"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

type Config struct {
	Host                    string `envconfig:"CHUNKER_RMQ_HOST" required:"true"`
	Port                    string `envconfig:"CHUNKER_RMQ_PORT" required:"true"`
	Username                string `envconfig:"CHUNKER_RMQ_USERNAME" required:"true"`
	Password                string `envconfig:"CHUNKER_RMQ_PASSWORD" required:"true"`
	Exchange                string `envconfig:"CHUNKER_RMQ_DEFAULT_EXCHANGE" default:"chunker-default-exchange"`
	MaxParallelRequestCount int    `envconfig:"CHUNKER_MQ_MAX_PARALLEL_REQUESTS" default:"5"`
	TaskQueue               string `envconfig:"CHUNKER_TASK_QUEUE" required:"true"`
	SequencerTaskQueue      string `envconfig:"CHUNKER_SEQUENCER_TASK_QUEUE" required:"true"`
}

func (config Config) url() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s", config.Username, config.Password, config.Host, config.Port)
}

type connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	errors  <-chan *amqp.Error
}

func dial(url string) (*connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rmq: dialing broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rmq: opening channel: %w", err)
	}
	return &connection{
		conn:    conn,
		channel: channel,
		errors:  channel.NotifyClose(make(chan *amqp.Error)),
	}, nil
}

type Client struct {
	Deliveries     <-chan amqp.Delivery
	ReqChanErrors  <-chan *amqp.Error
	RespChanErrors <-chan *amqp.Error
	config         Config
	req            *connection
	resp           *connection
	log            *zerolog.Logger
}

func NewClient() (*Client, error) {
	rmqLogger := logger.NewLogger("RMQ client")
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		rmqLogger.Error().Err(err).Msg("Could not read env config")
		return nil, err
	}

	resp, err := dial(config.url())
	if err != nil {
		return nil, err
	}
	req, err := dial(config.url())
	if err != nil {
		resp.close()
		return nil, err
	}

	deliveries, err := consumeTaskQueue(req.channel, config)
	if err != nil {
		req.close()
		resp.close()
		return nil, err
	}

	return &Client{
		Deliveries:     deliveries,
		ReqChanErrors:  req.errors,
		RespChanErrors: resp.errors,
		config:         config,
		req:            req,
		resp:           resp,
		log:            &rmqLogger,
	}, nil
}

// consumeTaskQueue binds the existing task queue to the exchange and
// starts a consumer limited to the configured number of unacked
// deliveries.
func consumeTaskQueue(channel *amqp.Channel, config Config) (<-chan amqp.Delivery, error) {
	q, err := channel.QueueDeclarePassive(config.TaskQueue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rmq: task queue %q is not declared: %w", config.TaskQueue, err)
	}
	err = channel.QueueBind(config.TaskQueue, config.TaskQueue, config.Exchange, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rmq: binding task queue: %w", err)
	}
	if err = channel.Qos(config.MaxParallelRequestCount, 0, false); err != nil {
		return nil, fmt.Errorf("rmq: setting qos: %w", err)
	}
	deliveries, err := channel.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rmq: consuming deliveries: %w", err)
	}
	return deliveries, nil
}

func (c *Client) SendMessageToSequencer(msg amqp.Publishing) error {
	return c.resp.channel.Publish(
		c.config.Exchange,
		c.config.SequencerTaskQueue,
		false,
		false,
		msg)
}

func (c *Client) Close() {
	c.req.close()
	c.resp.close()
}

func (c *connection) close() {
	_ = c.conn.Close()
}
