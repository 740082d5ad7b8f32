package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
	"time"
)

type DB int
type ReleaseLock func() error

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
}

var ctx = context.Background()

type Config struct {
	LockExpirationSeconds   int     `envconfig:"CHUNKER_REDIS_LOCK_EXPIRATION" default:"3"`
	Host                    string  `envconfig:"CHUNKER_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"CHUNKER_REDIS_PORT" required:"true"`
	HASentinelPort          string  `envconfig:"CHUNKER_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"CHUNKER_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"CHUNKER_REDIS_AUTH_PASSWORD" default:""`
	AuthRequired            bool    `envconfig:"CHUNKER_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"CHUNKER_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"CHUNKER_REDIS_SOCKET_TIMEOUT" default:"0.5"`
}

func NewClient(db DB) (Client, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Client{}, err
	}
	var client redis.UniversalClient
	if cfg.HAMode {
		client = createFailoverClient(&cfg, db)
	} else {
		client = createClient(&cfg, db)
	}
	return Client{
		client:         client,
		lockExpiration: time.Duration(cfg.LockExpirationSeconds) * time.Second,
	}, nil
}

func createFailoverClient(cfg *Config, db DB) *redis.ClusterClient {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.HASentinelPort)
	timeout := time.Duration(cfg.HASentinelSocketTimeout) * time.Second
	options := redis.FailoverOptions{
		SentinelAddrs: []string{addr},
		ReadTimeout:   timeout,
		WriteTimeout:  timeout,
		MaxRetries:    6,
		DB:            int(db),
		MasterName:    cfg.HASentinelMasterName,
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewFailoverClusterClient(&options)
}

func createClient(cfg *Config, db DB) *redis.Client {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	options := redis.Options{
		Addr:       addr,
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewClient(&options)
}

// GetDocument unmarshals the JSON document stored under redisKey into doc.
func (client *Client) GetDocument(redisKey string, doc interface{}) error {
	response := client.client.Get(ctx, redisKey)
	if response.Err() != nil {
		return response.Err()
	}
	b, err := response.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, doc)
}

// UpdateDocument runs a locked read-modify-write cycle: it obtains the
// document lock, loads the document into doc, calls updateFunc to mutate
// it and writes it back before releasing the lock.
func (client *Client) UpdateDocument(redisKey string, doc interface{}, updateFunc func()) (err error) {
	releaseLock, err := client.Lock(redisKey)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := releaseLock(); err == nil {
			err = releaseErr
		}
	}()
	if err = client.GetDocument(redisKey, doc); err != nil {
		return err
	}
	updateFunc()
	return client.SaveDocument(redisKey, doc)
}

func (client *Client) Lock(redisKey string) (ReleaseLock, error) {
	lockCl := redislock.New(client.client)
	str := redislock.LimitRetry(redislock.LinearBackoff(time.Second), 20)
	lockKey := fmt.Sprintf("lock:%s", redisKey)
	lock, err := lockCl.Obtain(ctx, lockKey, client.lockExpiration, &redislock.Options{RetryStrategy: str})
	if err != nil {
		return nil, err
	}
	return func() error {
		return lock.Release(ctx)
	}, nil
}

func (client *Client) SaveDocument(redisKey string, doc interface{}) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return client.client.Set(ctx, redisKey, b, 0).Err()
}

func (client *Client) Close() error {
	return client.client.Close()
}
