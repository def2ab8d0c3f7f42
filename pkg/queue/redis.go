package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig Redis 队列配置
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
	PoolSize int    `env:"REDIS_POOL_SIZE"`
}

// redisQueue 基于 Redis list 的队列实现
// LPUSH 入队尾、(B)RPOP 出队头，顺序与原子性由 Redis 列表操作保证
type redisQueue struct {
	client *redis.Client
}

// NewRedisQueue 创建 Redis 队列并探活
func NewRedisQueue(config RedisConfig) (Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisQueue{client: client}, nil
}

// NewRedisQueueWithClient 复用外部 client（server 与 worker 共享连接池）
func NewRedisQueueWithClient(client *redis.Client) Queue {
	return &redisQueue{client: client}
}

func (q *redisQueue) Enqueue(ctx context.Context, queueName string, item *WorkItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal work item: %w", err)
	}
	return q.client.LPush(ctx, queueName, data).Err()
}

func (q *redisQueue) Dequeue(ctx context.Context, queueName string) (*WorkItem, error) {
	data, err := q.client.RPop(ctx, queueName).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	return unmarshalItem(data)
}

func (q *redisQueue) BDequeue(ctx context.Context, timeout time.Duration, queueNames ...string) (*WorkItem, error) {
	// BRPOP 支持同时监听多个列表，先到先得
	res, err := q.client.BRPop(ctx, timeout, queueNames...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	// res[0] 是命中的队列名，res[1] 是内容
	return unmarshalItem([]byte(res[1]))
}

func (q *redisQueue) Len(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

func (q *redisQueue) Close() error { return q.client.Close() }

func unmarshalItem(data []byte) (*WorkItem, error) {
	var item WorkItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal work item: %w", err)
	}
	return &item, nil
}
