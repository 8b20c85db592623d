package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// subscriberBuffer go-redis가 내부 채널에 쌓아 두는 메시지 수
const subscriberBuffer = 64

// PubSub JSON 메시지를 주고받는 Redis pub/sub 클라이언트
type PubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan Message, error)
	Close() error
}

// Message 수신한 메시지. Received는 이 프로세스가 받은 시각입니다.
type Message struct {
	Channel  string
	Payload  []byte
	Received time.Time
}

func (m Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}

type redisPubSub struct {
	client *redis.Client
	owned  bool
}

// Dial 전용 연결을 엽니다. Close가 연결을 닫습니다.
func Dial(ctx context.Context, opts *redis.Options) (PubSub, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("messaging: ping %s: %w", opts.Addr, err)
	}
	return &redisPubSub{client: client, owned: true}, nil
}

// FromClient 캐시용으로 이미 열린 클라이언트를 공유합니다. Close는 아무것도 닫지 않습니다.
func FromClient(client *redis.Client) PubSub {
	return &redisPubSub{client: client}
}

func (r *redisPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("messaging: encode %T: %w", message, err)
	}
	return r.client.Publish(ctx, channel, payload).Err()
}

// Subscribe 구독이 확인된 뒤에 반환합니다. ctx가 끝나면 구독을 해제하고 채널을 닫습니다.
func (r *redisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan Message, error) {
	sub := r.client.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("messaging: subscribe %v: %w", channels, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = sub.Close() })
	out := make(chan Message)
	go func() {
		defer close(out)
		defer stop()
		defer sub.Close()

		for msg := range sub.Channel(redis.WithChannelSize(subscriberBuffer)) {
			m := Message{Channel: msg.Channel, Payload: []byte(msg.Payload), Received: time.Now()}
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *redisPubSub) Close() error {
	if r.owned {
		return r.client.Close()
	}
	return nil
}
