package mq

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Handle func(ctx context.Context, body []byte) error

type Consumer interface {
	Consume(ctx context.Context, concurrency int, queue string, handler Handle) error
}

type RabbitConsumer struct {
	ch *amqp.Channel
}

func NewRabbitConsumer(ch *amqp.Channel) Consumer {
	return &RabbitConsumer{ch: ch}
}

// Consume runs handler on a fixed pool of goroutines. Prefetch equals the
// pool size, so the broker never hands this consumer more deliveries than it
// can run at once.
func (c *RabbitConsumer) Consume(ctx context.Context, concurrency int, queue string, handler Handle) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	if err := c.ch.Qos(concurrency, 0, false); err != nil {
		return err
	}

	deliveries, err := c.ch.Consume(
		queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)

	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return

				case d, ok := <-deliveries:
					if !ok {
						return
					}

					if err := handler(ctx, d.Body); err == nil {
						_ = d.Ack(false)
					} else {
						_ = d.Nack(false, shouldRequeue(err))
					}
				}
			}
		}()
	}

	wg.Wait()

	if ctx.Err() != nil {
		_ = c.ch.Cancel("", false)
		time.Sleep(50 * time.Millisecond)
		return ctx.Err()
	}

	return nil
}

func shouldRequeue(err error) bool {
	var te TempError
	if errors.As(err, &te) && te.Temporary() {
		return true
	}
	return false
}
