package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cypherx/rewards-backend/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	reconnectDelay = 5 * time.Second
	prefetch       = 10
)

// swapEvent is the queue message published by the swap executor once a
// transaction receipt is confirmed.
type swapEvent struct {
	WalletAddress   string  `json:"wallet_address"`
	SwapValueUSD    float64 `json:"swap_value_usd"`
	SwapValueETH    float64 `json:"swap_value_eth"`
	TransactionHash string  `json:"transaction_hash"`
	InputToken      string  `json:"input_token"`
	OutputToken     string  `json:"output_token"`
	InputAmount     string  `json:"input_amount"`
	OutputAmount    string  `json:"output_amount"`
	FeeBps          int     `json:"fee_bps"`
}

// Consumer feeds queued swap events into the rewards engine. It is an
// alternative entry point to the HTTP route; idempotency makes
// redelivery safe.
type Consumer struct {
	url     string
	queue   string
	rewards service.RewardsService
	log     *logrus.Logger
}

func New(url, queue string, rewards service.RewardsService, log *logrus.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, rewards: rewards, log: log}
}

// Run consumes until ctx is canceled, reconnecting after transient
// connection failures.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Error("rewards queue consumer disconnected, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial rewards queue: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}

	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consume: %w", err)
	}

	c.log.WithField("queue", c.queue).Info("consuming swap events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var ev swapEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		c.log.WithError(err).Warn("dropping undecodable swap event")
		_ = d.Ack(false)
		return
	}

	_, err := c.rewards.ProcessSwapRewards(ctx, service.SwapInput{
		WalletAddress:   ev.WalletAddress,
		ValueUSD:        ev.SwapValueUSD,
		ValueETH:        ev.SwapValueETH,
		TransactionHash: ev.TransactionHash,
		InputToken:      ev.InputToken,
		OutputToken:     ev.OutputToken,
		InputAmount:     ev.InputAmount,
		OutputAmount:    ev.OutputAmount,
		FeeBps:          ev.FeeBps,
	})
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, service.ErrAlreadyProcessed),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrInvalidInput):
		// Expected outcomes; redelivery would not change them.
		c.log.WithError(err).WithField("tx_hash", ev.TransactionHash).Info("swap event not processed")
		_ = d.Ack(false)
	default:
		c.log.WithError(err).WithField("tx_hash", ev.TransactionHash).Error("swap event failed, requeueing")
		_ = d.Nack(false, true)
	}
}
