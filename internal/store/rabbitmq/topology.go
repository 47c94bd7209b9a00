package rabbitmq

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeclareExchange declares the durable topic exchange lifecycle events are
// routed through, keyed by event kind.
func DeclareExchange(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil)
}

func RetryQueue(queue string) string { return queue + ".retry" }

func DeadLetterQueue(queue string) string { return queue + ".dlq" }

type queueSpec struct {
	name string
	args amqp.Table
}

// consumerQueues lists queue, its retry queue and its DLQ in declaration order.
// A retried message waits out retryDelay and is dead-lettered back to queue;
// a rejected one lands in the DLQ.
func consumerQueues(queue string, retryDelay time.Duration) []queueSpec {
	return []queueSpec{
		{name: DeadLetterQueue(queue)},
		{name: RetryQueue(queue), args: amqp.Table{
			"x-message-ttl":             int32(retryDelay.Milliseconds()),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": queue,
		}},
		{name: queue, args: amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": DeadLetterQueue(queue),
		}},
	}
}

// DeclareConsumerQueues declares the exchange and the queues of one consumer,
// binding queue to every event kind.
func DeclareConsumerQueues(ch *amqp.Channel, exchange, queue string, retryDelay time.Duration) error {
	if err := DeclareExchange(ch, exchange); err != nil {
		return err
	}
	for _, q := range consumerQueues(queue, retryDelay) {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return err
		}
	}
	return ch.QueueBind(queue, "#", exchange, false, nil)
}
