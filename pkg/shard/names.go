package shard

import "fmt"

// RoutingKey is "<base>.shard-<i>".
func RoutingKey(base string, i int) string {
	return fmt.Sprintf("%s.shard-%d", base, i)
}

// Queue is "<base>.shard-<i>.queue".
func Queue(base string, i int) string {
	return fmt.Sprintf("%s.shard-%d.queue", base, i)
}

func RetryQueue(base string, i int) string {
	return Queue(base, i) + ".retry"
}

func DeadLetterQueue(base string, i int) string {
	return Queue(base, i) + ".dlq"
}

func RetryExchange(exchange string) string {
	return exchange + ".retry"
}

func DeadLetterExchange(exchange string) string {
	return exchange + ".dlx"
}
