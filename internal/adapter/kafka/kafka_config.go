package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// NewGroup builds a consumer group. version is a Kafka version such as
// "2.6.0"; an empty one keeps 2.6.0. fromOldest starts new groups at the
// beginning of the topic instead of its end.
func NewGroup(brokers []string, groupID, version string, fromOldest bool) (sarama.ConsumerGroup, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_6_0_0
	if version != "" {
		v, err := sarama.ParseKafkaVersion(version)
		if err != nil {
			return nil, fmt.Errorf("kafka version: %w", err)
		}
		cfg.Version = v
	}
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	if fromOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	cfg.Net.DialTimeout = 5 * time.Second
	return sarama.NewConsumerGroup(brokers, groupID, cfg)
}
