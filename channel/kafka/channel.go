// Package kafka is a subscription-only channel: streams are consumed from
// a <service>.<method> topic. Unary calls report Unimplemented; kafka is
// a streaming substrate, not a request/response one.
package kafka

import (
	"sync"

	"github.com/Shopify/sarama"
	"google.golang.org/grpc/codes"

	"github.com/f0mster/rpcclient/channel"
	"github.com/f0mster/rpcclient/eventloop"
	"github.com/f0mster/rpcclient/serializer"
	"github.com/f0mster/rpcclient/status"
)

var statusUnary = status.New(codes.Unimplemented, "unary calls are not supported by the kafka channel")

type Channel struct {
	loop         *eventloop.Loop
	client       sarama.Client
	consumer     sarama.Consumer
	syncProducer sarama.SyncProducer
	config       *sarama.Config
	ser          serializer.Serializer

	m      sync.Mutex
	topics map[string]bool
}

func New(config *sarama.Config, brokers []string, loop *eventloop.Loop) (*Channel, error) {
	if config == nil {
		config = sarama.NewConfig()
		config.Producer.Return.Successes = true
	}
	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		return nil, err
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		return nil, err
	}
	return &Channel{
		loop:         loop,
		client:       client,
		consumer:     consumer,
		syncProducer: producer,
		config:       config,
		ser:          &serializer.DefaultSerializer{},
		topics:       map[string]bool{},
	}, nil
}

func (c *Channel) Close() {
	_ = c.syncProducer.Close()
	_ = c.consumer.Close()
	_ = c.client.Close()
}

func (c *Channel) Call(method string, service string, args []byte) ([]byte, status.Status) {
	return nil, statusUnary
}

func (c *Channel) CallAsync(method string, service string, args []byte, reply channel.Reply) {
	c.loop.Post(func() {
		reply.Fail(statusUnary)
	})
}

func (c *Channel) Subscribe(stream channel.Stream, service string) {
	topic := service + "." + stream.Method()
	if err := c.ensureTopic(topic); err != nil {
		c.loop.Post(func() {
			stream.Fail(status.FromError(err))
		})
		return
	}
	pc, err := c.consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		c.loop.Post(func() {
			stream.Fail(status.New(codes.Unavailable, err.Error()))
		})
		return
	}

	go func() {
		defer pc.Close()
		for {
			select {
			case <-stream.Done():
				return
			case msg, ok := <-pc.Messages():
				if !ok {
					c.loop.Post(func() {
						stream.Fail(status.New(codes.Unavailable, "kafka consumer closed"))
					})
					return
				}
				data := msg.Value
				c.loop.Post(func() {
					stream.Push(data)
				})
			case cerr := <-pc.Errors():
				st := status.New(codes.Unavailable, cerr.Error())
				c.loop.Post(func() {
					stream.Fail(st)
				})
				return
			}
		}
	}()
}

// Publish is the serving side: it produces one stream message for every
// subscriber of service/method.
func (c *Channel) Publish(service, method string, data []byte) error {
	topic := service + "." + method
	if err := c.ensureTopic(topic); err != nil {
		return err
	}
	_, _, err := c.syncProducer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(data),
	})
	return err
}

func (c *Channel) ensureTopic(topic string) error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.topics[topic] {
		return nil
	}
	admin, err := sarama.NewClusterAdminFromClient(c.client)
	if err != nil {
		return err
	}
	topics, err := admin.ListTopics()
	if err != nil {
		return err
	}
	if _, ok := topics[topic]; !ok {
		detail := &sarama.TopicDetail{
			NumPartitions:     1,
			ReplicationFactor: 1,
			ConfigEntries:     map[string]*string{},
		}
		if err = admin.CreateTopic(topic, detail, false); err != nil {
			return err
		}
	}
	c.topics[topic] = true
	return nil
}

func (c *Channel) Serializer() serializer.Serializer {
	return c.ser
}

func (c *Channel) Loop() *eventloop.Loop {
	return c.loop
}
