package kafka_test

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"

	"github.com/f0mster/rpcclient/channel/kafka"
	"github.com/f0mster/rpcclient/client"
	"github.com/f0mster/rpcclient/eventloop"
	"github.com/f0mster/rpcclient/pkg/rnd"
)

/*
  Внимание!

  Для запуска необходим docker.

  Адрес указывается через переменную окружения DOCKER_HOST.

*/

const kafkaContainerName = "rpcclient-docker-test-kafka"

func TestKafkaChannel(t *testing.T) {
	broker, err := initKafka()
	require.NoError(t, err)

	loop := eventloop.New()
	defer loop.Close()
	ch, err := kafka.New(config(), []string{broker}, loop)
	require.NoError(t, err)
	defer ch.Close()

	service, _ := rnd.GenerateRandomString(12)
	cl := client.New(service, client.Config{Loop: loop, Channel: ch})
	defer cl.Close()

	t.Run("unary is unimplemented", func(t *testing.T) {
		_, st := cl.Call("Echo", []byte("hi"))
		require.False(t, st.Ok())
	})

	t.Run("stream delivers published messages", func(t *testing.T) {
		got := make(chan string, 16)
		s := cl.Subscribe("Events", nil, func(data []byte) {
			got <- string(data)
		})
		require.NotNil(t, s)
		defer s.Close()

		// the partition consumer starts at the newest offset, so give it
		// a moment before producing
		time.Sleep(2 * time.Second)

		want := map[string]bool{}
		for i := 0; i < 5; i++ {
			msg := "msg-" + strconv.Itoa(i)
			want[msg] = true
			require.NoError(t, ch.Publish(service, "Events", []byte(msg)))
		}
		for len(want) > 0 {
			select {
			case msg := <-got:
				require.True(t, want[msg], "unexpected message %q", msg)
				delete(want, msg)
			case <-time.After(30 * time.Second):
				t.Fatal("timed out waiting for stream messages", want)
			}
		}
	})
}

func initKafka() (broker string, err error) {
	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		return "", fmt.Errorf("could not start kafka: %s", err)
	}
	resource, ok := dockerPool.ContainerByName(kafkaContainerName)
	if ok {
		resource.Close()
	}
	kafkaResource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Name:       kafkaContainerName,
		Repository: "johnnypark/kafka-zookeeper",
		Tag:        "2.6.0",
		Hostname:   "kafka",
		Env: []string{
			"ADVERTISED_HOST=127.0.0.1",
			"NUM_PARTITIONS=1",
		},
		PortBindings: map[docker.Port][]docker.PortBinding{
			"9092/tcp": {{HostIP: "localhost", HostPort: "9092/tcp"}},
		},
	}, removeAndRestart)
	if err != nil {
		return "", fmt.Errorf("could not start kafka: %s", err)
	}
	addr := kafkaResource.GetHostPort("9092/tcp")
	err = dockerPool.Retry(func() error {
		_, err = sarama.NewClient([]string{addr}, config())
		return err
	})
	if err != nil {
		return "", fmt.Errorf("could not connect to kafka: %s", err)
	}
	return addr, nil
}

func removeAndRestart(config *docker.HostConfig) {
	// Set AutoRemove to true so that stopped container goes away by itself.
	config.AutoRemove = true
	config.RestartPolicy = docker.RestartPolicy{
		Name: "no",
	}
}

func config() *sarama.Config {
	config := sarama.NewConfig()
	config.Admin.Retry.Max = 10
	config.Admin.Retry.Backoff = 10 * time.Second
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Partitioner = sarama.NewRandomPartitioner
	config.Producer.Return.Successes = true
	config.Consumer.Return.Errors = true
	return config
}
