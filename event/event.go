package event

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"chat-service/config"
)

// Queues: "chat" carries outbound events for downstream consumers
// (notification service, archiver); "broadcast" carries inbound admin
// broadcast commands.
const (
	QueueChat      = "chat"
	QueueBroadcast = "broadcast"
)

// Actions carried in the x-action header.
const (
	ActionUserRegistered  = "user.registered"
	ActionPresenceChanged = "presence.changed"
	ActionMessageSent     = "message.sent"
	ActionMessageDeleted  = "message.deleted"
)

type ChannelData struct {
	Action string
	Data   []byte
}

type SubscribeListener struct {
	Queue   string
	Channel chan ChannelData
}

// BroadcastCommand is the body of a broadcast-queue message.
type BroadcastCommand struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

type logEntry struct {
	Time    int64  `json:"time"`
	Service string `json:"service"`
	Action  string `json:"action"`
	Data    string `json:"data"`
}

const actionHeader = "x-action"
const inLogPath = "log/in.log"
const outLogPath = "log/out.log"

var (
	Connection *amqp.Connection
	Channel    *amqp.Channel
	queues     = make(map[string]amqp.Queue)
	listeners  = make(map[string]chan ChannelData)

	InLogFile  *os.File
	OutLogFile *os.File
)

// Connect dials RabbitMQ, opens a channel and declares the given queues.
func Connect(names []string) {
	var err error
	Connection, err = amqp.Dial(fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		config.Config("RABBITMQ_USER"),
		config.Config("RABBITMQ_PASSWORD"),
		config.Config("RABBITMQ_HOST"),
		config.Config("RABBITMQ_PORT"),
	))
	if err != nil {
		panic("failed to connect to RabbitMQ")
	}
	log.Printf("connection opened to RabbitMQ server")

	Channel, err = Connection.Channel()
	if err != nil {
		panic("failed to open a RabbitMQ channel")
	}

	for _, name := range names {
		queue, err := Channel.QueueDeclare(
			name,  // name
			false, // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			panic("failed to declare a RabbitMQ queue")
		}
		queues[name] = queue
		log.Printf("declared RabbitMQ queue: %s", name)
	}

	if InLogFile, err = os.OpenFile(inLogPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600); err != nil {
		panic(err)
	}
	if OutLogFile, err = os.OpenFile(outLogPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600); err != nil {
		panic(err)
	}
}

// Subscribe consumes each queue and forwards deliveries to its listener
// channel, logging inbound traffic unless EVENT_MODE disables it.
func Subscribe(subs []SubscribeListener) {
	for _, sub := range subs {
		listeners[sub.Queue] = sub.Channel

		msgs, err := Channel.Consume(
			sub.Queue, // queue
			"",        // consumer
			false,     // auto-ack
			false,     // exclusive
			false,     // no-local
			false,     // no-wait
			nil,       // args
		)
		if err != nil {
			panic("failed to register a consumer")
		}
		log.Printf("subscribed to RabbitMQ [%s] queue", sub.Queue)

		go func(sub SubscribeListener) {
			for msg := range msgs {
				action, _ := msg.Headers[actionHeader].(string)

				if config.Config("EVENT_MODE") != "DISABLE" {
					inLog(logEntry{
						Time:    time.Now().UnixMicro(),
						Service: sub.Queue,
						Action:  action,
						Data:    string(msg.Body),
					})
				}

				msg.Ack(false)
				sub.Channel <- ChannelData{Action: action, Data: msg.Body}
			}
		}(sub)
	}
}

// Emit publishes a persistent message to a queue with its action header.
// A nil channel (broker not connected) drops the event; events are not on
// any request's critical path.
func Emit(service, action string, data []byte, logged bool) {
	if Channel == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := Channel.PublishWithContext(
		ctx,
		"",      // exchange
		service, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Headers: amqp.Table{
				actionHeader: action,
			},
			Body: data,
		},
	)
	if err != nil {
		log.Printf("failed to publish %s event: %v", action, err)
		return
	}

	if logged && config.Config("EVENT_MODE") != "DISABLE" {
		outLog(logEntry{
			Time:    time.Now().UnixMicro(),
			Service: service,
			Action:  action,
			Data:    string(data),
		})
	}
}

// EmitJSON marshals v and publishes it on the chat queue.
func EmitJSON(action string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to encode %s event: %v", action, err)
		return
	}
	Emit(QueueChat, action, data, true)
}

func inLog(entry logEntry) {
	raw, _ := json.Marshal(entry)
	if _, err := InLogFile.WriteString(string(raw) + "\n"); err != nil {
		panic(err)
	}
}

func outLog(entry logEntry) {
	raw, _ := json.Marshal(entry)
	if _, err := OutLogFile.WriteString(string(raw) + "\n"); err != nil {
		panic(err)
	}
}

// Init replays event logs according to EVENT_MODE, feeding recorded inbound
// events back to listeners or re-publishing recorded outbound events.
func Init() {
	switch config.Config("EVENT_MODE") {
	case "IN":
		replayIn()
	case "OUT":
		replayOut()
	}
}

func replayIn() {
	file, err := os.Open(inLogPath)
	if err != nil {
		log.Fatalf("failed opening file: %s", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		entry := logEntry{}
		json.Unmarshal([]byte(scanner.Text()), &entry)
		listeners[entry.Service] <- ChannelData{
			Action: entry.Action,
			Data:   []byte(entry.Data),
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatal(err)
	}
}

func replayOut() {
	file, err := os.Open(outLogPath)
	if err != nil {
		log.Fatalf("failed opening file: %s", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		entry := logEntry{}
		json.Unmarshal([]byte(scanner.Text()), &entry)
		Emit(entry.Service, entry.Action, []byte(entry.Data), false)
	}
	if err := scanner.Err(); err != nil {
		log.Fatal(err)
	}
}
