package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"chat-service/blob"
	"chat-service/chat"
	"chat-service/config"
	"chat-service/controller"
	"chat-service/database"
	"chat-service/event"
	"chat-service/event/listener"
	"chat-service/router"
	"chat-service/socketio"
	"chat-service/store"
)

func main() {
	log.SetPrefix("chat-service: ")

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		AppName:               "chat-service",
		BodyLimit:             25 * 1024 * 1024,
	})

	app.Use(cors.New())

	rdb := database.RedisConnect()
	pg := database.PostgresConnect()
	enforcer := database.Casbin(pg)

	var st store.Store
	switch config.Config("STORE_DRIVER") {
	case "memory":
		st = store.NewMemory()
	default:
		st = store.NewGorm(pg, rdb[0])
	}

	uploader := blob.NewHTTPStore(
		config.Config("BLOB_STORE_URL"),
		config.Config("BLOB_STORE_TOKEN"),
	)
	svc := chat.New(st, uploader, chat.CheckerFromConfig(config.Config("CRED_SCHEME")))

	event.Connect([]string{
		event.QueueChat,
		event.QueueBroadcast,
	})

	// Run broadcast listener
	go listener.Broadcast(svc)

	// Subscribe listener channel to broadcast commands
	event.Subscribe([]event.SubscribeListener{
		{
			Queue:   event.QueueBroadcast,
			Channel: listener.BroadcastChannel,
		},
	})

	// Replay event logs if configured
	event.Init()

	sock := socketio.Init(app, rdb[1])

	ctrl := controller.New(svc, uploader, enforcer)
	router.Rest(app, ctrl, enforcer)
	router.Socket(sock, svc)

	go app.Listen(fmt.Sprintf(":%s", config.Config("SERVER_PORT")))

	exit := make(chan struct{})
	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	sock.Close(nil)
	event.Channel.Close()
	event.Connection.Close()
	event.InLogFile.Close()
	event.OutLogFile.Close()
	os.Exit(0)
}
