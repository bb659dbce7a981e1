package socketio

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/socket.io-go-redis/adapter"
	r_type "github.com/zishang520/socket.io-go-redis/types"
	"github.com/zishang520/socket.io/v2/socket"

	"chat-service/config"
)

var server *socket.Server

// Init mounts the socket.io endpoint on the fiber app. Clients identify
// themselves with a phoneNumber query parameter and join a room named after
// it, so messages and presence changes can be emitted per user. The Redis
// adapter keeps rooms consistent across instances.
func Init(app *fiber.App, rdb *redis.Client) *socket.Server {
	log.DEBUG = config.Config("SOCKET_DEBUG") == "true"

	options := socket.DefaultServerOptions()
	options.SetServeClient(true)
	options.SetAllowEIO3(true)
	options.SetPingInterval(25 * time.Second)
	options.SetPingTimeout(20 * time.Second)
	options.SetMaxHttpBufferSize(100000000)
	options.SetConnectTimeout(10 * time.Second)
	options.SetAdapter(&adapter.RedisAdapterBuilder{
		Redis: r_type.NewRedisClient(context.Background(), rdb),
		Opts:  &adapter.RedisAdapterOptions{},
	})

	server = socket.NewServer(nil, nil)

	server.Use(func(client *socket.Socket, next func(*socket.ExtendedError)) {
		phone, ok := client.Conn().Request().Query().Get("phoneNumber")
		if ok && phone != "" {
			client.Join(socket.Room(phone))
			client.SetData(phone)
		}
		next(nil)
	})

	app.Get("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))
	app.Post("/socket.io/", adaptor.HTTPHandler(server.ServeHandler(options)))

	return server
}

// Broadcast emits an event to every connected client.
func Broadcast(event string, message any) {
	if server == nil {
		return
	}
	server.FetchSockets()(func(sockets []*socket.RemoteSocket, _ error) {
		for _, s := range sockets {
			s.Emit(event, message)
		}
	})
}

// Emit sends an event to one user's room.
func Emit(phoneNumber string, event string, message any) {
	if server == nil {
		return
	}
	server.To(socket.Room(phoneNumber)).Emit(event, message)
}
