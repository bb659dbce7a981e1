package router

import (
	"context"
	"log"

	"github.com/zishang520/socket.io/v2/socket"

	"chat-service/chat"
	"chat-service/event"
	"chat-service/model"
	"chat-service/socketio"
)

// Socket wires the realtime side: when a client's connection drops without
// an explicit offline call, the deferred presence write registered for that
// phone number is executed, converging the user to offline with a server
// lastSeen.
func Socket(server *socket.Server, svc *chat.Adapter) {
	server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		client.On("disconnect", func(...interface{}) {
			phone, ok := client.Data().(string)
			if !ok || phone == "" {
				return
			}
			if err := svc.HandleDisconnect(context.Background(), phone); err != nil {
				log.Printf("disconnect write for %s failed: %v", phone, err)
				return
			}
			event.EmitJSON(event.ActionPresenceChanged, map[string]interface{}{
				"phoneNumber":  phone,
				"onlineStatus": model.StatusOffline,
			})
			socketio.Broadcast("status", map[string]interface{}{
				"phoneNumber":  phone,
				"onlineStatus": model.StatusOffline,
			})
		})
	})
}
