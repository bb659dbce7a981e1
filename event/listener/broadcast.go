package listener

import (
	"context"
	"encoding/json"
	"log"

	"chat-service/chat"
	"chat-service/event"
)

var BroadcastChannel = make(chan event.ChannelData)

// Broadcast consumes admin broadcast commands and fans each one out to every
// registered user as an admin-typed message.
func Broadcast(svc *chat.Adapter) {
	for data := range BroadcastChannel {
		var cmd event.BroadcastCommand
		if err := json.Unmarshal(data.Data, &cmd); err != nil {
			log.Printf("broadcast: bad command payload: %v", err)
			continue
		}
		sent, err := svc.Broadcast(context.Background(), cmd.From, cmd.Message)
		if err != nil {
			log.Printf("broadcast: delivered to %d users, stopped: %v", sent, err)
			continue
		}
		log.Printf("broadcast: delivered to %d users", sent)
	}
}
