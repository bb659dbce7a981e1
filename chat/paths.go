package chat

import "chat-service/store"

// Persisted layout: Users/<phoneNumber> holds the user document, with a
// messages/<id> child collection, each message optionally holding a
// replies/<id> child collection.
const usersRoot = "Users"

func userPath(phone string) string {
	return store.Join(usersRoot, phone)
}

func messagesPath(phone string) string {
	return store.Join(usersRoot, phone, "messages")
}

func messagePath(phone, id string) string {
	return store.Join(usersRoot, phone, "messages", id)
}

func repliesPath(phone, id string) string {
	return store.Join(usersRoot, phone, "messages", id, "replies")
}

func replyPath(phone, id, replyID string) string {
	return store.Join(usersRoot, phone, "messages", id, "replies", replyID)
}
