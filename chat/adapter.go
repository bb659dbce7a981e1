package chat

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"chat-service/blob"
	"chat-service/model"
	"chat-service/store"
)

// DeletedSentinel replaces the text of a soft-deleted message. The node stays
// addressable; only its content is overwritten.
const DeletedSentinel = "This message was deleted"

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// Adapter maps chat operations onto reads and writes against the document
// tree. It holds no state of its own; concurrency control is entirely the
// tree's ordered unique keys.
type Adapter struct {
	store store.Store
	blob  blob.Uploader
	creds CredentialChecker
	now   func() time.Time
}

func New(st store.Store, uploader blob.Uploader, creds CredentialChecker) *Adapter {
	return &Adapter{store: st, blob: uploader, creds: creds, now: time.Now}
}

// RegisterUser creates Users/<phoneNumber> exactly once. The number doubles
// as the node key, so a duplicate registration is a conflict, not an update.
func (a *Adapter) RegisterUser(ctx context.Context, phoneNumber, password string) error {
	if !phonePattern.MatchString(phoneNumber) {
		return fmt.Errorf("%w: phone number must be 10 digits", ErrInvalidArgument)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	exists, err := a.store.Exists(ctx, userPath(phoneNumber))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: user %s", ErrConflict, phoneNumber)
	}
	stored, err := a.creds.Store(password)
	if err != nil {
		return err
	}
	return a.store.SetDoc(ctx, userPath(phoneNumber), model.User{
		PhoneNumber:  phoneNumber,
		Password:     stored,
		OnlineStatus: model.StatusOffline,
		LastSeen:     nil,
		Role:         "user",
	})
}

// Authenticate verifies the shared secret and returns the stored phone
// number. No token or session is issued.
func (a *Adapter) Authenticate(ctx context.Context, phoneNumber, password string) (string, error) {
	var user model.User
	ok, err := a.store.GetDoc(ctx, userPath(phoneNumber), &user)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: user %s", ErrNotFound, phoneNumber)
	}
	if !a.creds.Check(user.Password, password) {
		return "", fmt.Errorf("%w: wrong password", ErrUnauthorized)
	}
	return user.PhoneNumber, nil
}

// SetPresence flips onlineStatus. Going online clears lastSeen and registers
// a deferred write that converges the user to offline with a server-side
// lastSeen should the connection drop without an explicit offline call.
// Going offline cancels any pending deferred write and applies the offline
// state immediately.
//
// No user-existence check is performed: declaring presence for an
// unregistered number writes a bare presence-only node. Existing clients
// rely on this.
func (a *Adapter) SetPresence(ctx context.Context, phoneNumber, status string) error {
	if phoneNumber == "" {
		return fmt.Errorf("%w: phone number is required", ErrInvalidArgument)
	}
	switch status {
	case model.StatusOnline:
		err := a.store.Update(ctx, userPath(phoneNumber), store.Fields{
			"onlineStatus": model.StatusOnline,
			"lastSeen":     nil,
		})
		if err != nil {
			return err
		}
		return a.store.RegisterDisconnectAction(ctx, phoneNumber, userPath(phoneNumber), store.Fields{
			"onlineStatus": model.StatusOffline,
			"lastSeen":     store.ServerTimestamp,
		})
	case model.StatusOffline:
		if err := a.store.CancelDisconnectActions(ctx, phoneNumber); err != nil {
			return err
		}
		return a.store.Update(ctx, userPath(phoneNumber), store.Fields{
			"onlineStatus": model.StatusOffline,
			"lastSeen":     a.now().UnixMilli(),
		})
	default:
		return fmt.Errorf("%w: status must be online or offline", ErrInvalidArgument)
	}
}

// HandleDisconnect runs the deferred presence write registered for the
// dropped session, if any.
func (a *Adapter) HandleDisconnect(ctx context.Context, phoneNumber string) error {
	return a.store.FireDisconnectActions(ctx, phoneNumber)
}

// SendMessage writes one message under both parties' collections at a single
// shared id and returns that id. When image bytes are supplied they are
// pushed to the blob store first; an upload failure aborts the send before
// anything is written. The two copy writes themselves are independent: a
// crash between them leaves exactly one copy, and no transactional delivery
// is claimed.
func (a *Adapter) SendMessage(ctx context.Context, to, from, text string, image []byte, imageType string) (string, error) {
	if to == "" || from == "" {
		return "", fmt.Errorf("%w: to and from are required", ErrInvalidArgument)
	}
	if text == "" && len(image) == 0 {
		return "", fmt.Errorf("%w: message text or image is required", ErrInvalidArgument)
	}
	if ok, err := a.store.Exists(ctx, userPath(to)); err != nil {
		return "", err
	} else if !ok {
		return "", fmt.Errorf("%w: recipient %s", ErrNotFound, to)
	}
	if ok, err := a.store.Exists(ctx, userPath(from)); err != nil {
		return "", err
	} else if !ok {
		return "", fmt.Errorf("%w: sender %s", ErrNotFound, from)
	}

	var imageURL *string
	if len(image) > 0 {
		url, err := a.blob.Upload(ctx, image, imageType)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		imageURL = &url
	}
	return a.send(ctx, to, from, text, imageURL, model.MessageTypeClient)
}

// send mints one id and writes the identical payload under both inboxes.
func (a *Adapter) send(ctx context.Context, to, from, text string, imageURL *string, msgType string) (string, error) {
	id, err := a.store.Push(ctx, messagesPath(from))
	if err != nil {
		return "", err
	}
	msg := model.Message{
		To:        to,
		From:      from,
		Message:   text,
		ImageURL:  imageURL,
		Timestamp: a.now().UTC().Format(time.RFC3339),
		Type:      msgType,
	}
	if err := a.store.SetDoc(ctx, messagePath(from, id), msg); err != nil {
		return "", err
	}
	if err := a.store.SetDoc(ctx, messagePath(to, id), msg); err != nil {
		return "", err
	}
	return id, nil
}

// Broadcast sends an admin-typed message from the given sender to every
// registered user. Returns the number of recipients reached.
func (a *Adapter) Broadcast(ctx context.Context, from, text string) (int, error) {
	if from == "" || text == "" {
		return 0, fmt.Errorf("%w: from and message are required", ErrInvalidArgument)
	}
	snap, err := a.store.Subtree(ctx, usersRoot)
	if err != nil {
		return 0, err
	}
	if snap == nil {
		return 0, nil
	}
	sent := 0
	for _, user := range snap.Children {
		if user.Key == from {
			continue
		}
		if _, err := a.send(ctx, user.Key, from, text, nil, model.MessageTypeAdmin); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// ReplyToMessage appends a reply under the given user's copy of the parent
// message. The parent must exist in that copy.
func (a *Adapter) ReplyToMessage(ctx context.Context, phoneNumber, messageID, sender, text string, imageURL *string) (string, error) {
	if phoneNumber == "" || messageID == "" || sender == "" {
		return "", fmt.Errorf("%w: phone number, message id and sender are required", ErrInvalidArgument)
	}
	if text == "" && imageURL == nil {
		return "", fmt.Errorf("%w: reply text or image is required", ErrInvalidArgument)
	}
	ok, err := a.store.Exists(ctx, messagePath(phoneNumber, messageID))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	replyID, err := a.store.Push(ctx, repliesPath(phoneNumber, messageID))
	if err != nil {
		return "", err
	}
	reply := model.Reply{
		Sender:    sender,
		Text:      text,
		ImageURL:  imageURL,
		Timestamp: a.now().UTC().Format(time.RFC3339),
	}
	if err := a.store.SetDoc(ctx, replyPath(phoneNumber, messageID, replyID), reply); err != nil {
		return "", err
	}
	return replyID, nil
}

// FetchMessages returns the user's full message collection in key order,
// replies included. An existing user with an empty collection gets an empty
// slice, not an error; only a missing user node is a failure.
func (a *Adapter) FetchMessages(ctx context.Context, phoneNumber string) ([]model.Message, error) {
	if phoneNumber == "" {
		return nil, fmt.Errorf("%w: phone number is required", ErrInvalidArgument)
	}
	ok, err := a.store.Exists(ctx, userPath(phoneNumber))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, phoneNumber)
	}
	snap, err := a.store.Subtree(ctx, messagesPath(phoneNumber))
	if err != nil {
		return nil, err
	}
	return messagesFromSnapshot(snap)
}

// FetchAllUsersMessages returns every user's id and message collection.
func (a *Adapter) FetchAllUsersMessages(ctx context.Context) ([]model.UserMessages, error) {
	snap, err := a.store.Subtree(ctx, usersRoot)
	if err != nil {
		return nil, err
	}
	all := []model.UserMessages{}
	if snap == nil {
		return all, nil
	}
	for _, user := range snap.Children {
		messages, err := messagesFromSnapshot(user.Child("messages"))
		if err != nil {
			return nil, err
		}
		all = append(all, model.UserMessages{PhoneNumber: user.Key, Messages: messages})
	}
	return all, nil
}

// DeleteMessage soft-deletes both copies of a message: the text is replaced
// with the sentinel and the timestamp refreshed. Both copies are always
// attempted; a copy already updated is never rolled back when the other is
// missing, that outcome surfaces as ErrPartialDelete.
func (a *Adapter) DeleteMessage(ctx context.Context, messageID, to, from string) error {
	if messageID == "" || to == "" || from == "" {
		return fmt.Errorf("%w: message id, to and from are required", ErrInvalidArgument)
	}
	stamp := a.now().UTC().Format(time.RFC3339)
	missing := make([]string, 0, 2)
	for _, owner := range []string{from, to} {
		ok, err := a.store.Exists(ctx, messagePath(owner, messageID))
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, owner)
			continue
		}
		err = a.store.Update(ctx, messagePath(owner, messageID), store.Fields{
			"message":   DeletedSentinel,
			"timestamp": stamp,
		})
		if err != nil {
			return err
		}
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%w: no copy under %s", ErrPartialDelete, missing[0])
	default:
		return fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
}

func messagesFromSnapshot(snap *store.Snapshot) ([]model.Message, error) {
	messages := []model.Message{}
	if snap == nil {
		return messages, nil
	}
	for _, node := range snap.Children {
		var msg model.Message
		if err := node.Decode(&msg); err != nil {
			return nil, err
		}
		msg.ID = node.Key
		if replies := node.Child("replies"); replies != nil {
			for _, r := range replies.Children {
				var reply model.Reply
				if err := r.Decode(&reply); err != nil {
					return nil, err
				}
				reply.ID = r.Key
				msg.Replies = append(msg.Replies, reply)
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
