package domain

import "time"

// NotificationKindNewMessage es el unico tipo de notificacion que se emite.
const NotificationKindNewMessage = "new_message"

// Notification acompaña a cada Message y pertenece al destinatario.
// Read solo pasa de false a true.
type Notification struct {
	ID        string    `json:"id" bson:"id"`
	FromUser  string    `json:"from_user" bson:"from_user"`
	ToUser    string    `json:"to_user" bson:"to_user"`
	Body      string    `json:"message" bson:"message"`
	CreatedAt time.Time `json:"timestamp" bson:"timestamp"`
	Day       string    `json:"date" bson:"date"`
	Kind      string    `json:"type" bson:"type"`
	Read      bool      `json:"read" bson:"read"`
}

// NewMessageNotification construye la notificacion pareada con msg usando otro id.
func NewMessageNotification(id string, msg Message) Notification {
	return Notification{
		ID:        id,
		FromUser:  msg.FromUser,
		ToUser:    msg.ToUser,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
		Day:       msg.Day,
		Kind:      NotificationKindNewMessage,
	}
}
