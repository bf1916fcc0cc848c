package domain

import "time"

// DayLayout es el formato del campo date persistido junto a cada registro.
const DayLayout = "2006-01-02"

// Message es un texto enviado de un usuario a otro. Nunca se modifica.
type Message struct {
	ID        string    `json:"id" bson:"id"`
	FromUser  string    `json:"from_user" bson:"from_user"`
	ToUser    string    `json:"to_user" bson:"to_user"`
	Body      string    `json:"message" bson:"message"`
	CreatedAt time.Time `json:"timestamp" bson:"timestamp"`
	Day       string    `json:"date" bson:"date"`
}

// Involves indica si el mensaje pertenece a la conversacion entre a y b.
func (m Message) Involves(a, b string) bool {
	return (m.FromUser == a && m.ToUser == b) || (m.FromUser == b && m.ToUser == a)
}
