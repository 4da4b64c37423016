package interfaces

import "time"

type Model interface {
	TableName() string
	GetID() string
	SetID(id string)
	GetUserID() string
	SetUserID(userID string)
	SetCreatedAt(t time.Time)
}
