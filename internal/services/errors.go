package services

import "github.com/pkg/errors"

var (
	ErrUserExists         = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotMember          = errors.New("not a member of this room")
	ErrRoomNotFound       = errors.New("room not found")
	ErrDuplicateMessage   = errors.New("message already stored")
)
