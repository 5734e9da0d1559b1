package repository

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a credit record whose hashed id is taken
	ErrAlreadyExists = errors.New("already exists")
	// ErrVersionConflict is returned when a credit record changed since it was read
	ErrVersionConflict = errors.New("version conflict")
)
