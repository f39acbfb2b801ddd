package repository

import "errors"

// ErrWatchNotFound is returned when no watch has the requested ID.
var ErrWatchNotFound = errors.New("watch not found")
