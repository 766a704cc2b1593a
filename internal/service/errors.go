package service

import "errors"

var (
	ErrMentorBusy          = errors.New("mentor turn already in progress")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrUnknownPrayer       = errors.New("unknown prayer")
	ErrUnknownField        = errors.New("unknown field")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrNoSuchChapter       = errors.New("no such chapter")
)
