package service

import "github.com/mdobak/go-xerrors"

var (
	ErrNoTarget      = xerrors.Message("no target user in message")
	ErrInvalidTarget = xerrors.Message("target id must be 5-12 digits")
	ErrFetch         = xerrors.Message("meme fetch failed")
)
