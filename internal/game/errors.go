package game

import "errors"

var (
	ErrOutOfRange   = errors.New("cell out of range")
	ErrOccupied     = errors.New("cell is occupied")
	ErrEmptyCell    = errors.New("cell is empty")
	ErrInvalidHand  = errors.New("invalid hand")
	ErrInvalidTurn  = errors.New("not your turn")
	ErrGameNotFound = errors.New("game not found")
	ErrGameFinished = errors.New("game already finished")
)
