package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrEngine       = errors.New("engine error")
	ErrSessionLimit = errors.New("session limit reached")
)

func wrapEngine(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrEngine, err)
}
