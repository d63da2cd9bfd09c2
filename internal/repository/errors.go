package repository

import "errors"

var ErrDuplicateKey = errors.New("duplicate key")
