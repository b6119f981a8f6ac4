package schema

import "errors"

var ErrUnknownFormat = errors.New("unknown snapshot format")
