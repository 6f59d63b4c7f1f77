package store

import "ocv/internal/persist"

var _ persist.KV = (*Store)(nil)
