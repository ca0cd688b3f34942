package store

import (
	"fmt"

	"github.com/iwvelando/installment-calc/pkg/constants"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open creates the backend described by opts. The returned close function is
// never nil.
func Open(opts Options) (Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case constants.StoreBackendMemory:
		return NewMemoryStore(), noop, nil
	case constants.StoreBackendFile, "":
		path := opts.Path
		if path == "" {
			path = constants.DefaultStorePath
		}
		s, err := NewFileStore(path)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case constants.StoreBackendRedis:
		addr := opts.RedisAddr
		if addr == "" {
			addr = constants.DefaultRedisAddr
		}
		s := DialRedis(addr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix)
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported store backend %q", opts.Backend)
	}
}
