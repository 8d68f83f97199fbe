package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	var (
		addr = "localhost:8080"
		dsn  = "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"
		orig = []string{"http://localhost:3000"}
	)

	tcases := []struct {
		name      string
		addr      string
		dsn       string
		staticDir string
		orig      []string
		err       bool
	}{
		{
			name: "valid config",
			addr: addr,
			dsn:  dsn,
			orig: orig,
			err:  false,
		},
		{
			name: "empty address",
			addr: "",
			dsn:  dsn,
			orig: orig,
			err:  true,
		},
		{
			name: "empty DSN",
			addr: addr,
			dsn:  "",
			orig: orig,
			err:  true,
		},
		{
			name:      "static dir is optional",
			addr:      addr,
			dsn:       dsn,
			staticDir: "build",
			orig:      orig,
			err:       false,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.addr, tc.dsn, tc.staticDir, tc.orig)
			if tc.err {
				assert.Error(t, err, "expected an error for case %q", tc.name)
				assert.Nil(t, cfg, "expected nil config on error")
				return
			}

			assert.NoError(t, err, "expected no error for case %q", tc.name)
			assert.Equal(t, tc.addr, cfg.ServerAddr, "expected server address to match")
			assert.Equal(t, tc.dsn, cfg.DatabaseDSN, "expected DSN to match")
			assert.Equal(t, tc.staticDir, cfg.StaticDir, "expected static dir to match")
			assert.Equal(t, tc.orig, cfg.AllowedOrigins, "expected allowed origins to match")
		})
	}

	t.Run("defaults allowed origins", func(t *testing.T) {
		cfg, err := NewConfig(addr, dsn, "", nil)
		assert.NoError(t, err, "expected no error")
		assert.Equal(t, []string{"*"}, cfg.AllowedOrigins, "expected wildcard origin default")
	})
}
