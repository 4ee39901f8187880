package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandExposesOverrideFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "feed-url", "output", "interval", "webhook", "max-age"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}
