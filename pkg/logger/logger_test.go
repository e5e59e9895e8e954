package logx

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestComponentTagsEvents(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = orig })

	Component("search").Info().Msg("fetching search results")

	assert.Contains(t, buf.String(), `"component":"search"`)
	assert.Contains(t, buf.String(), "fetching search results")
}
