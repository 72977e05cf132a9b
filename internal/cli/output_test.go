package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dual/doubletake/internal/cache"
	"github.com/dual/doubletake/internal/engine"
	"github.com/dual/doubletake/internal/schema"
)

func TestOutputFormatterSuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.SuccessJSON([]byte(`{"a":1}`)))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.JSONEq(t, `{"a":1}`, string(resp.Data))
}

func TestOutputFormatterSuccessText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.SuccessJSON([]byte(`{"a":1}`)))
	assert.Equal(t, "{\"a\":1}\n", buf.String())
}

func TestOutputFormatterError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Error(ErrCodeScrubFailed, "boom", nil))
	assert.Contains(t, buf.String(), "Error [E006]: boom")

	buf.Reset()
	f.Format = "json"
	require.NoError(t, f.Error(ErrCodeScrubFailed, "boom", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeScrubFailed, resp.Error.Code)
}

func TestOutputFormatterVerboseLogGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	f.VerboseLog("loaded %d files", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3 files\n", errOut.String())

	f.Verbose = false
	errOut.Reset()
	f.VerboseLog("suppressed")
	assert.Empty(t, errOut.String())
}

func TestMapScrubError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"cycle", engine.NewCycleError("a.b"), ErrCodeScrubFailed},
		{"depth", engine.NewMaxDepthError("a", 64), ErrCodeScrubFailed},
		{"mismatch", engine.NewSchemaMismatchError("a", "email", "string", "int"), ErrCodeScrubFailed},
		{"compile", &schema.CompileError{Field: "User.email", Message: "bad"}, ErrCodeSchemaCompile},
		{"exhausted", &cache.ExhaustedError{Category: "email", Attempts: 5}, ErrCodeCacheFailed},
		{"generic", assert.AnError, ErrCodeGeneric},
		{"wrapped", fmt.Errorf("scrub: %w", engine.NewCycleError("x")), ErrCodeScrubFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapScrubError(tt.err))
		})
	}
}
