package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCmd(t *testing.T) {
	out := execute(t, "version")
	assert.True(t, strings.HasPrefix(out, "pulsation "+Version))
	assert.Contains(t, out, "Go version:")
}

func TestHashPasswordCmd(t *testing.T) {
	out := strings.TrimSpace(execute(t, "hash-password", "s3cret"))
	require.True(t, strings.HasPrefix(out, "$argon2id$"))

	match, err := argon2id.ComparePasswordAndHash("s3cret", out)
	require.NoError(t, err)
	assert.True(t, match)
}
