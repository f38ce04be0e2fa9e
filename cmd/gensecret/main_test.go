package main

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("default length", func(t *testing.T) {
		t.Parallel()

		key, err := generate(defaultKeyBytesLen)

		require.NoError(t, err)
		require.Len(t, key, 64)
		_, err = hex.DecodeString(key)
		require.NoError(t, err, "key should be hex encoded")
	})

	t.Run("keys differ", func(t *testing.T) {
		t.Parallel()

		first, err := generate(48)
		require.NoError(t, err)
		second, err := generate(48)
		require.NoError(t, err)

		require.Len(t, first, 96)
		require.NotEqual(t, first, second)
	})

	t.Run("too short", func(t *testing.T) {
		t.Parallel()

		_, err := generate(16)

		require.Error(t, err)
	})
}

func TestRun_InvalidFlag(t *testing.T) {
	t.Parallel()

	require.Error(t, run([]string{"--bytes", "many"}))
}
