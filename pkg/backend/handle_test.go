package backend

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandle runs the behavior every real backend must share.
func testHandle(t *testing.T, open Opener) {
	t.Run("create and remove", func(t *testing.T) {
		h := openHandle(t, open)
		dir := t.TempDir()
		require.NoError(t, h.AddWatch(dir))
		require.NoError(t, h.AddWatch(dir), "adding twice should be a no-op")

		path := filepath.Join(dir, "f.txt")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		c := readChange(t, h, func(c RawChange) bool { return c.Op.Has(OpCreate) })
		assert.Equal(t, dir, c.Dir)
		assert.Equal(t, "f.txt", c.Name)

		require.NoError(t, os.Remove(path))
		c = readChange(t, h, func(c RawChange) bool { return c.Op.Has(OpRemove) })
		assert.Equal(t, dir, c.Dir)
		assert.Equal(t, "f.txt", c.Name)
	})

	t.Run("watched directory removed", func(t *testing.T) {
		h := openHandle(t, open)
		dir := filepath.Join(t.TempDir(), "sub")
		require.NoError(t, os.Mkdir(dir, 0o755))
		require.NoError(t, h.AddWatch(dir))

		require.NoError(t, os.Remove(dir))
		c := readChange(t, h, func(c RawChange) bool { return c.Op.Has(OpRemove) && c.Name == "" })
		assert.Equal(t, dir, c.Dir)
	})

	t.Run("remove watch", func(t *testing.T) {
		h := openHandle(t, open)
		dir := t.TempDir()

		assert.NoError(t, h.RemoveWatch(dir), "unknown directory should be a no-op")
		require.NoError(t, h.AddWatch(dir))
		assert.NoError(t, h.RemoveWatch(dir))
		assert.NoError(t, h.RemoveWatch(dir))
	})

	t.Run("interrupt", func(t *testing.T) {
		h := openHandle(t, open)
		require.NoError(t, h.AddWatch(t.TempDir()))

		errCh := make(chan error, 1)
		go func() {
			_, err := h.Read()
			errCh <- err
		}()

		time.Sleep(20 * time.Millisecond)
		require.NoError(t, h.Interrupt())

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, ErrInterrupted)
		case <-time.After(5 * time.Second):
			t.Fatal("Read was not interrupted")
		}

		_, err := h.Read()
		assert.ErrorIs(t, err, ErrInterrupted)
	})

	t.Run("closed", func(t *testing.T) {
		h, err := open()
		require.NoError(t, err)
		require.NoError(t, h.Close())
		require.NoError(t, h.Close())

		assert.ErrorIs(t, h.AddWatch(t.TempDir()), ErrClosed)
		assert.NoError(t, h.Interrupt())
	})
}

func openHandle(t *testing.T, open Opener) Handle {
	t.Helper()
	h, err := open()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = h.Interrupt()
		_ = h.Close()
	})
	return h
}

// readChange reads until match accepts a change.
func readChange(t *testing.T, h Handle, match func(RawChange) bool) RawChange {
	t.Helper()

	type result struct {
		change RawChange
		err    error
	}
	deadline := time.After(5 * time.Second)

	for {
		ch := make(chan result, 1)
		go func() {
			c, err := h.Read()
			ch <- result{c, err}
		}()

		select {
		case r := <-ch:
			require.NoError(t, r.err)
			if match(r.change) {
				return r.change
			}
		case <-deadline:
			_ = h.Interrupt()
			t.Fatal("timed out waiting for change")
		}
	}
}
