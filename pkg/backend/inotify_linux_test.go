//go:build linux

package backend

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestInotifyHandle(t *testing.T) {
	testHandle(t, OpenInotify)
}

// record encodes one inotify_event the way the kernel lays it out.
func record(wd int32, mask, cookie uint32, name string) []byte {
	nameLen := 0
	if name != "" {
		nameLen = (len(name) + 1 + 15) &^ 15
	}
	buf := make([]byte, unix.SizeofInotifyEvent+nameLen)
	binary.NativeEndian.PutUint32(buf[0:], uint32(wd))
	binary.NativeEndian.PutUint32(buf[4:], mask)
	binary.NativeEndian.PutUint32(buf[8:], cookie)
	binary.NativeEndian.PutUint32(buf[12:], uint32(nameLen))
	copy(buf[unix.SizeofInotifyEvent:], name)
	return buf
}

func TestInotifyParse(t *testing.T) {
	h := &inotifyHandle{
		watches: map[string]int{"/srv/in": 3},
		paths:   map[int]string{3: "/srv/in"},
	}

	var buf []byte
	buf = append(buf, record(3, unix.IN_CREATE, 0, "a.txt")...)
	buf = append(buf, record(3, unix.IN_MOVED_FROM, 9, "a.txt")...)
	buf = append(buf, record(3, unix.IN_MOVED_TO, 9, "b.txt")...)
	buf = append(buf, record(7, unix.IN_CREATE, 0, "stale")...)
	buf = append(buf, record(-1, unix.IN_Q_OVERFLOW, 0, "")...)
	buf = append(buf, record(3, unix.IN_DELETE_SELF, 0, "")...)
	buf = append(buf, record(3, unix.IN_IGNORED, 0, "")...)

	got := h.parse(buf, nil)

	want := []RawChange{
		{Dir: "/srv/in", Name: "a.txt", Op: OpCreate},
		{Dir: "/srv/in", Name: "a.txt", Op: OpRenameFrom, Cookie: 9},
		{Dir: "/srv/in", Name: "b.txt", Op: OpRenameTo, Cookie: 9},
		{Op: OpOverflow},
		{Dir: "/srv/in", Op: OpRemove},
		{Dir: "/srv/in", Op: OpIgnored},
	}
	assert.Equal(t, want, got)
	assert.Empty(t, h.watches)
	assert.Empty(t, h.paths)
}

func TestInotifyParseTruncated(t *testing.T) {
	h := &inotifyHandle{
		watches: map[string]int{"/srv/in": 1},
		paths:   map[int]string{1: "/srv/in"},
	}

	full := record(1, unix.IN_MODIFY, 0, "partial.log")
	got := h.parse(full[:len(full)-4], nil)
	assert.Empty(t, got)
}

func TestInotifyOp(t *testing.T) {
	tests := []struct {
		mask uint32
		want Op
	}{
		{unix.IN_CREATE, OpCreate},
		{unix.IN_MODIFY, OpWrite},
		{unix.IN_ATTRIB, OpChmod},
		{unix.IN_DELETE, OpRemove},
		{unix.IN_DELETE_SELF, OpRemove},
		{unix.IN_MOVED_FROM, OpRenameFrom},
		{unix.IN_MOVE_SELF, OpRenameFrom},
		{unix.IN_MOVED_TO, OpRenameTo},
		{unix.IN_CREATE | unix.IN_ISDIR, OpCreate},
		{unix.IN_OPEN, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, inotifyOp(tt.mask), "mask %#x", tt.mask)
	}
}
