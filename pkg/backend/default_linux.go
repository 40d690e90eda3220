//go:build linux

package backend

const defaultBackend = NameInotify
