// Package pty provides the termios and pseudo-terminal-allocation
// primitives the process transport builds on: opening a fresh
// /dev/ptmx pair, reading and writing termios state, and applying the
// raw-mode policy. Adapted from serial-port termios code, generalized
// from one named serial device to pty master/slave pairs allocated on
// demand.
package pty

import "syscall"

type Error struct {
	msg string
	err error
}

func (e Error) Error() string {
	if e.msg != "" {
		msg := e.msg
		if e.err != nil {
			msg += ": " + e.err.Error()
		}
		return msg
	}
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e Error) Unwrap() error { return e.err }

func wrapErr(msg string, e error) error {
	if e == nil {
		return nil
	}
	return Error{msg: msg, err: e}
}

var ErrClosed = Error{"pty already closed", syscall.EBADF}
