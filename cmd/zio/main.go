// Command zio drives a process or socket target interactively or
// scripted from the shell; the flags are defined in run.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/cr4sh/zio"
	"github.com/cr4sh/zio/pattern"
	"github.com/cr4sh/zio/transform"
	"github.com/cr4sh/zio/transport"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

const (
	exitOK        = 0
	exitArgsError = 10
	exitBadTime   = 11
)

func run(args []string) int {
	fs := pflag.NewFlagSet("zio", pflag.ContinueOnError)
	stdinModeFlag := fs.StringP("stdin", "i", "tty", "tty|ttyraw|pipe")
	stdoutModeFlag := fs.StringP("stdout", "o", "tty", "tty|ttyraw|pipe")
	timeoutFlag := fs.IntP("timeout", "t", 16, "seconds")
	readFlag := fs.StringP("read", "r", "raw", "raw|none|hex|repr")
	writeFlag := fs.StringP("write", "w", "raw", "raw|none|hex|repr")
	aheadFlag := fs.StringP("ahead", "a", "", "bytes to send before interact")
	beforeFlag := fs.StringP("before", "b", "", "pattern to read_until before any send")
	decodeFlag := fs.StringP("decode", "d", "", "eval|unhex")
	delayFlag := fs.Float64P("delay", "l", 0.05, "write_delay seconds")
	debugFlag := fs.String("debug", "", "path to append the debug log")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitArgsError
	}

	if *timeoutFlag <= 0 {
		fmt.Fprintln(os.Stderr, "zio: --timeout must be positive")
		return exitBadTime
	}

	target, err := dispatchTarget(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitArgsError
	}

	stdinMode, err := transport.ParseIOMode(*stdinModeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitArgsError
	}
	stdoutMode, err := transport.ParseIOMode(*stdoutModeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitArgsError
	}

	readTransform, err := resolveTransform(*readFlag, transform.Yellow)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitArgsError
	}
	writeTransform, err := resolveTransform(*writeFlag, transform.Cyan)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitArgsError
	}

	var decode transform.Func
	switch *decodeFlag {
	case "":
	case "eval":
		decode = transform.Eval
	case "unhex":
		decode = transform.Unhex
	default:
		fmt.Fprintf(os.Stderr, "zio: unknown --decode %q\n", *decodeFlag)
		return exitArgsError
	}

	var logSink io.Writer = os.Stderr
	if *debugFlag != "" {
		f, err := os.OpenFile(*debugFlag, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitArgsError
		}
		defer f.Close()
		logSink = f
	}

	timeout := time.Duration(*timeoutFlag) * time.Second
	spawnOpts := transport.SpawnOptions{
		StdinMode:      stdinMode,
		StdoutMode:     stdoutMode,
		WriteDelay:     time.Duration(*delayFlag * float64(time.Second)),
		CloseDelay:     100 * time.Millisecond,
		TerminateDelay: 200 * time.Millisecond,
	}

	facadeOpts := []zio.Option{
		zio.WithTimeout(timeout),
		zio.WithReadTransform(readTransform),
		zio.WithWriteTransform(writeTransform),
		zio.WithLogSink(logSink),
	}
	if decode != nil {
		facadeOpts = append(facadeOpts, zio.WithInputDecode(decode))
	}

	f, err := zio.Open(target, spawnOpts, timeout, facadeOpts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitArgsError
	}
	defer f.Close()

	if *beforeFlag != "" {
		if _, err := f.ReadUntil([]pattern.Pattern{pattern.Literal(*beforeFlag)}, true); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitArgsError
		}
	}
	if *aheadFlag != "" {
		if _, err := f.Write([]byte(*aheadFlag)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitArgsError
		}
	}

	if err := f.Interact(); err != nil && err != io.EOF {
		logrus.WithError(err).Debug("interact ended")
	}

	// The child's own exit code is deliberately not propagated in this
	// release.
	return exitOK
}

// dispatchTarget implements the positional-argument rule:
// exactly two args where the second parses as a port yields a socket
// target; otherwise all positional args together form the command
// (argv form when more than one, string form when exactly one).
func dispatchTarget(positional []string) (transport.Target, error) {
	if len(positional) == 2 {
		if port, err := strconv.Atoi(positional[1]); err == nil {
			return transport.HostPort{Host: positional[0], Port: port}, nil
		}
	}
	switch len(positional) {
	case 0:
		return nil, fmt.Errorf("zio: no target given")
	case 1:
		return transport.CommandString(positional[0]), nil
	default:
		return transport.CommandArgv(positional), nil
	}
}

// resolveTransform maps a -r/-w mode name to a transform, wrapping
// hex/repr in the CLI's fixed color ("colored yellow when
// hex/repr" for reads, cyan for writes).
func resolveTransform(mode string, color transform.Color) (transform.Func, error) {
	switch mode {
	case "raw":
		return transform.Raw, nil
	case "none":
		return transform.None, nil
	case "hex":
		return transform.Colored(transform.Hex, color, 0), nil
	case "repr":
		return transform.Colored(transform.Repr, color, 0), nil
	}
	return nil, fmt.Errorf("zio: unknown mode %q", mode)
}
