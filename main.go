package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// Version is set at build time via ldflags
var version = "dev"

var errUsage = errors.New("usage: ttylog [flags] <program> [args...]")

func main() {
	code, err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(code)
}

// reportError writes "error: err" to w. Usage errors are skipped: run has
// already printed the problem and the usage text.
func reportError(w io.Writer, err error) {
	if errors.Is(err, errUsage) {
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

type cliFlags struct {
	output       string
	chunkSize    int
	screen       string
	watch        string
	notify       bool
	logFile      string
	verbose      bool
	hashPassword bool
	version      bool
}

func newFlagSet(stderr io.Writer) (*pflag.FlagSet, *cliFlags) {
	var f cliFlags
	flags := pflag.NewFlagSet("ttylog", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	// Everything after the program name belongs to the program.
	flags.SetInterspersed(false)

	flags.StringVarP(&f.output, "output", "o", defaultTranscript, "transcript file (appended to)")
	flags.IntVar(&f.chunkSize, "chunk-size", DefaultChunkSize, "read size for program output")
	flags.StringVar(&f.screen, "screen", "", "write the final screen as plain text to this file")
	flags.StringVar(&f.watch, "watch", "", "serve a read-only live view on this address (e.g. localhost:8080)")
	flags.BoolVar(&f.notify, "notify", false, "send a Telegram summary when the session ends")
	flags.StringVar(&f.logFile, "log-file", "", "write diagnostics to this file instead of stderr")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "log debug diagnostics")
	flags.BoolVar(&f.hashPassword, "hash-password", false, "set the watch password in the config file and exit")
	flags.BoolVar(&f.version, "version", false, "print version and exit")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: ttylog [flags] <program> [args...]\n\n")
		fmt.Fprintf(stderr, "Runs program on a pseudo-terminal and records its output to a transcript.\n\n")
		flags.PrintDefaults()
	}
	return flags, &f
}

// run is main without the exit. The returned code is the program's exit
// code; an error means ttylog itself failed.
func run(args []string, stdin *os.File, stdout, stderr io.Writer) (int, error) {
	flags, f := newFlagSet(stderr)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0, nil
		}
		// With ContinueOnError pflag only returns the error.
		fmt.Fprintln(stderr, err)
		flags.Usage()
		return 1, fmt.Errorf("%w: %v", errUsage, err)
	}

	if f.version {
		fmt.Fprintf(stdout, "ttylog %s\n", version)
		return 0, nil
	}

	if f.hashPassword {
		return 0, setWatchPassword(stdin, stdout, stderr)
	}

	if flags.NArg() == 0 {
		flags.Usage()
		return 1, errUsage
	}

	logOutput := stderr
	if f.logFile != "" {
		lf, err := os.OpenFile(f.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return 1, fmt.Errorf("open log file: %w", err)
		}
		defer lf.Close()
		logOutput = lf
	}
	logger := NewLogger(logOutput, f.verbose)

	config, err := loadConfig()
	if err != nil {
		return 1, err
	}

	opts := SessionOptions{
		Command:        flags.Args(),
		TranscriptPath: config.Transcript,
		ChunkSize:      config.ChunkSize,
		ScreenPath:     f.screen,
		Stdin:          stdin,
		Stdout:         stdout,
		Logger:         logger,
	}
	if opts.TranscriptPath == "" || flags.Changed("output") {
		opts.TranscriptPath = f.output
	}
	if opts.ChunkSize == 0 || flags.Changed("chunk-size") {
		opts.ChunkSize = f.chunkSize
	}
	if opts.ChunkSize <= 0 {
		return 1, fmt.Errorf("--chunk-size must be positive, got %d", opts.ChunkSize)
	}

	watchAddr := config.WatchAddr
	if flags.Changed("watch") {
		watchAddr = f.watch
	}
	if watchAddr != "" {
		hub := NewWatchHub(defaultHistorySize, logger)
		server := NewWatchServer(hub, config.WatchPasswordHash, logger)
		addr, err := server.Start(watchAddr)
		if err != nil {
			return 1, err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			server.Shutdown(ctx)
		}()
		fmt.Fprintf(stderr, "ttylog: watch at http://%s/\n", addr)
		opts.Watch = hub
	}

	if f.notify {
		notifier, err := NewTelegramNotifier(config.BotToken, config.NotifyChats, logger)
		if err != nil {
			return 1, err
		}
		opts.Notifier = notifier
	}

	ctx, stop := signal.NotifyContext(context.Background(), terminationSignals...)
	defer stop()

	result, err := RunSession(ctx, opts)
	if err != nil {
		return 1, err
	}
	return result.ExitCode, nil
}

// setWatchPassword reads a password, without echo when stdin is a
// terminal, and stores its bcrypt hash as watch_password_hash.
func setWatchPassword(stdin *os.File, stdout, stderr io.Writer) error {
	var password []byte
	if term.IsTerminal(int(stdin.Fd())) {
		fmt.Fprint(stderr, "Watch password: ")
		pw, err := term.ReadPassword(int(stdin.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = pw
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		password = []byte(strings.TrimRight(line, "\r\n"))
	}
	if len(password) == 0 {
		return errors.New("empty password")
	}

	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}
	config.WatchPasswordHash = string(hash)
	if err := saveConfig(config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Fprintf(stdout, "Watch password saved to %s\n", getConfigPath())
	return nil
}
