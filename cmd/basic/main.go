package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oarkflow/json"
	"github.com/oarkflow/log"
	"github.com/urfave/cli/v2"

	basic "github.com/akadjoker/basic-interpreter"
	"github.com/akadjoker/basic-interpreter/pkg/config"
	"github.com/akadjoker/basic-interpreter/pkg/history"
	"github.com/akadjoker/basic-interpreter/pkg/server"
)

const version = "0.4.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// Diagnostics go to stdout; any failure, including exit(), ends the
		// process with status 1.
		fmt.Fprintln(os.Stdout, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "basic",
		Usage:   "Run programs written in the basic expression language",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a configuration file (YAML, JSON or BCL)",
				EnvVars: []string{"BASIC_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Run a program file and print its results",
				ArgsUsage: "[FILE]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Path to the program file",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print results as JSON",
					},
					&cli.BoolFlag{
						Name:  "print-env",
						Usage: "Print the global variables after the run",
					},
				},
				Action: runFile,
			},
			{
				Name:   "repl",
				Usage:  "Start an interactive prompt",
				Action: runREPL,
			},
			{
				Name:      "tokens",
				Usage:     "Print the tokens of a program file",
				ArgsUsage: "FILE",
				Action:    dumpTokens,
			},
			{
				Name:      "ast",
				Usage:     "Print the parsed statements of a program file",
				ArgsUsage: "FILE",
				Action:    dumpAST,
			},
			{
				Name:  "serve",
				Usage: "Start the HTTP evaluation server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Address to listen on (overrides server.addr)",
					},
				},
				Action: startServer,
			},
		},
	}
}

// loadConfig reads the optional config file and installs its runtime limits.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	basic.SetRuntimeConfig(cfg.RuntimeConfig(basic.GetRuntimeConfig()))
	return cfg, nil
}

func newSession(cfg *config.Config, logger *log.Logger) *basic.Session {
	return basic.NewSession(basic.WithLogger(logger), basic.WithGlobals(cfg.GlobalNumbers()))
}

func programPath(c *cli.Context) (string, error) {
	path := c.String("file")
	if path == "" {
		path = c.Args().First()
	}
	if path == "" {
		return "", fmt.Errorf("missing program file")
	}
	return path, nil
}

func readProgram(c *cli.Context) (string, error) {
	path, err := programPath(c)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

type runOutput struct {
	Results     []string          `json:"results"`
	Environment map[string]string `json:"environment,omitempty"`
}

func runFile(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	source, err := readProgram(c)
	if err != nil {
		return err
	}
	session := newSession(cfg, cfg.Logger())
	results, err := session.Run(c.Context, source)
	if err != nil {
		return err
	}
	out := c.App.Writer
	printEnv := cfg.PrintEnv || c.Bool("print-env")
	env := session.Environment()

	if c.Bool("json") {
		payload := runOutput{Results: make([]string, len(results))}
		for i, v := range results {
			payload.Results[i] = basic.FormatValue(v)
		}
		if printEnv {
			payload.Environment = make(map[string]string)
			for _, name := range env.Names() {
				v, _ := env.Get(name)
				payload.Environment[name] = v.String()
			}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	fmt.Fprintln(out, results.String())
	if printEnv {
		writeEnvironment(out, env)
	}
	return nil
}

func writeEnvironment(w io.Writer, env *basic.Environment) {
	for _, name := range env.Names() {
		v, _ := env.Get(name)
		fmt.Fprintf(w, "Key: %s, Value: %s\n", name, v)
	}
}

// runREPL keeps one session for the whole prompt. Errors are reported and
// the prompt continues; exit() ends it.
func runREPL(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	var appender *history.Appender
	if cfg.HistoryFile != "" {
		if appender, err = history.Open(cfg.HistoryFile); err != nil {
			return err
		}
		defer appender.Close()
	}
	logger := cfg.Logger()
	session := newSession(cfg, logger)
	out := c.App.Writer
	scanner := bufio.NewScanner(c.App.Reader)
	for {
		fmt.Fprint(out, "basic > ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		results, err := session.Run(c.Context, line)
		if appender != nil {
			entry := history.NewEntry(line, "", err)
			if err == nil {
				entry.Result = results.String()
			}
			if herr := appender.Append(entry); herr != nil {
				logger.Warn().Err(herr).Msg("could not record history")
			}
		}
		if err != nil {
			if basic.IsExit(err) {
				return err
			}
			fmt.Fprintln(out, err)
			continue
		}
		fmt.Fprintln(out, results.String())
	}
}

func dumpTokens(c *cli.Context) error {
	source, err := readProgram(c)
	if err != nil {
		return err
	}
	tokens, err := basic.Tokenize(source)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		fmt.Fprintf(c.App.Writer, "%d:%d\t%s\n", tok.Line, tok.Column, tok)
	}
	return nil
}

func dumpAST(c *cli.Context) error {
	if _, err := loadConfig(c); err != nil {
		return err
	}
	source, err := readProgram(c)
	if err != nil {
		return err
	}
	program, err := basic.Parse(c.Context, source)
	if err != nil {
		return err
	}
	for _, stmt := range program.Statements {
		fmt.Fprintln(c.App.Writer, stmt.String())
	}
	return nil
}

func startServer(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if a := c.String("addr"); a != "" {
		addr = a
	}
	srv, err := server.NewServer(server.Config{
		Version:   version,
		CacheSize: cfg.Server.CacheSize,
		Globals:   cfg.GlobalNumbers(),
		Logger:    cfg.Logger(),
		PrintEnv:  cfg.PrintEnv,
	})
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(addr)
	}()

	select {
	case err := <-serverErr:
		return err
	case sig := <-sigChan:
		fmt.Fprintf(c.App.Writer, "Received signal: %v. Shutting down...\n", sig)
		if err := srv.Shutdown(); err != nil {
			return err
		}
		select {
		case err := <-serverErr:
			return err
		case <-time.After(30 * time.Second):
			return context.DeadlineExceeded
		}
	}
}
