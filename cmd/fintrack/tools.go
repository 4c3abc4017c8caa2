package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/adapter/memory"
	"fintrack/internal/adapter/postgres"
	"fintrack/internal/config"
	"fintrack/internal/password"
)

type hashPasswordCmd struct {
	algo string
	cost int
}

func (*hashPasswordCmd) Name() string     { return "hash-password" }
func (*hashPasswordCmd) Synopsis() string { return "hash a password for the fixtures file" }
func (*hashPasswordCmd) Usage() string {
	return `fintrack hash-password [-algo bcrypt|argon2id] [-cost n] [password]

  Prints the encoded hash. Without an argument the password is read from the
  first line of standard input.
`
}

func (c *hashPasswordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.algo, "algo", "bcrypt", "Hash algorithm (bcrypt, argon2id).")
	f.IntVar(&c.cost, "cost", bcrypt.DefaultCost, "bcrypt cost.")
}

func (c *hashPasswordCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if err := c.run(os.Stdout, os.Stdin, f.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *hashPasswordCmd) run(w io.Writer, stdin io.Reader, args []string) error {
	var plain string
	if len(args) > 0 {
		plain = args[0]
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		plain = strings.TrimRight(line, "\r\n")
	}
	if plain == "" {
		return errors.New("password is required")
	}

	var hasher password.Hasher
	switch c.algo {
	case "bcrypt":
		hasher = password.Bcrypt{Cost: c.cost}
	case "argon2id":
		hasher = password.Argon2{Params: password.DefaultArgon2Params}
	default:
		return fmt.Errorf("unknown algorithm %q", c.algo)
	}

	hash, err := hasher.Hash(plain)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}

type checkConfigCmd struct {
	configPath string
}

func (*checkConfigCmd) Name() string     { return "check-config" }
func (*checkConfigCmd) Synopsis() string { return "validate the configuration and exit" }
func (*checkConfigCmd) Usage() string {
	return `fintrack check-config [-config <file>]
`
}

func (c *checkConfigCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", env("FINTRACK_CONFIG", ""), "Path to the YAML configuration file.")
}

func (c *checkConfigCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if err := checkConfig(os.Stdout, c.configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func checkConfig(w io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Database.URL == "" {
		if _, err := memory.LoadFixtures(cfg.Fixtures); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w, "configuration ok")
	return err
}

type seedCmd struct {
	configPath string
	fixtures   string
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "load a fixtures file into PostgreSQL" }
func (*seedCmd) Usage() string {
	return `fintrack seed [-config <file>] [-fixtures <file>]

  Migrates the database and inserts the accounts and users of the fixtures
  file. Existing accounts are updated; existing users are an error.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", env("FINTRACK_CONFIG", ""), "Path to the YAML configuration file.")
	f.StringVar(&c.fixtures, "fixtures", "", "Fixtures file (defaults to the configured one).")
}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if cfg.Database.URL == "" {
		fmt.Fprintln(os.Stderr, "database.url is required")
		return subcommands.ExitUsageError
	}
	path := c.fixtures
	if path == "" {
		path = cfg.Fixtures
	}

	fixtures, err := memory.ReadFixtures(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	db, err := postgres.Open(cfg.Database.URL, postgres.Options{MaxOpenConns: cfg.Database.MaxOpenConns})
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		return subcommands.ExitFailure
	}
	defer func() { _ = db.Close() }()

	if err := fixtures.Apply(ctx, db); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("seeded %d accounts and %d users\n", len(fixtures.Accounts), len(fixtures.Users))
	return subcommands.ExitSuccess
}
