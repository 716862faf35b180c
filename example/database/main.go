// Command database serves an in-memory database over JSON-RPC 1.1. Requests
// are read from stdin, one per line, and each response is written to stdout
// on its own line.
//
//	$ echo '{"version":"1.1","method":"new","params":["hello"],"id":1}' | go run ./example/database
//	{"version":"1.1","id":1,"result":1}
//
// Configuration is read from the environment, or from a .env file:
//
//	SERVICE_NAME     service name reported by system.describe
//	SCHEMA_DIR       directory of <method>.params.json/.result.json schemas
//	VALIDATE_PARAMS  require every method to declare its params
//	VALIDATE_RESULT  validate results against result schemas
//	LOG_LEVEL        zerolog level, default "info"
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mnehpets/jsonrpc11base/jsonrpc"
	"github.com/mnehpets/jsonrpc11base/schema"
)

type config struct {
	ServiceName    string
	SchemaDir      string
	ValidateParams bool
	ValidateResult bool
	LogLevel       zerolog.Level
}

func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{
		ServiceName: "Example Database Service",
		SchemaDir:   getenv("SCHEMA_DIR"),
		LogLevel:    zerolog.InfoLevel,
	}
	if name := getenv("SERVICE_NAME"); name != "" {
		cfg.ServiceName = name
	}
	var err error
	if cfg.ValidateParams, err = envBool(getenv, "VALIDATE_PARAMS"); err != nil {
		return cfg, err
	}
	if cfg.ValidateResult, err = envBool(getenv, "VALIDATE_RESULT"); err != nil {
		return cfg, err
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		if cfg.LogLevel, err = zerolog.ParseLevel(level); err != nil {
			return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	return cfg, nil
}

func envBool(getenv func(string) string, key string) (bool, error) {
	v := getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func newEngine(cfg config, db *Database, log zerolog.Logger) (*jsonrpc.Engine, error) {
	opts := []jsonrpc.Option{
		jsonrpc.WithLogger(log),
		jsonrpc.WithParamsValidation(cfg.ValidateParams),
		jsonrpc.WithResultValidation(cfg.ValidateResult),
	}
	if cfg.SchemaDir != "" {
		dir, err := schema.OpenDir(cfg.SchemaDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, jsonrpc.WithSchemaSource(dir))
	}

	e, err := jsonrpc.New(jsonrpc.ServiceDescription{
		Name:    cfg.ServiceName,
		ID:      "https://github.com/mnehpets/jsonrpc11base/example/database",
		Summary: "An example JSON-RPC 1.1 service implementing a simple database",
		Version: "1.0",
	}, opts...)
	if err != nil {
		return nil, err
	}

	if err := e.Add(db.Add, jsonrpc.WithName("new")); err != nil {
		return nil, err
	}
	if err := e.Add(db.Get, jsonrpc.WithName("get")); err != nil {
		return nil, err
	}
	if err := e.Add(db.Search, jsonrpc.WithName("search")); err != nil {
		return nil, err
	}
	return e, nil
}

// serve answers each non-empty line of r until r is exhausted or ctx is done.
func serve(ctx context.Context, e *jsonrpc.Engine, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintln(w, e.Call(ctx, line, nil)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = log.Level(cfg.LogLevel)

	e, err := newEngine(cfg, NewDatabase(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info().Strs("methods", e.Names()).Msg("serving on stdin")
	if err := serve(ctx, e, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("serve failed")
	}
}
