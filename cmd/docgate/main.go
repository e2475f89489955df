// Command docgate serves schema-checked JSON and CSV endpoints in front of a
// document-processing backend.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/broady/docgate/internal/config"
)

type CLI struct {
	Config    string `help:"Path to a YAML config file." short:"c" type:"path" env:"DOCGATE_CONFIG"`
	LogLevel  string `help:"Override the configured log level (debug, info, warn, error)." name:"log-level"`
	LogFormat string `help:"Override the configured log format." name:"log-format"`

	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Start the gateway."`
	Schema  SchemaCmd  `cmd:"" help:"Print the schema of the registered endpoints."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

// load reads the config file, if any, and applies the global flag overrides.
func (c *CLI) load() (*config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		var err error
		if cfg, err = config.Load(c.Config); err != nil {
			return nil, err
		}
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.LogFormat = c.LogFormat
	}
	return cfg, nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("docgate"),
		kong.Description("Schema-driven JSON and CSV gateway for document-processing backends."),
		kong.UsageOnError(),
	)
	err := ctx.Run(cli)
	ctx.FatalIfErrorf(err)
}
