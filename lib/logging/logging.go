package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const (
	VeryVerbose = "very-verbose"
	Debug       = "debug"
	Quiet       = "quiet"
	LogFile     = "log-file"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func IncludeVerbosityFlags(app *cli.App) {
	app.Flags = append(app.Flags, []cli.Flag{
		&cli.BoolFlag{
			Name:    Debug,
			Usage:   "Show Extra Debug Information",
			EnvVars: []string{"DEBUG"},
		},
		&cli.BoolFlag{
			Name:    VeryVerbose,
			Usage:   "Show Trace Level Information",
			EnvVars: []string{"VERY_VERBOSE"},
		},
		&cli.BoolFlag{
			Name:    Quiet,
			Usage:   "Only show important messages",
			EnvVars: []string{"QUIET"},
		},
		&cli.StringFlag{
			Name:    LogFile,
			Usage:   "Write JSON logs to this file instead of stdout",
			EnvVars: []string{"LOG_FILE"},
		},
	}...)
}

// SetLoggingLevel applies the verbosity flags. Quiet wins over debug.
func SetLoggingLevel(c *cli.Context) {
	zerolog.SetGlobalLevel(Level(c.Bool(VeryVerbose), c.Bool(Debug), c.Bool(Quiet)))

	if file := c.String(LogFile); "" != file {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if nil != err {
			log.Error().Err(err).Str("file", file).Msg("Cannot open log file")
			return
		}
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
	}
}

func Level(veryVerbose, debug, quiet bool) zerolog.Level {
	switch {
	case quiet:
		return zerolog.WarnLevel
	case veryVerbose:
		return zerolog.TraceLevel
	case debug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// ConfigureForCli gives us human readable output
func ConfigureForCli() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
