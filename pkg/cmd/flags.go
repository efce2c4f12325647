package cmd

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dukex/shopflow/pkg/log"
	"github.com/dukex/shopflow/pkg/mail"
)

// CommonFlags are shared by every shopflow command.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Database connection URL for persistence (postgres://... or a directory)",
			Value:   "./data",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka, gochannel)",
			Value:   "kafka",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

func TracingFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "otel-enabled",
		Usage:   "Export traces over OTLP/HTTP",
		Sources: cli.EnvVars("OTEL_ENABLED"),
	}
}

// ActionFlags configure the transports of the built-in actions.
func ActionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "shop-credentials-file",
			Usage:   "JSON file with the Admin API credentials of each shop",
			Sources: cli.EnvVars("SHOP_CREDENTIALS_FILE"),
		},
		&cli.DurationFlag{
			Name:    "api-timeout",
			Usage:   "Timeout of commerce API calls",
			Value:   30 * time.Second,
			Sources: cli.EnvVars("SHOP_API_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP relay host",
			Sources: cli.EnvVars("SMTP_HOST"),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Usage:   "SMTP relay port",
			Value:   587,
			Sources: cli.EnvVars("SMTP_PORT"),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.EnvVars("SMTP_USERNAME"),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.EnvVars("SMTP_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Default sender address",
			Sources: cli.EnvVars("SMTP_FROM"),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Usage:   "Default sender name",
			Sources: cli.EnvVars("SMTP_FROM_NAME"),
		},
		&cli.StringFlag{
			Name:    "smtp-tls-policy",
			Usage:   "SMTP TLS policy (mandatory, opportunistic, none)",
			Value:   "opportunistic",
			Sources: cli.EnvVars("SMTP_TLS_POLICY"),
		},
	}
}

// SetupLogging installs the default logger from the log flags.
func SetupLogging(command *cli.Command) {
	log.Setup(command.String("log-level"), command.String("log-format"))
}

// RegistryConfigFromFlags reads ActionFlags.
func RegistryConfigFromFlags(command *cli.Command) RegistryConfig {
	return RegistryConfig{
		CredentialsFile: command.String("shop-credentials-file"),
		APITimeout:      command.Duration("api-timeout"),
		Mail: mail.Config{
			Host:        command.String("smtp-host"),
			Port:        command.Int("smtp-port"),
			Username:    command.String("smtp-username"),
			Password:    command.String("smtp-password"),
			FromAddress: command.String("smtp-from"),
			FromName:    command.String("smtp-from-name"),
			TLSPolicy:   command.String("smtp-tls-policy"),
		},
	}
}
