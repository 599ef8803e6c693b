package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"agendado/backend/internal/cache"
	"agendado/backend/internal/config"
	"agendado/backend/internal/service/schedule"
	"agendado/backend/internal/store/postgres"
)

const dateLayout = "2006-01-02"

func main() {
	// Load .env first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "agendado",
		Usage: "Manage professional appointment schedules.",
		Commands: []*cli.Command{
			listCommand(),
			createCommand(),
			editCommand(),
			cancelCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("command failed", slog.Any("err", err))
		os.Exit(1)
	}
}

type services struct {
	queries   *schedule.QueryService
	mutations *schedule.MutationService
}

func withServices(c *cli.Context, fn func(ctx context.Context, s services) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "agendado"),
	)
	slog.SetDefault(log)

	log.Debug("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	repo := postgres.NewAppointmentRepo(db)
	scheduleCache := cache.New()

	ctx, cancel := context.WithTimeout(c.Context, cfg.CommandTimeout)
	defer cancel()

	return fn(ctx, services{
		queries:   schedule.NewQueryService(repo, scheduleCache, log),
		mutations: schedule.NewMutationService(repo, scheduleCache, log),
	})
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List a professional's appointments, optionally bounded by a date range.",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "professional", Required: true, Usage: "Professional id."},
			&cli.StringFlag{Name: "from", Usage: "Range start (YYYY-MM-DD)."},
			&cli.StringFlag{Name: "to", Usage: "Range end (YYYY-MM-DD)."},
		},
		Action: func(c *cli.Context) error {
			return withServices(c, func(ctx context.Context, s services) error {
				professionalID := c.Int64("professional")

				if c.String("from") == "" && c.String("to") == "" {
					appts, err := s.queries.ListByProfessional(ctx, professionalID)
					if err != nil {
						return err
					}
					return printJSON(appts)
				}

				from, err := parseDate(c.String("from"))
				if err != nil {
					return err
				}
				to, err := parseDate(c.String("to"))
				if err != nil {
					return err
				}

				appts, err := s.queries.ListByProfessionalAndRange(ctx, professionalID, from, to)
				if err != nil {
					return err
				}
				return printJSON(appts)
			})
		},
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create an appointment.",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "professional", Required: true, Usage: "Professional id."},
			&cli.Int64Flag{Name: "client", Required: true, Usage: "Client id."},
			&cli.StringFlag{Name: "date", Required: true, Usage: "Appointment date (YYYY-MM-DD)."},
			&cli.StringFlag{Name: "start", Required: true, Usage: "Start time (HH:MM or HH:MM:SS)."},
			&cli.StringFlag{Name: "end", Required: true, Usage: "End time (HH:MM or HH:MM:SS)."},
			&cli.StringFlag{Name: "title", Required: true, Usage: "Title."},
			&cli.StringFlag{Name: "description", Usage: "Optional description."},
			&cli.StringFlag{Name: "color", Usage: "Display color; defaults when omitted."},
			&cli.StringFlag{Name: "actor", Usage: "Authenticated user id (UUID) attached to the write."},
		},
		Action: func(c *cli.Context) error {
			return withServices(c, func(ctx context.Context, s services) error {
				date, err := parseDate(c.String("date"))
				if err != nil {
					return err
				}

				var actor uuid.UUID
				if raw := strings.TrimSpace(c.String("actor")); raw != "" {
					actor, err = uuid.Parse(raw)
					if err != nil {
						return fmt.Errorf("actor must be a UUID: %w", err)
					}
				}

				appt, err := s.mutations.Create(ctx, schedule.CreateInput{
					ProfessionalID: c.Int64("professional"),
					ClientID:       c.Int64("client"),
					CreatedBy:      actor,
					Date:           date,
					StartTime:      c.String("start"),
					EndTime:        c.String("end"),
					Title:          c.String("title"),
					Description:    c.String("description"),
					Color:          c.String("color"),
				})
				if err != nil {
					return err
				}
				return printJSON(appt)
			})
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Edit an appointment's title, description and color.",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "id", Required: true, Usage: "Appointment id."},
			&cli.StringFlag{Name: "title", Required: true, Usage: "New title."},
			&cli.StringFlag{Name: "description", Usage: "New description."},
			&cli.StringFlag{Name: "color", Usage: "New display color."},
		},
		Action: func(c *cli.Context) error {
			return withServices(c, func(ctx context.Context, s services) error {
				appt, err := s.mutations.Edit(ctx, c.Int64("id"), schedule.EditInput{
					Title:       c.String("title"),
					Description: c.String("description"),
					Color:       c.String("color"),
				})
				if err != nil {
					return err
				}
				return printJSON(appt)
			})
		},
	}
}

func cancelCommand() *cli.Command {
	return &cli.Command{
		Name:  "cancel",
		Usage: "Cancel an appointment. The row is kept and hidden from listings.",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "id", Required: true, Usage: "Appointment id."},
		},
		Action: func(c *cli.Context) error {
			return withServices(c, func(ctx context.Context, s services) error {
				appt, err := s.mutations.Cancel(ctx, c.Int64("id"))
				if err != nil {
					return err
				}
				return printJSON(appt)
			})
		},
	}
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
