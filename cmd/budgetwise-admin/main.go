// budgetwise-admin is the operator tool for a BudgetWise installation.
//
//	budgetwise-admin create-admin -username root -email root@example.com
//	budgetwise-admin hash-password
//	budgetwise-admin migrate status|up|down
//	budgetwise-admin watch-mail
//
// Every command reads the same configuration file as the server
// (BUDGETWISE_CONFIG, default configs/config.yaml).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	_ "github.com/AtulPatel1221/budgetwise-app/migrations"

	"github.com/AtulPatel1221/budgetwise-app/internal/auth"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/config"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/database"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/logging"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/mqtt"
	"github.com/AtulPatel1221/budgetwise-app/internal/notify"
)

const defaultConfigPath = "configs/config.yaml"

// readPassword reads from the terminal without echo. Replaced in tests.
var readPassword = term.ReadPassword

var errUsage = errors.New("usage: budgetwise-admin <create-admin|hash-password|migrate|watch-mail> [flags]")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "create-admin":
		return createAdmin(ctx, args[1:], out)
	case "hash-password":
		return hashPassword(out)
	case "migrate":
		return migrate(ctx, args[1:], out)
	case "watch-mail":
		return watchMail(ctx, out)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

// createAdmin inserts an ADMIN account with a password typed at the terminal.
func createAdmin(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(out)
	username := fs.String("username", "", "account username")
	email := fs.String("email", "", "account e-mail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *email == "" {
		return errors.New("create-admin: -username and -email are required")
	}

	password, err := promptNewPassword(out)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	users := auth.NewUserRepository(db.DB)
	user := &auth.User{
		Username: *username,
		Email:    strings.ToLower(strings.TrimSpace(*email)),
		Role:     auth.RoleAdmin,
	}

	// Username first, then e-mail, as signup reports them.
	if _, found, err := users.FindByUsername(ctx, user.Username); err != nil {
		return fmt.Errorf("checking username: %w", err)
	} else if found {
		return fmt.Errorf("creating admin: %w", auth.ErrUsernameExists)
	}
	if _, found, err := users.FindByEmail(ctx, user.Email); err != nil {
		return fmt.Errorf("checking email: %w", err)
	} else if found {
		return fmt.Errorf("creating admin: %w", auth.ErrEmailExists)
	}

	if user.PasswordHash, err = newHasher(cfg).Hash(password); err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}

	fmt.Fprintf(out, "created admin %s (%s)\n", user.Username, user.ID)
	return nil
}

// hashPassword prints an encoded digest for a password typed at the
// terminal, for seeding accounts by hand.
func hashPassword(out io.Writer) error {
	password, err := promptNewPassword(out)
	if err != nil {
		return err
	}

	params := auth.DefaultPasswordParams()
	if cfg, err := loadConfig(); err == nil {
		params = passwordParams(cfg)
	}

	digest, err := auth.NewHasher(params).Hash(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	fmt.Fprintln(out, digest)
	return nil
}

func migrate(ctx context.Context, args []string, out io.Writer) error {
	action := "status"
	if len(args) > 0 {
		action = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	switch action {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	case "down":
		if err := db.MigrateDown(ctx); err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}
	case "status":
	default:
		return fmt.Errorf("migrate: unknown action %q (want status, up or down)", action)
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	for _, m := range applied {
		fmt.Fprintf(out, "applied  %s  %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range pending {
		fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
	}
	fmt.Fprintf(out, "%d applied, %d pending\n", len(applied), len(pending))
	return nil
}

// watchMail subscribes to the notification topic and prints every message,
// standing in for the mail relay during development.
func watchMail(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mqttCfg := cfg.MQTT
	mqttCfg.Broker.ClientID += "-watch-mail"
	client, err := mqtt.Connect(mqttCfg)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer client.Close()
	client.SetLogger(logging.New(cfg.Logging, "admin"))

	topic := cfg.Notify.Topic
	if topic == "" {
		topic = mqtt.Topics{}.NotifyEmail()
	}
	if err := client.Subscribe(topic, byte(cfg.MQTT.QoS), printMail(out)); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	fmt.Fprintf(out, "watching %s (Ctrl+C to stop)\n", topic)

	<-ctx.Done()
	return nil
}

// printMail renders relay messages in a readable form.
func printMail(out io.Writer) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		var msg notify.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decoding message on %s: %w", topic, err)
		}
		fmt.Fprintf(out, "--- %s\nFrom: %s\nTo: %s\nSubject: %s\n\n%s\n",
			msg.SentAt.Format("2006-01-02 15:04:05Z07:00"), msg.From, msg.To, msg.Subject, msg.Body)
		return nil
	}
}

func promptNewPassword(out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(out, "Confirm password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if len(first) == 0 {
		return "", errors.New("password must not be empty")
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func loadConfig() (*config.Config, error) {
	path := defaultConfigPath
	if p := os.Getenv("BUDGETWISE_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func passwordParams(cfg *config.Config) auth.PasswordParams {
	return auth.PasswordParams{
		Memory:      cfg.Security.Password.Memory,
		Iterations:  cfg.Security.Password.Iterations,
		Parallelism: cfg.Security.Password.Parallelism,
	}
}

func newHasher(cfg *config.Config) *auth.Hasher {
	return auth.NewHasher(passwordParams(cfg))
}
