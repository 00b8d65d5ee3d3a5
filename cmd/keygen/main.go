// Command keygen mints license keys into the configured store and prints
// them one per line. It runs against the same configuration as the server,
// so keys land in the backend the server reads from.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"gouauth/internal/auth"
	"gouauth/internal/config"
	"gouauth/internal/store"
	"gouauth/pkg/contracts/domain"
)

func main() {
	count := flag.Int("count", 1, "number of keys to mint")
	keyType := flag.String("type", "time", "key type: time, uses or lifetime")
	days := flag.Int("days", 30, "subscription days granted (time keys)")
	maxUses := flag.Int("max-uses", 0, "login budget (uses keys, 0 = unlimited)")
	maxActivations := flag.Int("max-activations", 1, "how many distinct devices may redeem the key")
	appID := flag.String("app", "", "application the keys belong to (required)")
	note := flag.String("note", "", "free-form note stored with each key")
	flag.Parse()

	if *appID == "" {
		fmt.Fprintln(os.Stderr, "keygen: -app is required")
		flag.Usage()
		os.Exit(2)
	}

	switch domain.KeyType(*keyType) {
	case domain.KeyTypeTime, domain.KeyTypeUses, domain.KeyTypeLifetime:
	default:
		fmt.Fprintf(os.Stderr, "keygen: unknown key type %q\n", *keyType)
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	for i := 0; i < *count; i++ {
		value, err := auth.GenerateKey(cfg.Auth.KeyPrefix)
		if err != nil {
			slog.Error("Failed to generate key", slog.String("error", err.Error()))
			os.Exit(1)
		}

		key := &domain.Key{
			ID:             uuid.New().String(),
			Value:          value,
			AppID:          *appID,
			Type:           domain.KeyType(*keyType),
			MaxUses:        *maxUses,
			MaxActivations: *maxActivations,
			Note:           *note,
			CreatedAt:      time.Now(),
		}
		if key.Type == domain.KeyTypeTime {
			key.DurationDays = *days
			expires := time.Now().AddDate(0, 0, *days)
			key.ExpiresAt = &expires
		}

		if err := st.CreateKey(ctx, key); err != nil {
			slog.Error("Failed to store key", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(value)
	}
}

// openStore builds the key backend from configuration. The memory driver is
// rejected because keys minted into a process-local map are lost on exit.
func openStore(ctx context.Context, cfg *config.Config) (store.KeyStore, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres", "redis":
		if cfg.Storage.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("storage driver %q needs GOUAUTH_STORAGE_POSTGRES_DSN for keys", cfg.Storage.Driver)
		}
		pg, err := store.NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	case "memory":
		return nil, nil, fmt.Errorf("memory storage holds no keys across processes; configure postgres")
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
