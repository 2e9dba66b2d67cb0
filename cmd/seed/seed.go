package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/gateway-analytics-api/internal/analytics"
	"github.com/nulzo/gateway-analytics-api/internal/config"
	"github.com/nulzo/gateway-analytics-api/internal/platform/logger"
	"github.com/nulzo/gateway-analytics-api/internal/store"
	"github.com/nulzo/gateway-analytics-api/internal/store/model"
	"github.com/nulzo/gateway-analytics-api/internal/store/sqlstore"
	"go.uber.org/zap"
)

var (
	refApps = []string{"chrome_extension", "adobe", "word_addin", "web"}
	tiers   = []string{"free", "pro", "enterprise"}
	paths   = []string{"/v1/pdf/merge", "/v1/pdf/split", "/v1/ocr", "/v1/convert"}
)

func main() {
	path := flag.String("db", "analytics.db", "SQLite database file")
	users := flag.Int("users", 25, "Number of developers to create")
	days := flag.Int("days", 90, "Number of days of traffic to generate, ending today")
	perDay := flag.Int("per-day", 200, "Average requests per day")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	logger.Initialize(logger.DefaultConfig())
	log := logger.Get()
	defer logger.Sync()

	repo, err := sqlstore.Open(config.DBConfig{Driver: config.DriverSQLite, Path: *path}, log)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer repo.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))

	keys, err := createDevelopers(ctx, repo, rng, *users)
	if err != nil {
		log.Fatal("Failed to create developers", zap.Error(err))
	}

	ingestor := analytics.NewIngestor(log, repo, 500, time.Second)
	ingestor.Start(ctx)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	total := 0
	for d := *days - 1; d >= 0; d-- {
		date := today.AddDate(0, 0, -d).Format(analytics.DayLayout)
		n := rng.Intn(*perDay*2 + 1)
		for i := 0; i < n; i++ {
			err := ingestor.Enqueue(ctx, &model.RequestEvent{
				ID:          uuid.NewString(),
				APIKey:      keys[rng.Intn(len(keys))],
				RequestDate: date,
				Path:        paths[rng.Intn(len(paths))],
				StatusCode:  statusCode(rng),
			})
			if err != nil {
				log.Fatal("Failed to queue event", zap.Error(err))
			}
		}
		total += n
	}
	ingestor.Stop()

	fmt.Printf("\nSuccessfully seeded database!\n")
	fmt.Printf("Developers: %d, API keys: %d, requests: %d over %d days\n", *users, len(keys), total, *days)
}

// createDevelopers inserts users with one or two keys each and returns the key values.
func createDevelopers(ctx context.Context, repo store.Repository, rng *rand.Rand, n int) ([]string, error) {
	var keys []string
	now := time.Now().UTC()

	err := repo.WithTx(ctx, func(tx store.Repository) error {
		for i := 1; i <= n; i++ {
			user := &model.User{
				UserID:    int64(i),
				FirstName: fmt.Sprintf("Dev%d", i),
				LastName:  "Example",
				Email:     fmt.Sprintf("dev%d@example.com", i),
				CreatedAt: now,
			}
			if err := tx.Users().Create(ctx, user); err != nil {
				return fmt.Errorf("create user %d: %w", i, err)
			}

			for k := 0; k < 1+rng.Intn(2); k++ {
				key := &model.APIKey{
					Value:     "key-" + uuid.NewString(),
					UserID:    user.UserID,
					RefApp:    refApps[rng.Intn(len(refApps))],
					Tier:      tiers[rng.Intn(len(tiers))],
					CreatedAt: now,
				}
				if err := tx.Keys().Create(ctx, key); err != nil {
					return fmt.Errorf("create key for user %d: %w", i, err)
				}
				keys = append(keys, key.Value)
			}
		}
		return nil
	})
	return keys, err
}

func statusCode(rng *rand.Rand) int {
	if rng.Intn(20) == 0 {
		return 500
	}
	return 200
}
