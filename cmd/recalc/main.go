// cmd/recalc/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/stocklens/analytics-go/internal/cache"
	"github.com/stocklens/analytics-go/internal/config"
	"github.com/stocklens/analytics-go/internal/repository/postgres"
	"github.com/stocklens/analytics-go/internal/service"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newService(c *cli.Context) (*service.UsageService, func(), error) {
	db, err := postgres.Open("pgx", c.String("db-url"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cfg := config.Load().Analytics
	breaker := service.NewCircuitBreaker(
		"usage_calculation",
		cfg.BreakerFailureThreshold,
		time.Duration(cfg.BreakerRecoverySeconds)*time.Second,
	)
	svc := service.NewUsageService(postgres.NewUsageRepository(db), cache.NewNoopStatsCache(), breaker, cfg)

	return svc, func() { db.Close() }, nil
}

// startStatusListener serves /health on a side port so long-running batches
// can be probed while they run.
func startStatusListener(addr string, svc *service.UsageService) {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := svc.Health(req.Context())
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	}).Methods("GET")

	go func() {
		if err := http.ListenAndServe(addr, r); err != nil {
			log.Printf("status listener stopped: %v", err)
		}
	}()
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "recalc",
		Usage: "Run usage recalculations from the command line",
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Commands: []*cli.Command{
			{
				Name:      "client",
				Usage:     "Recalculate usage for every active product of a client",
				ArgsUsage: "<client_id>",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "status-addr",
						Usage: "Optional address for a /health status listener while the batch runs",
					},
				},
				Action: func(c *cli.Context) error {
					clientID := c.Args().First()
					if clientID == "" {
						return fmt.Errorf("client_id argument is required")
					}

					svc, closeFn, err := newService(c)
					if err != nil {
						return err
					}
					defer closeFn()

					if addr := c.String("status-addr"); addr != "" {
						startStatusListener(addr, svc)
					}

					exists, err := svc.ClientExists(c.Context, clientID)
					if err != nil {
						return fmt.Errorf("failed to verify client: %w", err)
					}
					if !exists {
						return fmt.Errorf("client %s not found", clientID)
					}

					result, err := svc.RecalculateClient(c.Context, clientID)
					if err != nil {
						return err
					}
					return printJSON(result)
				},
			},
			{
				Name:      "products",
				Usage:     "Recalculate usage for an explicit list of products",
				ArgsUsage: "<product_id> [product_id...]",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "client",
						Usage:    "Client the products belong to",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					productIDs := c.Args().Slice()
					if len(productIDs) == 0 {
						return fmt.Errorf("at least one product_id argument is required")
					}

					svc, closeFn, err := newService(c)
					if err != nil {
						return err
					}
					defer closeFn()

					reports, err := svc.CalculateForProducts(c.Context, c.String("client"), productIDs)
					if err != nil {
						return err
					}
					return printJSON(reports)
				},
			},
			{
				Name:  "stats",
				Usage: "Print aggregate usage-calculation statistics",
				Flags: []cli.Flag{
					newDBURLFlag(),
				},
				Action: func(c *cli.Context) error {
					svc, closeFn, err := newService(c)
					if err != nil {
						return err
					}
					defer closeFn()

					stats, err := svc.Stats(c.Context)
					if err != nil {
						return err
					}
					return printJSON(stats)
				},
			},
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
