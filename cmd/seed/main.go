// Command seed populates a development database with a demo campus catalog:
// an admin, an approved vendor, a customer, one live drop and its products.
// Re-running it is a no-op for rows that already exist.
//
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/roorq/storefront/internal/config"
	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/session"
	"github.com/roorq/storefront/migrations"
	"github.com/roorq/storefront/pkg/database"
	"github.com/roorq/storefront/pkg/logger"
	"github.com/roorq/storefront/pkg/slug"
)

// seedNamespace keeps generated ids stable across runs.
var seedNamespace = uuid.MustParse("6f1b0c3e-7c55-4d8e-a1f3-0d9b2e4c7a10")

func seedID(kind string, index int) string {
	return uuid.NewSHA1(seedNamespace, []byte(fmt.Sprintf("%s:%d", kind, index))).String()
}

type seedUser struct {
	Email        string
	FullName     string
	Role         domain.Role
	UserType     string
	VendorStatus *domain.VendorStatus
	StoreName    string
	Referral     string
}

type seedProduct struct {
	Name      string
	Price     int64
	Stock     int
	Size      string
	Condition string
}

var approved = domain.VendorApproved

var users = []seedUser{
	{Email: "admin@roorq.dev", FullName: "Roorq Ops", Role: domain.RoleAdmin, UserType: domain.UserTypeCustomer, Referral: "OPS001"},
	{Email: "thrift@roorq.dev", FullName: "Hostel Thrift", Role: domain.RoleVendor, UserType: domain.UserTypeVendor, VendorStatus: &approved, StoreName: "Hostel Thrift", Referral: "THR001"},
	{Email: "student@roorq.dev", FullName: "Campus Student", Role: domain.RoleCustomer, UserType: domain.UserTypeCustomer, Referral: "STU001"},
}

var products = []seedProduct{
	{"Vintage Levi's 501", 129900, 3, "32", domain.ConditionGood},
	{"Nike Windbreaker 90s", 89900, 2, "M", domain.ConditionLikeNew},
	{"Oversized Flannel Shirt", 49900, 5, "L", domain.ConditionGood},
	{"Carhartt Work Jacket", 159900, 1, "L", domain.ConditionFair},
	{"Graphic Band Tee", 29900, 8, "S", domain.ConditionGood},
	{"Corduroy Trousers", 69900, 4, "30", domain.ConditionLikeNew},
	{"Knit Sweater Vest", 39900, 6, "M", domain.ConditionNew},
	{"Denim Trucker Jacket", 119900, 2, "M", domain.ConditionGood},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("roorq-seed", cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	batch := &pgx.Batch{}
	for i, u := range users {
		batch.Queue(`
			INSERT INTO users (id, email, full_name, role, user_type, vendor_status, store_name, referral_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			seedID("user", i), u.Email, u.FullName, string(u.Role), u.UserType, u.VendorStatus, u.StoreName, u.Referral,
		)
	}

	dropID := seedID("drop", 0)
	now := time.Now().UTC()
	batch.Queue(`
		INSERT INTO drops (id, name, slug, description, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		dropID, "Freshers Drop", "freshers-drop", "Pre-loved fits for the new semester.",
		now.Add(-24*time.Hour), now.Add(30*24*time.Hour),
	)

	vendorID := seedID("user", 1)
	for i, p := range products {
		id := seedID("product", i)
		batch.Queue(`
			INSERT INTO products (id, drop_id, vendor_id, name, slug, price, stock, size, condition)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING`,
			id, dropID, vendorID, p.Name, slug.WithSuffix(p.Name, id[:8]), p.Price, p.Stock, p.Size, p.Condition,
		)
	}

	results := pool.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("seed statement %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	log.Info("seed complete",
		slog.Int("users", len(users)),
		slog.Int("products", len(products)),
		slog.String("drop", "freshers-drop"),
	)

	// Local JWT mode: print session tokens for the seeded accounts.
	if cfg.AuthMode == config.AuthModeJWT {
		issuer := session.NewJWTResolver(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, cfg.AuthJWTAudience)
		for i, u := range users {
			token, err := issuer.Issue(seedID("user", i), u.Email, 7*24*time.Hour)
			if err != nil {
				return fmt.Errorf("issue token for %s: %w", u.Email, err)
			}
			fmt.Printf("%-20s %s\n", u.Email, token)
		}
	}
	return nil
}
