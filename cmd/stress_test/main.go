package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/rl1809/sweetshop/internal/adapter/handler"
	"github.com/rl1809/sweetshop/internal/adapter/storage"
	"github.com/rl1809/sweetshop/internal/config"
	"github.com/rl1809/sweetshop/internal/core/domain"
	"github.com/rl1809/sweetshop/internal/core/service"
	"github.com/rl1809/sweetshop/internal/logger"
)

const (
	queueSize = 100
	workers   = 4
)

// checkoutFunc places one order and reports whether the coupon was applied.
type checkoutFunc func(ctx context.Context, userID string) (bool, error)

func main() {
	totalRequests := flag.Int("requests", 50, "concurrent checkouts to fire")
	couponLimit := flag.Int("limit", 20, "usage limit of the contested coupon")
	target := flag.String("grpc", "", "drive a running server at this gRPC address instead of an in-process service")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		l := logger.New("info")
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	if err := storage.Migrate(cfg.MySQLDSN); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate mysql")
	}
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mysql")
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)

	productID, code, err := seed(ctx, mysqlAdapter, *couponLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed")
	}

	var checkout checkoutFunc
	if *target != "" {
		conn, err := grpc.NewClient(*target, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to dial gRPC")
		}
		defer conn.Close()
		checkout = grpcCheckout(handler.NewOrderServiceClient(conn), productID, code)
	} else {
		processor := service.NewFollowUpProcessor(redisAdapter, nil, zerolog.Nop())
		orderService := service.NewOrderService(mysqlAdapter, mysqlAdapter, mysqlAdapter, processor, queueSize, zerolog.Nop())

		var workerWg sync.WaitGroup
		for i := 0; i < workers; i++ {
			workerWg.Add(1)
			go func(id int) {
				defer workerWg.Done()
				service.RunFollowUpWorker(id, orderService.GetFollowUpQueue(), processor)
			}(i)
		}
		defer func() {
			orderService.Close()
			workerWg.Wait()
		}()
		checkout = serviceCheckout(orderService, productID, code)
	}

	// Counters
	var placed, discounted, failed atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			applied, err := checkout(ctx, fmt.Sprintf("stress-user-%d", n))
			if err != nil {
				failed.Add(1)
				log.Error().Err(err).Int("request", n).Msg("checkout failed")
				return
			}
			placed.Add(1)
			if applied {
				discounted.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	stored, err := mysqlAdapter.GetCouponByCode(ctx, code)
	if err != nil || stored == nil {
		log.Fatal().Err(err).Msg("failed to reload coupon")
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Coupon Limit:     %d\n", *couponLimit)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Orders Placed:    %d\n", placed.Load())
	fmt.Printf("Discounted:       %d\n", discounted.Load())
	fmt.Printf("Failed:           %d\n", failed.Load())
	fmt.Printf("Coupon UsedCount: %d\n", stored.UsedCount)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	want := min(*couponLimit, *totalRequests)
	if int(discounted.Load()) == want && stored.UsedCount == want {
		fmt.Printf("PASS: Exactly %d orders redeemed the coupon\n", want)
	} else {
		fmt.Printf("FAIL: Expected %d redemptions, got %d discounted orders and used_count %d\n",
			want, discounted.Load(), stored.UsedCount)
	}

	if failed.Load() == 0 {
		fmt.Println("PASS: Every checkout placed an order")
	} else {
		fmt.Printf("FAIL: %d checkouts failed\n", failed.Load())
	}
}

func seed(ctx context.Context, db *storage.MySQLAdapter, limit int) (string, string, error) {
	now := time.Now().UTC()
	product := domain.Product{
		ID:        "stress-" + uuid.NewString()[:8],
		Name:      "Soan Papdi",
		Price:     decimal.NewFromInt(250),
		Category:  "stress",
		InStock:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.UpsertProduct(ctx, product); err != nil {
		return "", "", err
	}

	maxDiscount := decimal.NewFromInt(30)
	coupon := domain.Coupon{
		ID:            uuid.NewString(),
		Code:          "STRESS" + uuid.NewString()[:6],
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		MaxDiscount:   &maxDiscount,
		UsageLimit:    &limit,
		ValidFrom:     now.Add(-time.Hour),
		ValidTo:       now.Add(time.Hour),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	coupon.Code = domain.NormalizeCouponCode(coupon.Code)
	if err := db.CreateCoupon(ctx, coupon); err != nil {
		return "", "", err
	}
	return product.ID, coupon.Code, nil
}

func serviceCheckout(svc *service.OrderService, productID, code string) checkoutFunc {
	return func(ctx context.Context, userID string) (bool, error) {
		order, err := svc.CreateOrder(ctx, domain.Actor{UserID: userID, Role: domain.RoleCustomer}, service.CreateOrderRequest{
			Items:         []service.OrderLine{{ProductID: productID, Quantity: 2}},
			AddressID:     "stress-address",
			PaymentMethod: domain.PaymentMethodCOD,
			CouponCode:    code,
		})
		if err != nil {
			return false, err
		}
		return order.CouponCode != nil, nil
	}
}

func grpcCheckout(client *handler.OrderServiceClient, productID, code string) checkoutFunc {
	return func(ctx context.Context, userID string) (bool, error) {
		ctx = metadata.AppendToOutgoingContext(ctx, handler.MetadataUserID, userID)
		reply, err := client.CreateOrder(ctx, &handler.CreateOrderRequest{
			Items:         []handler.OrderLineDTO{{ProductID: productID, Quantity: 2}},
			AddressID:     "stress-address",
			PaymentMethod: string(domain.PaymentMethodCOD),
			CouponCode:    code,
		})
		if err != nil {
			return false, err
		}
		return reply.Order.CouponCode != nil, nil
	}
}
