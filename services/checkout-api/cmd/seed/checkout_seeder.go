// Checkout seeder with per-second outbound request throttling.
// - Concurrency is controlled by a fixed worker pool (maxConcurrentRequests)
// - Throughput is controlled by an RPS limiter (token bucket)
// - Uses a single shared HTTP client with keep-alives and timeouts
// - Graceful shutdown on SIGINT/SIGTERM
//
// Example:
//
//	go run ./services/checkout-api/cmd/seed \
//	  -noOfCheckouts=20000 \
//	  -maxConcurrentRequests=200 \
//	  -rps=800 \
//	  -noOfUsers=500 \
//	  -checkoutApiUrl=http://localhost:8081 \
//	  -jwtSecret=dev-secret
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cartfuse/checkout-core/pkg"
)

// --------- CLI flags ---------
var (
	noOfCheckouts          = flag.Int("noOfCheckouts", 100, "Total number of checkouts to seed")
	maxConcurrentRequests  = flag.Int("maxConcurrentRequests", 10, "Max in-flight HTTP requests (worker pool size)")
	noOfUsers              = flag.Int("noOfUsers", 50, "Number of distinct users to spread checkouts across")
	checkoutApiURL         = flag.String("checkoutApiUrl", "http://localhost:8081", "Checkout API base URL")
	jwtSecret              = flag.String("jwtSecret", "dev-secret", "Shared HMAC secret used to mint bearer tokens")
	rps                    = flag.Int("rps", 200, "Global requests-per-second limit for outbound POST /checkout")
	rpsBurst               = flag.Int("rpsBurst", 0, "Burst size for the limiter (0 => equals rps)")
	httpClientTimeoutMs    = flag.Int("httpClientTimeoutMs", 4000, "Total HTTP client timeout (ms)")
	responseHeaderTimeoutS = flag.Int("responseHeaderTimeoutS", 3, "Response header timeout (s)")
	idleConnTimeoutS       = flag.Int("idleConnTimeoutS", 30, "HTTP idle connection timeout (s)")
	maxIdleConns           = flag.Int("maxIdleConns", 1000, "Max idle connections in shared HTTP transport")
	maxIdleConnsPerHost    = flag.Int("maxIdleConnsPerHost", 1000, "Max idle connections per host in shared HTTP transport")
)

type SeedAddress struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type SeedCheckout struct {
	ShippingAddress SeedAddress `json:"shippingAddress"`
	PaymentMethod   string      `json:"paymentMethod"`
}

type seedUser struct {
	id    uuid.UUID
	token string
}

type job struct {
	user seedUser
	req  SeedCheckout
}

type Seeder struct {
	// config
	apiURL string
	users  []seedUser

	// controls
	workers    int
	limiter    *rate.Limiter
	httpClient *http.Client
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger

	// metrics
	enqueued int64
	sent     int64
	ok       int64
	fail     int64
}

var seedCities = []struct {
	city    string
	postal  string
	country string
}{
	{"Amsterdam", "1012 AB", "NL"},
	{"Berlin", "10115", "DE"},
	{"Lisbon", "1100-148", "PT"},
	{"Dublin", "D01 F5P2", "IE"},
	{"Helsinki", "00100", "FI"},
}

func main() {
	flag.Parse()

	// logger
	pkg.InitLogger()
	logger := pkg.Logger
	defer logger.Sync()

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// http client (shared)
	client := &http.Client{
		Timeout: time.Duration(*httpClientTimeoutMs) * time.Millisecond,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          *maxIdleConns,
			MaxIdleConnsPerHost:   *maxIdleConnsPerHost,
			IdleConnTimeout:       time.Duration(*idleConnTimeoutS) * time.Second,
			ResponseHeaderTimeout: time.Duration(*responseHeaderTimeoutS) * time.Second,
			ForceAttemptHTTP2:     true,
			DialContext: (&net.Dialer{
				Timeout:   3 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	// inputs validation / normalization
	if *noOfUsers <= 0 {
		logger.Fatal("noOfUsers_must_be_positive")
	}
	if *rps <= 0 {
		logger.Fatal("rps_must_be_positive")
	}
	burst := *rpsBurst
	if burst <= 0 {
		burst = *rps
	}

	// mint one bearer token per synthetic user
	users, err := mintUsers(*noOfUsers, []byte(*jwtSecret))
	if err != nil {
		logger.Fatal("failed_to_mint_tokens", zap.Error(err))
	}

	// rate limiter: tokens refill at rps, burst capacity 'burst'
	limiter := rate.NewLimiter(rate.Limit(*rps), burst)

	seeder := &Seeder{
		apiURL:     *checkoutApiURL,
		users:      users,
		workers:    *maxConcurrentRequests,
		limiter:    limiter,
		httpClient: client,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}

	start := time.Now()
	logger.Info("start_seeding",
		zap.Int("no_of_checkouts", *noOfCheckouts),
		zap.Int("no_of_users", *noOfUsers),
		zap.Int("workers", seeder.workers),
		zap.Int("rps", *rps),
		zap.Int("burst", burst),
	)

	if err := seeder.Run(*noOfCheckouts); err != nil {
		logger.Error("seeding_failed", zap.Error(err))
		os.Exit(1)
	}

	elapsed := time.Since(start)
	logger.Info("seeding_completed",
		zap.Duration("duration", elapsed),
		zap.Int64("enqueued", seeder.enqueued),
		zap.Int64("sent", seeder.sent),
		zap.Int64("success", seeder.ok),
		zap.Int64("failed", seeder.fail),
	)
}

func mintUsers(n int, secret []byte) ([]seedUser, error) {
	now := time.Now()
	users := make([]seedUser, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		claims := jwt.MapClaims{
			"sub": id.String(),
			"iat": now.Unix(),
			"exp": now.Add(12 * time.Hour).Unix(),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		if err != nil {
			return nil, fmt.Errorf("failed_to_sign_token: %w", err)
		}
		users = append(users, seedUser{id: id, token: token})
	}
	return users, nil
}

func (s *Seeder) Run(totalCheckouts int) error {
	jobs := make(chan job, min(totalCheckouts, 10000)) // bounded buffer

	// progress reporter (1s)
	var wg sync.WaitGroup
	stopProg := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(1 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-stopProg:
				return
			case <-t.C:
				enq := atomic.LoadInt64(&s.enqueued)
				sent := atomic.LoadInt64(&s.sent)
				ok := atomic.LoadInt64(&s.ok)
				fail := atomic.LoadInt64(&s.fail)
				s.logger.Info("progress_tick",
					zap.Int64("enqueued", enq),
					zap.Int64("sent", sent),
					zap.Int64("success", ok),
					zap.Int64("failed", fail),
				)
			}
		}
	}()

	// workers
	var workersWG sync.WaitGroup
	workersWG.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func(workerID int) {
			defer workersWG.Done()
			for j := range jobs {
				// throttle by RPS before sending the request
				if err := s.limiter.Wait(s.ctx); err != nil {
					s.logger.Warn("limiter_wait_interrupted", zap.Error(err))
					return
				}
				s.sendCheckout(j.user, j.req)
			}
		}(i)
	}

	// enqueue jobs round-robin across the synthetic users
	remaining := totalCheckouts
	for remaining > 0 {
		select {
		case <-s.ctx.Done():
			remaining = 0
		default:
		}
		if remaining <= 0 {
			break
		}

		u := s.users[rand.Intn(len(s.users))]
		select {
		case <-s.ctx.Done():
			remaining = 0
		case jobs <- job{user: u, req: randomCheckout(u)}:
			atomic.AddInt64(&s.enqueued, 1)
			remaining--
		}
	}

	// drain
	close(jobs)
	workersWG.Wait()
	close(stopProg)
	wg.Wait()
	return nil
}

var seedMethods = []string{"card", "wallet", "bank_transfer"}

func randomCheckout(u seedUser) SeedCheckout {
	loc := seedCities[rand.Intn(len(seedCities))]
	return SeedCheckout{
		ShippingAddress: SeedAddress{
			Name:       "Seed User " + u.id.String()[:8],
			Line1:      fmt.Sprintf("%d Seed Street", rand.Intn(200)+1),
			City:       loc.city,
			PostalCode: loc.postal,
			Country:    loc.country,
		},
		PaymentMethod: seedMethods[rand.Intn(len(seedMethods))],
	}
}

func (s *Seeder) sendCheckout(u seedUser, reqBody SeedCheckout) {
	start := time.Now()
	atomic.AddInt64(&s.sent, 1)

	// build request
	body, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.apiURL+"/api/v1/checkout", bytes.NewBuffer(body))
	if err != nil {
		atomic.AddInt64(&s.fail, 1)
		s.logger.Error("build_request_failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+u.token)

	// send
	resp, err := s.httpClient.Do(req)
	if err != nil {
		atomic.AddInt64(&s.fail, 1)
		s.logger.Error("api_call_failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	lat := time.Since(start)
	if resp.StatusCode != http.StatusCreated {
		atomic.AddInt64(&s.fail, 1)
		s.logger.Error("api_call_failed",
			zap.String(pkg.UserId, u.id.String()),
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("latency", lat),
		)
		return
	}

	traceID := resp.Header.Get(pkg.HeaderTraceId)
	atomic.AddInt64(&s.ok, 1)
	s.logger.Info("api_call_completed",
		zap.String(pkg.UserId, u.id.String()),
		zap.String(pkg.TraceId, traceID),
		zap.Duration("latency", lat),
	)
}
