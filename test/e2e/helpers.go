//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cloo-solutions/placesearch/internal/api/handlers"
	"github.com/cloo-solutions/placesearch/internal/cache"
	"github.com/cloo-solutions/placesearch/internal/repository"
	"github.com/cloo-solutions/placesearch/internal/scorer"
	"github.com/cloo-solutions/placesearch/internal/server"
	"github.com/cloo-solutions/placesearch/internal/service"
	"github.com/cloo-solutions/placesearch/internal/storage"
	"github.com/cloo-solutions/placesearch/internal/testutil"
)

const (
	s3AccessKey = "rustfsadmin"
	s3SecretKey = "rustfsadmin"
	s3Bucket    = "test-seeds"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	RedisC       *testutil.RedisContainer
	Pool         *pgxpool.Pool
	Redis        *redis.Client
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	redisC := testutil.NewRedisContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     s3AccessKey,
		SecretAccessKey: s3SecretKey,
		Bucket:          s3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	redisClient, err := cache.NewRedisClient(ctx, cache.RedisConfig{Addr: redisC.Addr()})
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, redisClient, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		RedisC:       redisC,
		Pool:         pool,
		Redis:        redisClient,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Redis != nil {
		e.Redis.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RedisC != nil {
		e.RedisC.Terminate(e.Ctx)
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the placesearch and placesearchd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "placesearch-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"placesearchd", "placesearch"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// Env returns the daemon environment pointing at the test containers.
func (e *E2ETestEnv) Env() []string {
	return append(os.Environ(),
		"PLACESEARCH_DATABASE_URL="+e.PostgresC.ConnectionString(),
		"PLACESEARCH_CANDIDATE_SOURCE=postgres",
		"PLACESEARCH_S3_ENDPOINT="+e.RustFSC.Endpoint(),
		"PLACESEARCH_S3_ACCESS_KEY_ID="+s3AccessKey,
		"PLACESEARCH_S3_SECRET_ACCESS_KEY="+s3SecretKey,
		"PLACESEARCH_S3_BUCKET="+s3Bucket,
		"PLACESEARCH_API_URL="+e.ServerURL,
	)
}

// Run runs one of the built binaries.
func (e *E2ETestEnv) Run(binary string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, binary), args...)
	cmd.Dir = "../.."
	cmd.Env = e.Env()
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Search calls GET /search and decodes the response.
func (e *E2ETestEnv) Search(query url.Values) (*handlers.SearchResponse, *http.Response, error) {
	resp, err := e.HTTPClient.Get(e.ServerURL + "/search?" + query.Encode())
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp, fmt.Errorf("search returned %d: %s", resp.StatusCode, body)
	}

	var out handlers.SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, resp, err
	}
	return &out, resp, nil
}

// PostJSON posts body and returns the status code.
func (e *E2ETestEnv) PostJSON(path string, body any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	resp, err := e.HTTPClient.Post(e.ServerURL+path, "application/json", strings.NewReader(string(data)))
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// startServer wires the search stack the way placesearchd serve does for
// postgres and redis.
func startServer(t *testing.T, pool *pgxpool.Pool, redisClient *redis.Client, port int) (string, func()) {
	searchSvc := service.NewSearchService(
		repository.NewPlaceRepository(pool),
		cache.NewRedisCache(redisClient, time.Minute),
		scorer.MustNew(scorer.Config{}),
		service.SearchServiceConfig{},
	)
	searchHandler := handlers.NewSearchHandler(searchSvc, repository.NewSearchLogRepository(pool))

	router := server.NewRouter(server.RouterConfig{SearchHandler: searchHandler})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
