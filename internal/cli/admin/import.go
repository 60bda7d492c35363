package admin

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/placesearch/internal/config"
	"github.com/cloo-solutions/placesearch/internal/database"
	"github.com/cloo-solutions/placesearch/internal/repository"
	"github.com/cloo-solutions/placesearch/internal/service"
	"github.com/cloo-solutions/placesearch/internal/storage"
)

// ImportCmd returns the import command
func ImportCmd() *cobra.Command {
	var (
		target  string
		archive bool
	)

	cmd := &cobra.Command{
		Use:   "import <file|s3://bucket/key>",
		Short: "Import places from a JSON seed",
		Long: `Import places from a JSON array into the candidate store.

Places with the same id are replaced. Invalid places are skipped and reported.
The target defaults to PLACESEARCH_CANDIDATE_SOURCE.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args[0], target, archive)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Store to import into (postgres or mongo)")
	cmd.Flags().BoolVar(&archive, "archive", false, "Upload a local seed file to the S3 seed bucket after importing")

	return cmd
}

func runImport(ctx context.Context, src, target string, archive bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if target == "" {
		target = cfg.CandidateSource
	}

	importer, closeImporter, err := openImporter(ctx, cfg, target)
	if err != nil {
		return err
	}
	defer closeImporter()

	body, err := openSeed(ctx, cfg, src)
	if err != nil {
		return err
	}
	defer body.Close()

	result, err := importer.Import(ctx, body)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Printf("Imported %d places into %s (%d skipped)\n", result.Imported, target, result.Skipped)

	if archive {
		if _, _, remote := storage.ParseObjectURI(src); remote {
			return fmt.Errorf("--archive needs a local file")
		}
		return archiveSeed(ctx, cfg, src)
	}
	return nil
}

// openImporter builds an import service for target. Postgres imports run in a
// single transaction.
func openImporter(ctx context.Context, cfg *config.Config, target string) (*service.ImportService, func(), error) {
	switch target {
	case config.SourcePostgres:
		if !cfg.HasDatabase() {
			return nil, nil, fmt.Errorf("PLACESEARCH_DATABASE_URL is not set")
		}
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return service.NewImportServiceWithTx(repository.NewTxRunner(pool)), pool.Close, nil

	case config.SourceMongo:
		if cfg.MongoURI == "" {
			return nil, nil, fmt.Errorf("PLACESEARCH_MONGO_URI is not set")
		}
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoPlaceRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		return service.NewImportService(repo), func() { _ = client.Disconnect(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("cannot import into %q: target must be %s or %s", target, config.SourcePostgres, config.SourceMongo)
}

func archiveSeed(ctx context.Context, cfg *config.Config, path string) error {
	s3Client, err := newS3Client(ctx, cfg)
	if err != nil {
		return err
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	key := filepath.Base(path)
	if err := s3Client.PutObject(ctx, key, "application/json", f); err != nil {
		return err
	}
	log.Printf("archived seed to s3://%s/%s", cfg.S3Bucket, key)
	return nil
}
