// Command event-replay re-delivers archived webhook notifications to a
// running API server. Archives are gzip-compressed NDJSON exports, one
// delivery per line: {"topic": ..., "source_id": ..., "payload": {...}}.
//
// Replay is safe to run repeatedly: deliveries already marked PROCESSED in
// the ledger are skipped up front, duplicates across archive files are
// collapsed with per-file bloom filters, and the server's own (topic,
// source_id) dedup catches whatever the filters' false-positive rate lets
// through.
package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-checkout/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.0001
	progressEvery = 100_000
)

// archiveLine is one exported delivery.
type archiveLine struct {
	Topic    string          `json:"topic"`
	SourceID string          `json:"source_id"`
	Payload  json.RawMessage `json:"payload"`
}

func main() {
	var (
		archiveDir  string
		endpoint    string
		secret      string
		databaseURL string
	)

	flag.StringVar(&archiveDir, "archive-dir", "archive", "directory containing *.ndjson.gz archive files")
	flag.StringVar(&endpoint, "endpoint", "http://localhost:8080/api/webhooks", "webhook ingestion endpoint")
	flag.StringVar(&secret, "secret", "", "webhook HMAC secret (or SHOP_WEBHOOK_SECRET env)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL to skip processed deliveries (or DATABASE_URL env)")
	flag.Parse()

	if secret == "" {
		secret = os.Getenv("SHOP_WEBHOOK_SECRET")
	}
	if secret == "" {
		slog.Error("webhook secret is required: set --secret or SHOP_WEBHOOK_SECRET")
		os.Exit(1)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, archiveDir, endpoint, secret, databaseURL); err != nil {
		slog.Error("event replay failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("event replay completed successfully")
}

func run(ctx context.Context, archiveDir, endpoint, secret, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(archiveDir, "*.ndjson.gz"))
	if err != nil {
		return errors.Wrap(err, "list archive files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.ndjson.gz files in %s", archiveDir)
	}

	// Pass 1: build one bloom filter of delivery keys per file, concurrently.
	slog.Info("pass 1: indexing archives", slog.Int("files", len(files)))

	filters, err := buildKeyFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "index archives")
	}

	processed, err := loadProcessedKeys(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "load processed deliveries")
	}

	// Pass 2: replay deliveries not seen in an earlier file and not already
	// processed by the server.
	slog.Info("pass 2: replaying deliveries", slog.String("endpoint", endpoint))

	return replayArchives(ctx, files, filters, processed, endpoint, secret)
}

func deliveryKey(topic, sourceID string) string {
	return topic + "|" + sourceID
}

// buildKeyFilters creates one bloom filter of (topic, source_id) keys per
// archive file, concurrently.
func buildKeyFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamArchive(ctx, path, func(line archiveLine) error {
			filter.AddString(deliveryKey(line.Topic, line.SourceID))
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress", slog.Int("file", idx+1), slog.Uint64("deliveries", count))
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "index file %d", idx+1)
		}

		slog.Info("pass 1 complete", slog.Int("file", idx+1), slog.Uint64("deliveries", count))

		filters[idx] = filter
		return nil
	}
}

// loadProcessedKeys streams PROCESSED ledger rows into a bloom filter so
// already-handled deliveries are not re-posted. With no database URL the
// filter is empty and the server's own dedup does all the work.
func loadProcessedKeys(ctx context.Context, databaseURL string) (*bloom.BloomFilter, error) {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	if databaseURL == "" {
		return filter, nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	rows, err := pool.Query(ctx,
		`SELECT topic, source_id FROM webhook_deliveries WHERE status = 'PROCESSED'`)
	if err != nil {
		return nil, errors.Wrap(err, "query processed deliveries")
	}
	defer rows.Close()

	var count uint64
	for rows.Next() {
		var topic, sourceID string
		if err := rows.Scan(&topic, &sourceID); err != nil {
			return nil, errors.Wrap(err, "scan processed delivery")
		}
		filter.AddString(deliveryKey(topic, sourceID))
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate processed deliveries")
	}

	slog.Info("loaded processed deliveries", slog.Uint64("count", count))
	return filter, nil
}

// replayArchives streams each file in order and posts deliveries whose key
// is new: not in any earlier file's filter and not in the processed set.
func replayArchives(
	ctx context.Context,
	files []string,
	filters []*bloom.BloomFilter,
	processed *bloom.BloomFilter,
	endpoint, secret string,
) error {
	client := &http.Client{Timeout: 30 * time.Second}
	var sent, skipped, failed uint64

	for i, path := range files {
		err := streamArchive(ctx, path, func(line archiveLine) error {
			key := deliveryKey(line.Topic, line.SourceID)

			if processed.TestString(key) {
				skipped++
				return nil
			}
			// Attribute duplicates to the earliest file containing them.
			for j := range i {
				if filters[j].TestString(key) {
					skipped++
					return nil
				}
			}

			if err := postDelivery(ctx, client, endpoint, secret, line); err != nil {
				failed++
				slog.Warn("delivery replay failed",
					slog.String("topic", line.Topic),
					slog.String("source_id", line.SourceID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			sent++
			if sent%progressEvery == 0 {
				slog.Info("pass 2 progress", slog.Uint64("sent", sent), slog.Uint64("skipped", skipped))
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "replay file %d", i+1)
		}
	}

	slog.Info("replay summary",
		slog.Uint64("sent", sent),
		slog.Uint64("skipped", skipped),
		slog.Uint64("failed", failed),
	)
	if failed > 0 {
		return errors.Errorf("%d deliveries failed", failed)
	}
	return nil
}

// postDelivery signs the payload's exact bytes and posts it the way the
// platform would, so the server applies its full verification path.
func postDelivery(ctx context.Context, client *http.Client, endpoint, secret string, line archiveLine) error {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(line.Payload)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(line.Payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Hmac-Sha256", signature)
	req.Header.Set("X-Webhook-Topic", line.Topic)
	req.Header.Set("X-Webhook-Id", line.SourceID)

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post delivery")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

// streamArchive opens a gzip-compressed NDJSON file and calls fn per line.
func streamArchive(ctx context.Context, path string, fn func(line archiveLine) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var line archiveLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return errors.Wrapf(err, "parse archive line in %s", path)
		}
		if line.Topic == "" || line.SourceID == "" {
			return errors.Errorf("archive line missing topic or source_id in %s", path)
		}
		if err := fn(line); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
