package ingest

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ignite/workforce-monitor/internal/timenorm"
)

// ImportLog tracks watched files across restarts so each export is processed
// exactly once.
type ImportLog interface {
	Discover(ctx context.Context, key string, size int64) (bool, error)
	Pending(ctx context.Context, limit int) ([]string, error)
	Claim(ctx context.Context, key string) (bool, error)
	SetArchiveKey(ctx context.Context, key, archiveKey string) error
	Complete(ctx context.Context, key string, records int) error
	Fail(ctx context.Context, key, reason string) error
	ResumeStuck(ctx context.Context) error
	ProcessedCount(ctx context.Context) (int, error)
}

// DatasetSink receives parsed tables from the watcher. The dataset service
// implements it.
type DatasetSink interface {
	Process(ctx context.Context, name string, t timenorm.Table) (string, error)
}

// WatcherConfig configures the S3 drop-bucket watcher.
type WatcherConfig struct {
	Bucket     string
	Region     string
	AWSProfile string
	Interval   time.Duration
}

// Watcher polls an S3 bucket for dropped timesheet exports, processes each
// new file through the sink, and archives it under processed/. State lives in
// the import log, so concurrent watchers and restarts do not double-process.
type Watcher struct {
	client   *s3.Client
	bucket   string
	interval time.Duration
	logbook  ImportLog
	sink     DatasetSink

	ctx       context.Context
	cancel    context.CancelFunc
	running   int32
	lastRunAt atomic.Value
}

func NewWatcher(cfg WatcherConfig, logbook ImportLog, sink DatasetSink) (*Watcher, error) {
	ctx := context.Background()

	var awsCfg aws.Config
	var err error
	if cfg.AWSProfile != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithSharedConfigProfile(cfg.AWSProfile),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Watcher{
		client:   s3.NewFromConfig(awsCfg),
		bucket:   cfg.Bucket,
		interval: interval,
		logbook:  logbook,
		sink:     sink,
	}, nil
}

func (w *Watcher) Start() {
	w.ctx, w.cancel = context.WithCancel(context.Background())
	go func() {
		if err := w.logbook.ResumeStuck(w.ctx); err != nil {
			log.Printf("[ingest] resume stuck imports: %v", err)
		}
		w.runOnce()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.runOnce()
			}
		}
	}()
}

func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Watcher) IsRunning() bool { return atomic.LoadInt32(&w.running) == 1 }

func (w *Watcher) LastRunAt() time.Time {
	if t, ok := w.lastRunAt.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}

// runOnce executes one cycle: discover new files, then process a batch from
// the queue.
func (w *Watcher) runOnce() {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&w.running, 0)

	ctx := w.ctx
	w.lastRunAt.Store(time.Now())

	w.discover(ctx)
	w.processQueue(ctx)
}

// discover scans the bucket and records every new export as pending.
// Already-known keys are skipped by the import log.
func (w *Watcher) discover(ctx context.Context) {
	paginator := s3.NewListObjectsV2Paginator(w.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(w.bucket),
	})

	found := 0
	for paginator.HasMorePages() {
		if ctx.Err() != nil {
			return
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Printf("[ingest] list bucket %s: %v", w.bucket, err)
			return
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if obj.Size == nil || *obj.Size == 0 {
				continue
			}
			if !eligibleKey(key) {
				continue
			}
			fresh, err := w.logbook.Discover(ctx, key, *obj.Size)
			if err != nil {
				log.Printf("[ingest] record pending %s: %v", key, err)
				continue
			}
			if fresh {
				found++
			}
		}
	}

	if found > 0 {
		log.Printf("[ingest] discovered %d new files", found)
	}
}

// processQueue drains up to 10 pending files, 4 at a time.
func (w *Watcher) processQueue(ctx context.Context) {
	keys, err := w.logbook.Pending(ctx, 10)
	if err != nil {
		log.Printf("[ingest] query pending imports: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}

	log.Printf("[ingest] processing batch of %d files", len(keys))

	sem := make(chan struct{}, 4)
	var wg sync.WaitGroup
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(k string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := w.processFile(ctx, k); err != nil {
				log.Printf("[ingest] process %s: %v", k, err)
			}
		}(key)
	}
	wg.Wait()
}

// processFile claims one pending key, runs it through the sink, and archives
// the object. A key another watcher already claimed is skipped silently.
func (w *Watcher) processFile(ctx context.Context, key string) error {
	claimed, err := w.logbook.Claim(ctx, key)
	if err != nil {
		return fmt.Errorf("claim %s: %w", key, err)
	}
	if !claimed {
		return nil
	}

	log.Printf("[ingest] processing %s", key)

	obj, err := w.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		w.logbook.Fail(ctx, key, fmt.Sprintf("get object: %v", err))
		return fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Body.Close()

	table, err := ReadStream(key, obj.Body)
	if err != nil {
		w.logbook.Fail(ctx, key, fmt.Sprintf("parse: %v", err))
		return fmt.Errorf("parse %s: %w", key, err)
	}

	if _, err := w.sink.Process(ctx, key, table); err != nil {
		w.logbook.Fail(ctx, key, err.Error())
		return fmt.Errorf("process %s: %w", key, err)
	}

	seq, err := w.logbook.ProcessedCount(ctx)
	if err != nil {
		seq = 0
	}
	archived := archiveKey(key, seq+1)
	if err := w.logbook.SetArchiveKey(ctx, key, archived); err != nil {
		log.Printf("[ingest] record archive key for %s: %v", key, err)
	}

	if err := w.archive(ctx, key, archived); err != nil {
		log.Printf("[ingest] archive %s: %v", key, err)
	}

	if err := w.logbook.Complete(ctx, key, len(table.Rows)); err != nil {
		log.Printf("[ingest] mark complete %s: %v", key, err)
	}

	log.Printf("[ingest] completed %s -> %s: rows=%d headerless=%v",
		key, archived, len(table.Rows), table.Headerless)
	return nil
}

// archive copies the original under processed/ and deletes it on success.
func (w *Watcher) archive(ctx context.Context, key, archived string) error {
	_, err := w.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(w.bucket),
		CopySource: aws.String(w.bucket + "/" + key),
		Key:        aws.String(archived),
	})
	if err != nil {
		return fmt.Errorf("copy to %s: %w", archived, err)
	}
	_, err = w.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete original: %w", err)
	}
	return nil
}

// eligibleKey reports whether an object key is a fresh export the watcher
// should pick up.
func eligibleKey(key string) bool {
	if strings.HasPrefix(key, "processed/") {
		return false
	}
	switch strings.ToLower(filepath.Ext(key)) {
	case ".csv", ".xlsx", ".xlsm":
		return true
	}
	return false
}

var titleCaser = cases.Title(language.English)

// archiveKey builds the destination key for a processed export, numbered so
// the archive lists in processing order.
func archiveKey(key string, seq int) string {
	base := filepath.Base(key)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = titleCaser.String(strings.NewReplacer("_", " ", "-", " ").Replace(stem))
	stem = strings.ReplaceAll(stem, " ", "")
	return fmt.Sprintf("processed/%05d-%s%s", seq, stem, strings.ToLower(ext))
}
