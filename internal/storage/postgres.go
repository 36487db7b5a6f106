package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slatemate/social-scraper/internal/domain"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	post_id    text NOT NULL,
	platform   text NOT NULL,
	post_text  text NOT NULL DEFAULT '',
	hashtags   text NOT NULL DEFAULT '',
	ts         text NOT NULL DEFAULT '',
	image_url  text NOT NULL DEFAULT '',
	likes      text NOT NULL DEFAULT '',
	comments   text NOT NULL DEFAULT '',
	author     text NOT NULL DEFAULT '',
	scraped_at text NOT NULL DEFAULT '',
	view_count text NOT NULL DEFAULT '',
	duration   text NOT NULL DEFAULT '',
	channel_id text NOT NULL DEFAULT '',
	url        text NOT NULL DEFAULT '',
	PRIMARY KEY (post_id, platform)
)`

const insertPost = `
INSERT INTO posts (
	post_id, platform, post_text, hashtags, ts, image_url,
	likes, comments, author, scraped_at, view_count, duration, channel_id, url
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (post_id, platform) DO NOTHING`

// PostgresSink mirrors the CSV table into Postgres when PG_DSN is set. The
// CSV file stays the system of record; this sink is best effort.
type PostgresSink struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresSink(ctx context.Context, dsn string, log *slog.Logger) (*PostgresSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing PG_DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createPostsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring posts table: %w", err)
	}
	return &PostgresSink{pool: pool, log: log}, nil
}

// Append inserts records, silently skipping (post_id, platform) pairs the
// table already holds.
func (s *PostgresSink) Append(ctx context.Context, records []domain.PostRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		row := recordRow(r)
		batch.Queue(insertPost,
			row["post_id"], row["platform"], row["post_text"], row["hashtags"],
			row["timestamp"], row["image_url"], row["likes"], row["comments"],
			row["author"], row["scraped_at"], row["view_count"], row["duration"],
			row["channel_id"], row["url"],
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	inserted := 0
	for range records {
		tag, err := br.Exec()
		if err != nil {
			return fmt.Errorf("inserting posts: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	s.log.Info("mirrored posts to postgres", "batch", len(records), "inserted", inserted)
	return nil
}

func (s *PostgresSink) Close() {
	s.pool.Close()
}
