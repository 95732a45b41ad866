// Package main hosts the phone inventory service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, inventory reads,
//     manual job triggers, and runtime rescheduling. Auth is an optional shared
//     API key checked by middleware.
//   - Scheduler: internal/scheduler drives two cron jobs. The cluster sync runs
//     at a fixed minute of every hour and pulls phone configuration (AXL
//     listPhone) plus live registration state (RisPort selectCmDeviceExt) from
//     every configured CUCM cluster, merging both into the phone table. The
//     daily scrape fan-out queues every recently registered phone with an IP
//     for a direct device-page scrape. Jobs are mutually exclusive; cron
//     triggers pause while one runs and manual triggers are refused with a
//     conflict.
//   - Scrape pipeline: a bounded in-memory queue sized by config.Scrape.QueueDepth
//     feeds a fixed worker pool sized by config.Scrape.Concurrency. Workers
//     fetch each phone's web pages with a Colly-based fetcher, parse them per
//     model family, and upsert the result into the phonescraper table. Records
//     without a serial number are discarded.
//   - Persistence: Postgres via pgx when db.dsn is set, otherwise an in-memory
//     store for development. Job start/end times land in the jobstatus table.
//   - Configuration & plumbing: Viper populates config from env/files; zap
//     provides structured logging; Prometheus metrics are exported on /metrics.
//
// Operational notes:
//   - Shutdown is coordinated via context cancellation propagated from main
//     through the scheduler and worker pool; the process reacts to SIGTERM.
//   - Registration queries run in batches of at most sync.batch_size names with
//     a pause between batches to keep RisPort rate limits happy.
//
// Run locally: go run ./cmd/phoneinfod -config config.yaml (or rely solely on
// PHONEINFO_* env overrides).
package main
