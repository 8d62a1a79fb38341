// Package journal keeps a local, append-only record of session activity:
// requests answered, events queued and connection state changes.
//
// Recorder is a session.Observer. It never blocks the session loop; entries
// are buffered and written to SQLite by a single background goroutine, and
// dropped (and counted) if the buffer is full.
//
// Usage:
//
//	repo := journal.NewSQLiteRepository(db.DB)
//	rec := journal.NewRecorder(repo, journal.WithLogger(logger))
//	go rec.Run(ctx)
//	sess, err := session.New(cfg, session.WithObserver(rec))
package journal
