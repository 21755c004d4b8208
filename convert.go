package main

import (
	"context"
	"fmt"
	"log"
)

// Conversion stages and their progress bands. Export fills 0-40, the handler
// switch 40-60, import 60-99; 100 is the terminal complete event.
const (
	stageExport   = "export"
	stageSwitch   = "switch"
	stageImport   = "import"
	stageComplete = "complete"
	stageFailed   = "failed"
)

// ConversionJob tracks one export-switch-import operation. It lives only for
// the duration of the streamed conversion and is mutated solely by the
// pipeline's own stage transitions.
type ConversionJob struct {
	SourceDB      string `json:"source_db"`
	TargetDBName  string `json:"target_db_name"`
	TargetType    string `json:"target_type"`
	TargetHandler string `json:"target_handler"`

	Stage       string `json:"stage"`
	Progress    int    `json:"progress"`
	CurrentItem string `json:"current"`
}

// ProgressEvent is one element of the conversion stream. A terminal event
// has either Progress == 100 or a non-empty Error.
type ProgressEvent struct {
	Stage    string   `json:"stage,omitempty"`
	Progress int      `json:"progress"`
	Current  string   `json:"current,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// runConversion executes the pipeline, pushing events on the channel and
// closing it when done. The source database is never written to: a failure
// at any stage leaves it exactly as it was. There is no mid-flight
// cancellation; a client that stops listening does not stop the job.
func runConversion(ctx context.Context, mgr *sessionManager, sess *session, job *ConversionJob, events chan<- ProgressEvent) {
	defer close(events)

	emit := func(stage string, progress int, current string) {
		job.Stage = stage
		job.Progress = progress
		job.CurrentItem = current
		events <- ProgressEvent{Stage: stage, Progress: progress, Current: current}
	}
	fail := func(stage string, err error) {
		job.Stage = stageFailed
		wrapped := &ConversionStageError{Stage: stage, Err: err}
		log.Printf("conversion of %s failed: %v", job.SourceDB, wrapped)
		events <- ProgressEvent{Stage: stage, Error: wrapped.Error()}
	}

	// Validate the whole job before touching anything: a bad target name, a
	// credential gap, or a colliding target database must fail here, with the
	// source untouched and the session still on its original handler.
	if err := validIdent("database", job.TargetDBName); err != nil {
		fail(stageExport, err)
		return
	}
	targetDesc, err := describeHandler(job.TargetHandler)
	if err != nil {
		fail(stageExport, err)
		return
	}
	if job.TargetType != "" && targetDesc.DBType != job.TargetType {
		fail(stageExport, fmt.Errorf("handler %q is %s, not %s", job.TargetHandler, targetDesc.DBType, job.TargetType))
		return
	}
	if mgr.needsCredentials(sess, targetDesc) {
		fail(stageExport, &NeedsCredentialsError{Handler: job.TargetHandler})
		return
	}
	if err := targetNameFree(ctx, mgr, sess, job); err != nil {
		fail(stageExport, err)
		return
	}
	origState := sess.State()

	// Stage 1: export the source as JSON, the only representation safe
	// across handler families, while the source handler is still active.
	emit(stageExport, 0, job.SourceDB)
	var dump *databaseDump
	err = sess.withHandler(func(h Handler) error {
		var dumpErr error
		dump, dumpErr = dumpDatabaseWithProgress(ctx, h, job.SourceDB, func(item string, done, total int) {
			emit(stageExport, scaleProgress(0, 40, done, total), item)
		})
		return dumpErr
	})
	if err != nil {
		fail(stageExport, err)
		return
	}
	emit(stageExport, 40, job.SourceDB)

	// Stage 2: switch the active handler and create the target database.
	emit(stageSwitch, 40, job.TargetHandler)
	_, needsCreds, err := mgr.SwitchHandler(ctx, sess, targetDesc.DBType, job.TargetHandler)
	if err != nil {
		fail(stageSwitch, err)
		return
	}
	if needsCreds {
		fail(stageSwitch, &NeedsCredentialsError{Handler: job.TargetHandler})
		return
	}
	err = sess.withHandler(func(h Handler) error {
		return h.CreateDatabase(ctx, job.TargetDBName)
	})
	if err != nil {
		switchBack(ctx, mgr, sess, origState)
		fail(stageSwitch, err)
		return
	}
	emit(stageSwitch, 60, job.TargetDBName)

	// Stage 3: import into the target. Lossy mode: features the target
	// family cannot express are dropped and surfaced as warnings rather
	// than failing the conversion.
	var warnings []string
	err = sess.withHandler(func(h Handler) error {
		var importErr error
		warnings, importErr = restoreDumpWithProgress(ctx, h, job.TargetDBName, dump, true,
			func(item string, done, total int) {
				emit(stageImport, scaleProgress(60, 99, done, total), item)
			})
		return importErr
	})
	if err != nil {
		// Remove the half-built target; the source was never touched.
		if dropErr := sess.withHandler(func(h Handler) error {
			return h.DropDatabase(ctx, job.TargetDBName)
		}); dropErr != nil {
			log.Printf("cleanup of %s after failed conversion: %v", job.TargetDBName, dropErr)
		}
		switchBack(ctx, mgr, sess, origState)
		fail(stageImport, err)
		return
	}

	job.Stage = stageComplete
	job.Progress = 100
	for _, w := range warnings {
		log.Printf("conversion of %s: %s", job.SourceDB, w)
	}
	events <- ProgressEvent{Stage: stageComplete, Progress: 100, Warnings: warnings}
}

// targetNameFree checks for a name collision under the target handler using
// a short-lived probe connection, so the session's active handler never moves
// for a job that cannot run.
func targetNameFree(ctx context.Context, mgr *sessionManager, sess *session, job *ConversionJob) error {
	probe, err := newHandler(job.TargetHandler, mgr.cfg, sess.credentials(job.TargetHandler))
	if err != nil {
		return err
	}
	defer probe.Close()
	if err := probe.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", job.TargetHandler, err)
	}
	existing, err := probe.ListDatabases(ctx)
	if err != nil {
		return err
	}
	for _, name := range existing {
		if name == job.TargetDBName {
			return &NameCollisionError{Kind: "database", Name: job.TargetDBName}
		}
	}
	return nil
}

// switchBack restores the session's pre-conversion handler and database after
// a failure past the switch stage. Best effort: the failure already being
// reported matters more than the restore.
func switchBack(ctx context.Context, mgr *sessionManager, sess *session, orig SessionState) {
	if sess.State().HandlerName == orig.HandlerName {
		sess.SetDatabase(orig.Database)
		return
	}
	if _, err := mgr.switchTo(ctx, sess, orig.HandlerName); err != nil {
		log.Printf("restoring session to %s after failed conversion: %v", orig.HandlerName, err)
		return
	}
	sess.SetDatabase(orig.Database)
}

// scaleProgress maps done/total onto the [lo, hi] band.
func scaleProgress(lo, hi, done, total int) int {
	if total <= 0 {
		return lo
	}
	p := lo + (hi-lo)*done/total
	if p > hi {
		p = hi
	}
	return p
}
