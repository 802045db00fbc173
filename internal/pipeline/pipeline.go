// Package pipeline runs bulk design uploads end to end: it validates
// the request, plans byte-bounded batches, fans them out to a worker
// pool, deduplicates by perceptual signature, uploads the normalized
// images, persists catalog records, and reports progress. When the
// batch strategy fails the session is rerun sequentially over the same
// per-file stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/bundle"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/catalog"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/config"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/dedup"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/events"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/imageproc"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/progress"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/storage"
)

// Pipeline owns the collaborators shared by every upload session. One
// Pipeline serves many concurrent Run calls; all per-session state
// lives on the session, never on the Pipeline.
type Pipeline struct {
	cfg       *config.Config
	processor *imageproc.Processor
	catalog   catalog.Store
	blobs     storage.BlobStore
	events    events.Publisher
	reporter  *progress.Reporter
}

// New wires a Pipeline. The catalog store and blob store are required.
// A nil publisher discards lifecycle events; a nil reporter gets a
// private one, which still lets Run drive it without nil checks.
func New(cfg *config.Config, cat catalog.Store, blobs storage.BlobStore, pub events.Publisher, rep *progress.Reporter) *Pipeline {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if rep == nil {
		rep = progress.NewReporter()
	}
	return &Pipeline{
		cfg:       cfg,
		processor: imageproc.New(cfg.MaxEdgePx),
		catalog:   cat,
		blobs:     blobs,
		events:    pub,
		reporter:  rep,
	}
}

// Reporter exposes the progress reporter so callers can subscribe to
// session updates before or while Run executes.
func (p *Pipeline) Reporter() *progress.Reporter {
	return p.reporter
}

// Run executes one upload session to a terminal status. A validation
// failure returns before any session state exists. Otherwise Run
// always produces a Result; the error return is non-nil only when the
// session ends failed, and then it wraps the strategy error.
func (p *Pipeline) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	s := newSession(req, p.cfg)

	log.Info().
		Str("sessionId", s.id).
		Str("ownerId", s.ownerID).
		Str("template", s.meta.TemplateName).
		Int("files", len(s.files)).
		Msg("Upload session started")

	p.reporter.StartSession(s.id, len(s.files))
	p.reporter.Emit(s.id, progress.StepDuplicateCheck, "loading existing design signatures")

	if err := p.seedIndex(ctx, s); err != nil {
		// A cold index still catches duplicates within this session,
		// and the catalog uniqueness constraint backstops the rest.
		log.Warn().Err(err).Str("sessionId", s.id).Msg("Signature preload failed, starting with an empty index")
	}

	mode := ModeBatch
	if !p.cfg.PipelineEnabled || len(s.files) < p.cfg.MinBatchFiles {
		mode = ModeSequential
	}

	var runErr error
	if mode == ModeBatch {
		runErr = p.runBatchStrategy(ctx, s)
		if runErr != nil {
			log.Warn().Err(runErr).Str("sessionId", s.id).Msg("Batch strategy failed, rerunning sequentially")
			mode = ModeSequential
			s.reset()
			runErr = p.runSequential(ctx, s)
		}
	} else {
		runErr = p.runSequential(ctx, s)
	}

	return p.finalize(ctx, s, mode, runErr)
}

// seedIndex loads the scope's active signatures into the session's
// similarity index and keeps them for fallback reruns.
func (p *Pipeline) seedIndex(ctx context.Context, s *session) error {
	entries, err := p.catalog.ActiveSignatures(ctx, s.scope)
	if err != nil {
		return fmt.Errorf("load active signatures for %s: %w", s.scope, err)
	}
	seed := make([]dedup.SeedEntry, 0, len(entries))
	for _, e := range entries {
		seed = append(seed, dedup.SeedEntry{DesignID: e.DesignID, Signature: e.Signature})
	}
	s.seed = seed
	s.index.Seed(seed)

	log.Debug().Str("sessionId", s.id).Int("signatures", len(seed)).Msg("Similarity index seeded")
	return nil
}

func (p *Pipeline) runBatchStrategy(ctx context.Context, s *session) error {
	sizes := make([]int64, len(s.files))
	for i, f := range s.files {
		sizes[i] = int64(len(f.Data))
	}
	batches, err := PlanBatches(sizes, p.cfg.BatchByteLimit)
	if err != nil {
		return &WorkflowError{Stage: "plan", Err: err}
	}

	log.Info().
		Str("sessionId", s.id).
		Int("batches", len(batches)).
		Int("workers", p.cfg.WorkerCount).
		Int64("byteLimit", p.cfg.BatchByteLimit).
		Msg("Batch plan ready")

	if err := p.runBatches(ctx, s, batches, p.cfg.WorkerCount); err != nil {
		return &WorkflowError{Stage: "pool", Err: err}
	}
	return nil
}

// runSequential is the fallback strategy: the whole manifest as a
// single batch on a single worker, over the same per-file stages the
// batch strategy runs.
func (p *Pipeline) runSequential(ctx context.Context, s *session) error {
	all := Batch{Files: make([]int, len(s.files))}
	for i := range s.files {
		all.Files[i] = i
	}
	if err := p.runBatches(ctx, s, []Batch{all}, 1); err != nil {
		return &WorkflowError{Stage: "sequential", Err: err}
	}
	return nil
}

// finalize settles the terminal status, packs the digital bundle,
// publishes the lifecycle event, and closes out progress. It runs on
// every path out of a session, including cancelled and failed ones.
func (p *Pipeline) finalize(ctx context.Context, s *session, mode string, runErr error) (*Result, error) {
	accepted, duplicates, failed := s.counts()

	var created []string
	skipped := 0
	for i := range s.results {
		if s.results[i].Outcome == "" {
			s.results[i] = FileResult{Filename: s.files[i].Filename, Outcome: OutcomeSkipped}
		}
		switch s.results[i].Outcome {
		case OutcomeSkipped:
			skipped++
		case OutcomeAccepted:
			created = append(created, s.results[i].DesignID)
		}
	}

	status := StatusCompleted
	switch {
	case runErr != nil:
		status = StatusFailed
	case skipped > 0:
		status = StatusCancelled
	}

	result := &Result{
		SessionID:   s.id,
		Status:      status,
		Mode:        mode,
		CreatedIDs:  created,
		Accepted:    accepted,
		Duplicates:  duplicates,
		Failed:      failed,
		Skipped:     skipped,
		FileResults: s.results,
	}

	// Finalization work must land even when the session context was
	// cancelled mid-run.
	opCtx := context.WithoutCancel(ctx)

	if status != StatusFailed {
		p.reporter.Emit(s.id, progress.StepMockupTrigger,
			fmt.Sprintf("handing %d designs to mockup generation", len(created)))

		if s.meta.IsDigital && len(created) > 0 {
			if bundlePath, err := p.packBundle(opCtx, s); err != nil {
				log.Warn().Err(err).Str("sessionId", s.id).Msg("Digital bundle packaging failed, continuing without it")
			} else {
				result.BundlePath = bundlePath
			}
		}
	}

	event := events.UploadCompleted{
		SessionID:  s.id,
		OwnerID:    s.ownerID,
		ShopID:     s.shopID,
		Status:     status,
		DesignIDs:  created,
		Accepted:   accepted,
		Duplicates: duplicates,
		Failed:     failed,
		BundlePath: result.BundlePath,
	}
	if err := p.events.PublishUploadCompleted(opCtx, event); err != nil {
		log.Warn().Err(err).Str("sessionId", s.id).Msg("Upload completion event not delivered")
	}

	result.Elapsed = time.Since(s.startedAt)
	p.reporter.Finish(s.id, "session "+status)

	log.Info().
		Str("sessionId", s.id).
		Str("status", status).
		Str("mode", mode).
		Int("accepted", accepted).
		Int("duplicates", duplicates).
		Int("failed", failed).
		Int("skipped", skipped).
		Dur("elapsed", result.Elapsed).
		Msg("Upload session finished")

	if status == StatusFailed {
		return result, fmt.Errorf("upload session %s: %w", s.id, runErr)
	}
	return result, nil
}

// packBundle zips the session's accepted PNGs and uploads the archive
// next to the designs. Buyers of a digital listing download this file.
func (p *Pipeline) packBundle(ctx context.Context, s *session) (string, error) {
	var files []bundle.File
	for i, r := range s.results {
		if r.Outcome != OutcomeAccepted || s.processed[i] == nil {
			continue
		}
		name := strings.TrimSuffix(r.Filename, path.Ext(r.Filename)) + ".png"
		files = append(files, bundle.File{Name: name, Data: s.processed[i]})
	}
	data, err := bundle.Build(files)
	if err != nil {
		if errors.Is(err, bundle.ErrNoFiles) {
			return "", err
		}
		return "", fmt.Errorf("pack bundle: %w", err)
	}

	bundlePath := s.bundlePath()
	if err := p.blobs.Put(ctx, bundlePath, data, "application/zip"); err != nil {
		return "", fmt.Errorf("upload bundle: %w", err)
	}

	log.Info().
		Str("sessionId", s.id).
		Str("path", bundlePath).
		Int("files", len(files)).
		Int("bytes", len(data)).
		Msg("Digital bundle uploaded")
	return bundlePath, nil
}
