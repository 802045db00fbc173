package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/catalog"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/dedup"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/progress"
)

// runBatches drives the worker pool: a fixed number of workers pull
// batches from an unbuffered channel until the plan drains or the
// context is cancelled. Returns the first batch-level failure, if any.
func (p *Pipeline) runBatches(ctx context.Context, s *session, batches []Batch, workers int) error {
	if workers > len(batches) {
		workers = len(batches)
	}

	jobs := make(chan Batch)
	var wg sync.WaitGroup

	var errMu sync.Mutex
	var firstErr error
	recordErr := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				// A batch handed over in the same instant the session
				// was cancelled must not start.
				if ctx.Err() != nil {
					continue
				}
				if err := p.safeBatch(ctx, s, batch); err != nil {
					recordErr(err)
				}
			}
		}()
	}

	for _, b := range batches {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- b:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	return firstErr
}

// safeBatch confines a worker panic to the batch that caused it, so
// the selector can fall back instead of the process crashing.
func (p *Pipeline) safeBatch(ctx context.Context, s *session, batch Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch %d panicked: %v", batch.Index, r)
		}
	}()
	p.processBatch(ctx, s, batch)
	return nil
}

// processBatch runs a batch's files in manifest order. An in-flight
// batch completes even after cancellation, so its external calls get a
// context detached from the cancel signal; its persisted results stand.
func (p *Pipeline) processBatch(ctx context.Context, s *session, batch Batch) {
	opCtx := context.WithoutCancel(ctx)
	for _, idx := range batch.Files {
		res := p.processFile(opCtx, s, idx)
		s.results[idx] = res

		switch res.Outcome {
		case OutcomeAccepted:
			s.accepted.Add(1)
		case OutcomeDuplicate:
			s.duplicates.Add(1)
		default:
			s.failed.Add(1)
		}
		p.reporter.Advance(s.id, progress.StepProcessing, 1, res.Filename)
	}

	log.Debug().
		Str("sessionId", s.id).
		Int("batch", batch.Index).
		Int("files", len(batch.Files)).
		Msg("Batch processed")
}

// processFile runs one file through the shared per-image stages:
// normalize, duplicate check, storage upload, catalog insert. Both the
// batch pipeline and the sequential fallback execute this exact path.
func (p *Pipeline) processFile(ctx context.Context, s *session, idx int) FileResult {
	file := s.files[idx]
	res := FileResult{Filename: file.Filename}

	processed, err := p.processor.Process(file.Filename, file.Data)
	if err != nil {
		log.Warn().Err(err).Str("sessionId", s.id).Str("filename", file.Filename).Msg("Image processing failed")
		res.Outcome = OutcomeError
		res.Error = err.Error()
		return res
	}

	designID := uuid.NewString()
	outcome, matchID := s.index.CheckAndInsert(processed.Signature, designID)
	if outcome == dedup.Duplicate {
		log.Info().
			Str("sessionId", s.id).
			Str("filename", file.Filename).
			Str("duplicateOf", matchID).
			Msg("Near-duplicate design skipped")
		res.Outcome = OutcomeDuplicate
		res.DuplicateOf = matchID
		return res
	}

	storagePath := s.storagePath(file.Filename)
	if err := p.blobs.Put(ctx, storagePath, processed.PNG, "image/png"); err != nil {
		// Storage degradation is not fatal: the record is still
		// written and a later reconciliation can re-upload the bytes.
		log.Warn().Err(err).Str("sessionId", s.id).Str("path", storagePath).Msg("Design upload to storage failed")
	}

	rec := &catalog.DesignRecord{
		ID:           designID,
		OwnerID:      s.ownerID,
		ShopID:       s.shopID,
		Filename:     file.Filename,
		StoragePath:  storagePath,
		Phash:        processed.Signature.PhashHex(),
		Dhash:        processed.Signature.DhashHex(),
		IsActive:     true,
		IsDigital:    s.meta.IsDigital,
		TemplateName: s.meta.TemplateName,
		CanvasID:     s.meta.CanvasID,
		SizeIDs:      s.meta.SizeIDs,
	}
	if err := p.catalog.InsertDesign(ctx, rec); err != nil {
		if errors.Is(err, catalog.ErrDuplicateSignature) {
			// Another worker or session persisted this signature after
			// our index check: a late duplicate, not a failure.
			log.Info().
				Str("sessionId", s.id).
				Str("filename", file.Filename).
				Msg("Signature already in catalog, counting as duplicate")
			res.Outcome = OutcomeDuplicate
			return res
		}
		log.Error().Err(err).Str("sessionId", s.id).Str("filename", file.Filename).Msg("Design record insert failed")
		// The ID never became a record; release its signature so later
		// files are not reported as duplicates of it.
		s.index.Remove(designID)
		res.Outcome = OutcomeError
		res.Error = err.Error()
		return res
	}

	s.processed[idx] = processed.PNG

	log.Debug().
		Str("sessionId", s.id).
		Str("designId", designID).
		Str("filename", file.Filename).
		Int("width", processed.Width).
		Int("height", processed.Height).
		Msg("Design accepted")
	res.Outcome = OutcomeAccepted
	res.DesignID = designID
	return res
}
