package pipeline

import (
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/config"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/dedup"
	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/phash"
)

// session carries the mutable state of one workflow run. The results
// slice is written at disjoint indexes by the workers, so only the
// aggregate counters need synchronization.
type session struct {
	id        string
	ownerID   string
	shopID    string
	scope     string
	meta      UploadMetadata
	files     []FileUpload
	startedAt time.Time

	index *dedup.Index
	seed  []dedup.SeedEntry
	mode  phash.CombineMode

	threshold int

	accepted   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64

	results []FileResult

	// processed holds the normalized PNG bytes of accepted files,
	// kept so a digital session can pack its delivery bundle without
	// a second decode pass.
	processed [][]byte
}

func newSession(req *Request, cfg *config.Config) *session {
	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	scope := req.ShopID
	if scope == "" {
		scope = req.OwnerID
	}

	return &session{
		id:        id,
		ownerID:   req.OwnerID,
		shopID:    req.ShopID,
		scope:     scope,
		meta:      req.Metadata,
		files:     req.Files,
		startedAt: time.Now(),
		index:     dedup.NewIndex(cfg.HashThreshold, cfg.CombineMode),
		mode:      cfg.CombineMode,
		threshold: cfg.HashThreshold,
		results:   make([]FileResult, len(req.Files)),
		processed: make([][]byte, len(req.Files)),
	}
}

// reset restores the session to its pre-run state so the sequential
// fallback can rerun it cleanly. The similarity index is rebuilt from
// the seed signatures only; entries accepted by the aborted run are
// discarded (the catalog's uniqueness constraint covers any records
// that made it in before the abort).
func (s *session) reset() {
	s.accepted.Store(0)
	s.duplicates.Store(0)
	s.failed.Store(0)
	s.results = make([]FileResult, len(s.files))
	s.processed = make([][]byte, len(s.files))
	s.index = dedup.NewIndex(s.threshold, s.mode)
	s.index.Seed(s.seed)
}

// storageBase is the name a file keeps in blob storage once its upload
// extension is stripped. Validation rejects manifests where two files
// share it, since their stored objects would collide.
func storageBase(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}

// storagePath is where a processed design lands in blob storage. The
// processed file is always PNG, whatever the upload format was.
func (s *session) storagePath(filename string) string {
	return path.Join(s.ownerID, s.meta.TemplateName, storageBase(filename)+".png")
}

// bundlePath is where a digital session's delivery zip lands.
func (s *session) bundlePath() string {
	return path.Join(s.ownerID, s.meta.TemplateName, "bundles", s.id+".zip")
}

// counts snapshots the aggregate counters.
func (s *session) counts() (accepted, duplicates, failed int) {
	return int(s.accepted.Load()), int(s.duplicates.Load()), int(s.failed.Load())
}
