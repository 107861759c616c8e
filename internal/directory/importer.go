package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/kapu/parish-directory-go/internal/domain"
	"github.com/kapu/parish-directory-go/internal/session"
	"github.com/kapu/parish-directory-go/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// PhotoFile is a photo waiting to be uploaded.
type PhotoFile struct {
	Filename string
	Data     []byte
}

type PhotoOutcome string

const (
	PhotoUploaded PhotoOutcome = "uploaded"
	PhotoExisting PhotoOutcome = "existing"
	PhotoFailed   PhotoOutcome = "failed"
)

type PhotoResult struct {
	Filename string
	Outcome  PhotoOutcome
	Err      error
}

// ImportSummary counts what ImportMembers did with the legacy records.
type ImportSummary struct {
	Added   int
	Skipped int
}

// ImportMembers appends legacy records to doc. Records already present (same name and phone,
// ignoring case) are skipped; names are lower-cased, missing IDs assigned, and a missing
// joined time is stamped with now. Records lacking a name or phone are skipped.
func (r *Repository) ImportMembers(sess *session.Session, doc *domain.Document, records []domain.Member) (*domain.Document, ImportSummary, error) {
	var summary ImportSummary
	if err := sess.Require("import members"); err != nil {
		return nil, summary, err
	}

	out := doc.Clone()
	seen := make(map[string]struct{}, len(out.Members))
	for _, m := range out.Members {
		seen[memberKey(m)] = struct{}{}
	}

	for _, m := range records {
		m.Name = strings.ToLower(strings.TrimSpace(m.Name))
		m.Phone = strings.TrimSpace(m.Phone)
		if m.Name == "" || m.Phone == "" {
			summary.Skipped++
			continue
		}
		key := memberKey(m)
		if _, dup := seen[key]; dup {
			summary.Skipped++
			continue
		}
		seen[key] = struct{}{}

		if m.ID == "" {
			m.ID = r.newID()
		}
		if m.Joined == "" {
			m.Joined = r.clock.Timestamp()
		}
		if !m.HasPhoto() {
			m.Photo = ""
		}
		out.Members = append(out.Members, m)
		summary.Added++
	}
	return out, summary, nil
}

// UploadPhotos uploads photos with at most workers concurrent writes. A photo already in the
// store counts as PhotoExisting. Results are in input order.
func (r *Repository) UploadPhotos(ctx context.Context, sess *session.Session, photos []PhotoFile, workers int) ([]PhotoResult, error) {
	if err := sess.Require("upload photos"); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = constants.ImportConfig.UploadWorkers
	}

	results := make([]PhotoResult, len(photos))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(workers)
	for idx, photo := range photos {
		idx, photo := idx, photo
		p.Go(func() {
			result := PhotoResult{Filename: photo.Filename, Outcome: PhotoUploaded}
			if err := r.UploadPhoto(ctx, sess, photo.Filename, photo.Data); err != nil {
				if errors.IsConflict(err) {
					result.Outcome = PhotoExisting
				} else {
					result.Outcome = PhotoFailed
					result.Err = err
				}
			}
			mu.Lock()
			results[idx] = result
			mu.Unlock()
		})
	}
	p.Wait()

	failed := 0
	for _, res := range results {
		if res.Outcome == PhotoFailed {
			failed++
		}
	}
	r.logger.Info("Photo upload finished",
		zap.Int("total", len(photos)),
		zap.Int("failed", failed),
	)
	return results, nil
}

func memberKey(m domain.Member) string {
	return strings.ToLower(strings.TrimSpace(m.Name)) + "\x00" + strings.TrimSpace(m.Phone)
}
