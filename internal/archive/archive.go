// Package archive exports a closed offer's applications as a zip bundle.
// Archiving stays available for a fixed window after the deadline and may be
// repeated; every run exports the full application set again.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"offerportal/internal/models"
)

// DefaultWindow is how long after the deadline an offer stays archivable.
const DefaultWindow = 336 * time.Hour

// WindowState describes where an offer stands relative to its archive window.
type WindowState struct {
	Open      bool          `json:"open"`
	ClosesAt  time.Time     `json:"closesAt"`
	Remaining time.Duration `json:"-"`
}

// Window computes the archive window for an offer that left the active
// status. The window is anchored on the deadline and spans the given length;
// recording the final outcome late does not stretch it.
func Window(offer *models.Offer, now time.Time, length time.Duration) (WindowState, error) {
	if offer.Status == models.OfferActive {
		return WindowState{}, models.ErrNotClosed
	}
	closesAt := offer.Deadline.Add(length)
	remaining := closesAt.Sub(now)
	return WindowState{
		Open:      remaining > 0,
		ClosesAt:  closesAt,
		Remaining: remaining,
	}, nil
}

// CanArchive reports whether an archive run is permitted right now.
func CanArchive(offer *models.Offer, now time.Time, length time.Duration) error {
	state, err := Window(offer, now, length)
	if err != nil {
		return err
	}
	if !state.Open {
		return models.ErrArchiveClosed
	}
	return nil
}

// Store is the storage surface of an archive run. MarkApplicationsArchived
// must stamp only applications not archived before and report how many rows
// it touched.
type Store interface {
	ListApplications(ctx context.Context, offerId string) ([]*models.Application, error)
	MarkApplicationsArchived(ctx context.Context, offerId string, at time.Time) (int, error)
}

// FileOpener reads stored uploads by their storage path.
type FileOpener interface {
	Open(path string) (io.ReadCloser, error)
}

type Archiver struct {
	store  Store
	files  FileOpener
	dir    string
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

func NewArchiver(store Store, files FileOpener, dir string, window time.Duration, now func() time.Time, log zerolog.Logger) *Archiver {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Archiver{
		store:  store,
		files:  files,
		dir:    dir,
		window: window,
		now:    now,
		log:    log.With().Str("component", "archiver").Logger(),
	}
}

// Result summarizes one archive run.
type Result struct {
	Path         string `json:"path"`
	Applications int    `json:"applications"`
	NewlyMarked  int    `json:"newlyMarked"`
}

// ArchiveOffer bundles every application of a closed offer into a fresh zip
// file under the archive directory and stamps the not yet archived rows.
func (a *Archiver) ArchiveOffer(ctx context.Context, offer *models.Offer) (*Result, error) {
	now := a.now()
	if err := CanArchive(offer, now, a.window); err != nil {
		return nil, err
	}

	apps, err := a.store.ListApplications(ctx, offer.Id)
	if err != nil {
		return nil, fmt.Errorf("archive.Archiver.ArchiveOffer: %w", err)
	}

	name := fmt.Sprintf("%s_%s.zip", sanitize(offer.Reference), uuid.NewString())
	path := filepath.Join(a.dir, name)
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive.Archiver.ArchiveOffer: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("archive.Archiver.ArchiveOffer: %w", err)
	}
	defer f.Close()

	if err := WriteBundle(ctx, f, a.files, offer, apps); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("archive.Archiver.ArchiveOffer: %w", err)
	}

	marked, err := a.store.MarkApplicationsArchived(ctx, offer.Id, now)
	if err != nil {
		return nil, fmt.Errorf("archive.Archiver.ArchiveOffer: %w", err)
	}

	a.log.Info().Str("offer_id", offer.Id).Str("path", path).
		Int("applications", len(apps)).Int("newly_marked", marked).
		Msg("offer archived")
	return &Result{Path: path, Applications: len(apps), NewlyMarked: marked}, nil
}

// WriteBundle streams the zip layout: one folder per applicant under the
// offer's folder, holding the uploaded files plus a generated
// candidate_info.txt. Files missing from storage are noted in the info sheet
// instead of failing the run.
func WriteBundle(ctx context.Context, w io.Writer, files FileOpener, offer *models.Offer, apps []*models.Application) error {
	zw := zip.NewWriter(w)
	root := sanitize(offer.Title)

	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return err
		}
		folder := fmt.Sprintf("%s/%s", root, sanitize(app.FullName))
		var missing []string

		for _, doc := range app.Documents {
			src, err := files.Open(doc.Path)
			if err != nil {
				missing = append(missing, doc.Filename)
				continue
			}
			entry, err := zw.Create(fmt.Sprintf("%s/%s", folder, doc.Filename))
			if err != nil {
				src.Close()
				return err
			}
			_, err = io.Copy(entry, src)
			src.Close()
			if err != nil {
				return err
			}
		}

		info, err := zw.Create(fmt.Sprintf("%s/candidate_info.txt", folder))
		if err != nil {
			return err
		}
		if err := writeCandidateInfo(info, app, missing); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeCandidateInfo(w io.Writer, app *models.Application, missing []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Full name: %s\n", app.FullName)
	fmt.Fprintf(&b, "Email: %s\n", app.Email)
	fmt.Fprintf(&b, "Phone: %s\n", app.Phone)
	fmt.Fprintf(&b, "Submitted: %s\n", app.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Documents: %d\n", len(app.Documents))
	for _, doc := range app.Documents {
		fmt.Fprintf(&b, "  - %s (%s)\n", doc.Filename, doc.Key)
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, "Missing from storage: %s\n", strings.Join(missing, ", "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

var pathReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

func sanitize(s string) string {
	s = strings.TrimSpace(pathReplacer.Replace(s))
	if s == "" {
		return "unnamed"
	}
	return s
}
