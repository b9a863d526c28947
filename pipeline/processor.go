// Package pipeline drives a single video through its full lifecycle:
// extract the video ID, fetch metadata, register a tracking row, download
// the media, upload it to Drive and record the result.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ytvault/progress"
	"ytvault/sheets"
	"ytvault/storage"
	"ytvault/youtube"
)

// Downloader downloads a video's media to a local path.
type Downloader interface {
	Download(ctx context.Context, videoID, destPath string, onProgress progress.Func) error
}

// Uploader stores a local file remotely and returns its remote ID.
type Uploader interface {
	Upload(ctx context.Context, path, displayName string, onProgress progress.Func) (string, error)
}

// Tracker records per-video rows in the tracking spreadsheet.
type Tracker interface {
	Append(ctx context.Context, row sheets.Row) error
	Find(ctx context.Context, title string) (int64, error)
	UpdateCell(ctx context.Context, row int64, column, value string) error
	ColumnValues(ctx context.Context, column string) ([]string, error)
}

// Outcome reports how a processing attempt ended.
type Outcome int

const (
	// OutcomeProcessed means the video was downloaded and recorded.
	OutcomeProcessed Outcome = iota
	// OutcomeAlreadyExists means the video was already tracked and
	// nothing was changed.
	OutcomeAlreadyExists
)

// Options are the per-run settings the pipeline consults.
type Options struct {
	// PlaylistTag is written into every row's playlist column.
	PlaylistTag string
	// KeepFiles keeps the processed file after a successful upload.
	KeepFiles bool
	// UploadToDrive toggles the upload step.
	UploadToDrive bool
}

// Deps are the collaborators a Processor drives.
type Deps struct {
	Fetcher    youtube.MetadataFetcher
	Downloader Downloader
	Uploader   Uploader
	Tracker    Tracker
	Layout     storage.Layout
	Logger     logrus.FieldLogger
}

// Processor runs the processing pipeline for one video at a time.
type Processor struct {
	deps Deps
	opts Options
	log  logrus.FieldLogger

	// DownloadProgress and UploadProgress receive transfer fractions.
	// Nil sinks are skipped.
	DownloadProgress progress.Func
	UploadProgress   progress.Func

	// now is stubbed in tests.
	now func() time.Time
}

// NewProcessor wires a processor from its collaborators.
func NewProcessor(deps Deps, opts Options) *Processor {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{
		deps: deps,
		opts: opts,
		log:  log,
		now:  time.Now,
	}
}

// Process runs the full pipeline for one video URL or bare ID.
//
// A video whose title is already tracked is skipped without a second row,
// download or upload. Failures at any stage leave no file in the temp area.
func (p *Processor) Process(ctx context.Context, rawURL string) (Outcome, error) {
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return 0, newError(KindValidation, "extract video ID", err)
	}
	log := p.log.WithField("video_id", videoID)

	meta, err := p.deps.Fetcher.FetchMetadata(ctx, videoID)
	if err != nil {
		return 0, newError(fetchKind(err), "fetch metadata", err)
	}
	log = log.WithField("title", meta.Title)

	dup, err := p.titleCount(ctx, meta.Title)
	if err != nil {
		return 0, newError(KindTracking, "check duplicates", err)
	}
	if dup > 0 {
		log.Info("video already tracked, skipping")
		return OutcomeAlreadyExists, nil
	}

	if err := p.deps.Tracker.Append(ctx, p.pendingRow(meta)); err != nil {
		return 0, newError(KindTracking, "register row", err)
	}
	log.Info("registered tracking row")

	finalPath, err := p.download(ctx, log, meta)
	if err != nil {
		return 0, err
	}

	// A second scan catches a row appended by an overlapping run between
	// the first check and our append.
	dup, err = p.titleCount(ctx, meta.Title)
	if err != nil {
		return 0, newError(KindTracking, "check duplicates", err)
	}
	if dup > 1 {
		log.Warn("duplicate row appeared during download, skipping upload")
		if !p.opts.KeepFiles {
			p.cleanup(log, finalPath)
		}
		return OutcomeAlreadyExists, nil
	}

	if !p.opts.UploadToDrive {
		if err := p.recordResult(ctx, meta.Title, sheets.StatusCompletedLocally, finalPath); err != nil {
			return 0, err
		}
		log.WithField("path", finalPath).Info("download complete, upload disabled")
		return OutcomeProcessed, nil
	}

	fileID, err := p.deps.Uploader.Upload(ctx, finalPath, storage.MediaFilename(meta.Title, meta.ID), p.UploadProgress)
	if err != nil {
		return 0, newError(KindUpload, "upload media", err)
	}

	if err := p.recordResult(ctx, meta.Title, sheets.StatusCompleted, fileID); err != nil {
		return 0, err
	}

	if !p.opts.KeepFiles {
		p.cleanup(log, finalPath)
	}

	log.WithField("drive_file_id", fileID).Info("video processed")
	return OutcomeProcessed, nil
}

// download fetches the media into the temp area and promotes it. The temp
// file never survives a failure.
func (p *Processor) download(ctx context.Context, log logrus.FieldLogger, meta *youtube.Metadata) (string, error) {
	tempPath := p.deps.Layout.TempPath(meta.Title, meta.ID)

	if err := p.deps.Downloader.Download(ctx, meta.ID, tempPath, p.DownloadProgress); err != nil {
		p.cleanup(log, tempPath)
		return "", newError(KindDownload, "download media", err)
	}

	finalPath := p.deps.Layout.ProcessedPath(meta.Title, meta.ID)
	if err := p.deps.Layout.Promote(tempPath, finalPath); err != nil {
		p.cleanup(log, tempPath)
		kind := KindProcessing
		if errors.Is(err, storage.ErrFileEmpty) || errors.Is(err, storage.ErrFileMissing) {
			kind = KindDownload
		}
		return "", newError(kind, "promote download", err)
	}

	log.WithField("path", finalPath).Info("download complete")
	return finalPath, nil
}

// recordResult marks the video's row downloaded and records where the media
// went: the Drive file ID, or the local path when uploads are disabled.
func (p *Processor) recordResult(ctx context.Context, title, status, location string) error {
	row, err := p.deps.Tracker.Find(ctx, title)
	if err != nil {
		return newError(KindTracking, "locate row", err)
	}
	if err := p.deps.Tracker.UpdateCell(ctx, row, sheets.ColDownloadStatus, status); err != nil {
		return newError(KindTracking, "update download status", err)
	}
	if err := p.deps.Tracker.UpdateCell(ctx, row, sheets.ColDriveFileID, location); err != nil {
		return newError(KindTracking, "update file location", err)
	}
	// Upload Status stays Pending; a later publishing step owns that column.
	return nil
}

func (p *Processor) pendingRow(meta *youtube.Metadata) sheets.Row {
	return sheets.Row{
		Title:          meta.Title,
		Description:    meta.Description,
		Tags:           strings.Join(meta.Tags, ", "),
		Category:       meta.Category,
		Playlist:       p.opts.PlaylistTag,
		Thumbnail:      meta.Thumbnail,
		UploadDate:     p.now().Format("2006-01-02"),
		DownloadStatus: sheets.StatusPending,
		UploadStatus:   sheets.StatusPending,
	}
}

func (p *Processor) titleCount(ctx context.Context, title string) (int, error) {
	titles, err := p.deps.Tracker.ColumnValues(ctx, sheets.ColTitle)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range titles {
		if t == title {
			n++
		}
	}
	return n, nil
}

// cleanup removes a local media file. Removal failures are logged, never
// escalated; the pipeline result does not depend on local cleanup.
func (p *Processor) cleanup(log logrus.FieldLogger, path string) {
	if err := storage.Remove(path); err != nil {
		log.WithError(err).WithField("path", path).Warn("failed to remove local file")
	}
}

// fetchKind maps metadata fetch failures onto pipeline kinds. Content the
// pipeline refuses to handle is distinguished from transport failures.
func fetchKind(err error) Kind {
	switch {
	case errors.Is(err, youtube.ErrPlaylist),
		errors.Is(err, youtube.ErrLiveStream),
		errors.Is(err, youtube.ErrAgeRestricted):
		return KindUnsupportedContent
	default:
		return KindDownload
	}
}
