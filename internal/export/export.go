package export

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/dogmatch/internal/events"
	"github.com/alfredjeanlab/dogmatch/internal/idgen"
	"github.com/alfredjeanlab/dogmatch/internal/model"
)

// Source provides the favorites to export.
type Source interface {
	List() []model.Dog
	Matched() *model.Dog
}

// Result describes a finished export.
type Result struct {
	ExportID    string
	Destination string
	Dogs        int
	Bytes       int
}

// Exporter snapshots favorites and writes them to a destination.
type Exporter struct {
	pub    events.Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter returns an Exporter. A nil publisher disables events.
func NewExporter(pub events.Publisher, logger *slog.Logger) *Exporter {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{pub: pub, logger: logger, now: time.Now}
}

// Run exports src to dest.
func (e *Exporter) Run(ctx context.Context, src Source, dest Destination) (Result, error) {
	id, err := idgen.New(idgen.ExportPrefix)
	if err != nil {
		return Result{}, err
	}
	snap := Snapshot{
		ExportID:  id,
		Timestamp: e.now(),
		Favorites: src.List(),
		Match:     src.Matched(),
	}

	var buf bytes.Buffer
	if err := WriteJSONL(&buf, snap); err != nil {
		return Result{}, err
	}
	if err := dest.Write(ctx, snap.ExportID, buf.Bytes()); err != nil {
		return Result{}, err
	}

	res := Result{
		ExportID:    snap.ExportID,
		Destination: dest.Describe(snap.ExportID),
		Dogs:        len(snap.Favorites),
		Bytes:       buf.Len(),
	}
	e.logger.InfoContext(ctx, "export completed", "export_id", res.ExportID, "destination", res.Destination, "dogs", res.Dogs, "bytes", res.Bytes)
	if err := e.pub.Publish(ctx, events.TopicExportWritten, events.ExportWritten{
		ExportID:    res.ExportID,
		Destination: res.Destination,
		Dogs:        res.Dogs,
	}); err != nil {
		e.logger.WarnContext(ctx, "publishing event", "topic", events.TopicExportWritten, "err", err)
	}
	return res, nil
}
