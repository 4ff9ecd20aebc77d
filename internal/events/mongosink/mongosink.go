// Package mongosink is an optional durable EventSink that records load
// lifecycle events to MongoDB for later audit/debugging, instead of the
// in-memory fan-out internal/events.Dispatcher provides.
package mongosink

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"hlssource/internal/domain/ports"
)

// eventDoc is the single document shape every event kind is flattened
// into; Kind discriminates and unused fields are omitted on write.
type eventDoc struct {
	Kind        string  `bson:"kind"`
	Source      string  `bson:"source"`
	ChunkType   string  `bson:"chunkType,omitempty"`
	Trigger     string  `bson:"trigger,omitempty"`
	FormatID    string  `bson:"formatId,omitempty"`
	StartTimeUs int64   `bson:"startTimeUs,omitempty"`
	EndTimeUs   int64   `bson:"endTimeUs,omitempty"`
	BytesLoaded int64   `bson:"bytesLoaded,omitempty"`
	DurationMs  int64   `bson:"durationMs,omitempty"`
	RetryCount  int     `bson:"retryCount,omitempty"`
	Error       string  `bson:"error,omitempty"`
	Handled     bool    `bson:"handled,omitempty"`
	RecordedAt  int64   `bson:"recordedAt"`
}

// Sink writes LoadEvents to a single Mongo collection. It is an
// EventSink, meant to be registered alongside (not instead of) an
// in-process Dispatcher: audit trail, not control flow.
type Sink struct {
	collection *mongo.Collection
	timeout    time.Duration
	logger     Logger
}

// Logger is the minimal surface Sink needs for reporting write
// failures, satisfied by *slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Connect dials Mongo with otelmongo command monitoring wired in so
// driver calls show up on the process's trace provider.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri).SetMonitor(otelmongo.NewMonitor())
	return mongo.Connect(ctx, opts)
}

// New builds a Sink over the given database/collection. Pass a nil
// logger to discard write-failure diagnostics.
func New(client *mongo.Client, dbName, collectionName string, logger Logger) *Sink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Sink{
		collection: client.Database(dbName).Collection(collectionName),
		timeout:    5 * time.Second,
		logger:     logger,
	}
}

// EnsureIndexes creates the indexes an audit trail is queried by: per
// source, newest first.
func (s *Sink) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "source", Value: 1}, {Key: "recordedAt", Value: -1}}},
		{Keys: bson.D{{Key: "kind", Value: 1}}},
	}
	_, err := s.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (s *Sink) insert(doc eventDoc) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		s.logger.Error("mongosink: insert failed", "kind", doc.Kind, "err", err)
	}
}

func (s *Sink) OnLoadStarted(evt ports.LoadStartedEvent) {
	s.insert(eventDoc{
		Kind:        "load_started",
		Source:      string(evt.Source),
		ChunkType:   evt.ChunkType.String(),
		Trigger:     evt.Trigger.String(),
		FormatID:    evt.Format.ID,
		StartTimeUs: int64(evt.StartTimeUs),
		EndTimeUs:   int64(evt.EndTimeUs),
		RecordedAt:  time.Now().UTC().UnixMilli(),
	})
}

func (s *Sink) OnLoadCompleted(evt ports.LoadCompletedEvent) {
	s.insert(eventDoc{
		Kind:        "load_completed",
		Source:      string(evt.Source),
		ChunkType:   evt.ChunkType.String(),
		BytesLoaded: evt.BytesLoaded,
		DurationMs:  evt.DurationMs,
		RecordedAt:  time.Now().UTC().UnixMilli(),
	})
}

func (s *Sink) OnLoadCanceled(evt ports.LoadCanceledEvent) {
	s.insert(eventDoc{
		Kind:        "load_canceled",
		Source:      string(evt.Source),
		ChunkType:   evt.ChunkType.String(),
		BytesLoaded: evt.BytesLoaded,
		RecordedAt:  time.Now().UTC().UnixMilli(),
	})
}

func (s *Sink) OnLoadError(evt ports.LoadErrorEvent) {
	errText := ""
	if evt.Error != nil {
		errText = evt.Error.Error()
	}
	s.insert(eventDoc{
		Kind:        "load_error",
		Source:      string(evt.Source),
		ChunkType:   evt.ChunkType.String(),
		Error:       errText,
		RetryCount:  evt.RetryCount,
		Handled:     evt.Handled,
		RecordedAt:  time.Now().UTC().UnixMilli(),
	})
}

func (s *Sink) OnDownstreamFormatChanged(evt ports.DownstreamFormatChangedEvent) {
	s.insert(eventDoc{
		Kind:       "format_changed",
		Source:     string(evt.Source),
		FormatID:   evt.Format.ID,
		RecordedAt: time.Now().UTC().UnixMilli(),
	})
}

var _ ports.EventSink = (*Sink)(nil)
