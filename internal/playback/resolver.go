// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"context"
	"fmt"

	"github.com/ManuGH/jellyplay/internal/core/urlutil"
	"github.com/ManuGH/jellyplay/internal/jellyfin"
	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/ManuGH/jellyplay/internal/metrics"
	"github.com/ManuGH/jellyplay/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Catalog negotiates the candidate sources for an item.
type Catalog interface {
	FetchPlaybackInfo(ctx context.Context, itemID string) (PlaybackInfoResult, error)
}

// Resolver runs negotiation, selection and URL construction for one session.
type Resolver struct {
	catalog Catalog
	session jellyfin.Session
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// NewResolver creates a resolver. session supplies the base URL, token and
// device id embedded into stream URLs.
func NewResolver(catalog Catalog, session jellyfin.Session) *Resolver {
	return &Resolver{
		catalog: catalog,
		session: session,
		tracer:  telemetry.Tracer("jellyplay/playback"),
		logger:  xglog.WithComponent("playback"),
	}
}

// Resolve negotiates with the server and returns a playable target. A failed
// negotiation is returned as is (no retry); UserMessage renders it.
func (r *Resolver) Resolve(ctx context.Context, itemID string) (Target, error) {
	ctx, span := r.tracer.Start(ctx, "playback.resolve",
		trace.WithAttributes(attribute.String(telemetry.ItemIDKey, itemID)))
	defer span.End()

	logger := xglog.WithContext(xglog.ContextWithItemID(ctx, itemID), r.logger)

	info, err := r.catalog.FetchPlaybackInfo(ctx, itemID)
	if err != nil {
		outcome := Classify(err)
		metrics.RecordResolve(TierNone.String(), outcome)
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(outcome)...)
		span.SetStatus(codes.Error, outcome)
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "playback.resolve.negotiation_failed").
			Msg("playback negotiation failed")
		return Target{}, fmt.Errorf("resolve item %s: %w", itemID, err)
	}

	target, err := ResolveTarget(itemID, info, r.session)
	if err != nil {
		metrics.RecordResolve(TierNone.String(), Classify(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, Classify(err))
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "playback.resolve.exhausted").
			Int("sources", len(info.Sources)).
			Msg("no tier produced a stream url")
		return Target{}, err
	}

	metrics.RecordResolve(target.Tier.String(), "success")
	span.SetAttributes(telemetry.ResolveAttributes(itemID, target.Tier.String(), string(target.PlayMethod), len(info.Sources))...)

	var event *zerolog.Event
	if target.Tier == TierManualHLS {
		event = logger.Warn().Str(xglog.FieldEvent, "playback.resolve.fallback")
	} else {
		event = logger.Info().Str(xglog.FieldEvent, "playback.resolve.direct")
	}
	event.
		Str(xglog.FieldTier, target.Tier.String()).
		Str(xglog.FieldPlayMethod, string(target.PlayMethod)).
		Str(xglog.FieldSessionID, target.SessionID).
		Str(xglog.FieldURL, urlutil.SanitizeURL(target.String())).
		Msg("stream resolved")
	return target, nil
}

// ResolveTarget applies selection and URL construction to a negotiation
// result: a selected source's direct URL when one can be built, else the
// manual HLS URL, else ErrNoPlayableSource.
func ResolveTarget(itemID string, info PlaybackInfoResult, s jellyfin.Session) (Target, error) {
	if src, tier, ok := SelectBestSource(info.Sources); ok {
		if u, ok := BuildDirectURL(src, s); ok {
			sessionID := info.PlaySessionID
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			sourceID := src.ID
			if sourceID == "" {
				sourceID = itemID
			}
			var raw string
			if isAbsoluteHTTP(src.Path) {
				raw = src.Path
			}
			return Target{
				URL:           u,
				Raw:           raw,
				ItemID:        itemID,
				SessionID:     sessionID,
				MediaSourceID: sourceID,
				PlayMethod:    tier.PlayMethod(),
				Tier:          tier,
				RunTimeTicks:  src.RunTimeTicks,
			}, nil
		}
	}

	u, ok := BuildManualHLSURL(itemID, s)
	if !ok {
		return Target{}, fmt.Errorf("resolve item %s: %w", itemID, ErrNoPlayableSource)
	}
	var runtime int64
	if len(info.Sources) > 0 {
		runtime = info.Sources[0].RunTimeTicks
	}
	return Target{
		URL:           u,
		ItemID:        itemID,
		SessionID:     u.Query().Get(ParamPlaySessionID),
		MediaSourceID: itemID,
		PlayMethod:    PlayMethodTranscode,
		Tier:          TierManualHLS,
		RunTimeTicks:  runtime,
	}, nil
}
