// Package sharing issues share links for snippets and decides, for every
// anonymous access attempt, whether the link still grants access.
package sharing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/scratchdata/sharelinks/pkg/config"
	"github.com/scratchdata/sharelinks/pkg/resources"
	"github.com/scratchdata/sharelinks/pkg/sharing/credential"
	"github.com/scratchdata/sharelinks/pkg/sharing/ledger"
	"github.com/scratchdata/sharelinks/pkg/sharing/policy"
	"github.com/scratchdata/sharelinks/pkg/sharing/ratelimit"
	"github.com/scratchdata/sharelinks/pkg/sharing/token"
	"github.com/scratchdata/sharelinks/pkg/storage/database"
	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
)

var resolves = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "share_link_resolves_total",
	Help: "Share link resolve attempts by outcome and failure reason",
}, []string{"outcome", "reason"})

var errTokenExhausted = errors.New("unable to mint a unique token")

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

type TokenCodec interface {
	Generate() (string, error)
	IsWellFormed(s string) bool
}

type CreateRequest struct {
	UserID     string
	ResourceID string
	Permission models.Permission

	ExpiresAt      *time.Time
	MaxAccessCount int64

	PasswordProtected bool
	Password          string

	Description *string
}

type Created struct {
	Link  models.ShareLink
	Token string

	ShareURL string
	// Text to encode in a QR code for the link.
	QRPayload string
}

type ResolveRequest struct {
	Token string
	// Nil when no password was supplied.
	Password *string

	SourceAddress string
	UserAgent     string
	Referrer      string
	SessionID     string

	// The caller wants the raw content as a file rather than the shared view.
	Download bool
}

type Resolution struct {
	LinkID     string
	ResourceID string
	Resource   json.RawMessage
	Permission models.Permission
}

type Service struct {
	db        database.Database
	resources resources.Store

	codec     TokenCodec
	verifier  credential.Verifier
	evaluator *policy.Evaluator
	limiter   *ratelimit.Limiter

	now func() time.Time

	baseURL              string
	storageTimeout       time.Duration
	tokenAttempts        int
	statsBucket          time.Duration
	maxDescriptionLength int
}

func NewService(c config.ShareLinksConfig, db database.Database, store resources.Store, counters ratelimit.Store) *Service {
	verifier := credential.NewBcrypt(c.Sharing.BcryptCost)

	return &Service{
		db:        db,
		resources: store,

		codec:     token.New(),
		verifier:  verifier,
		evaluator: policy.NewEvaluator(verifier),
		limiter:   ratelimit.New(counters, c.RateLimit.MaxAttempts, c.RateLimit.Window),

		now: func() time.Time { return time.Now().UTC() },

		baseURL:              strings.TrimRight(c.API.BaseURL, "/"),
		storageTimeout:       c.Sharing.StorageTimeout,
		tokenAttempts:        c.Sharing.TokenAttempts,
		statsBucket:          c.Sharing.StatsBucket,
		maxDescriptionLength: c.Sharing.MaxDescriptionLength,
	}
}

func (s *Service) ShareURL(tok string) string {
	return s.baseURL + "/s/" + tok
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Created, error) {
	now := s.now().UTC()

	if fields := s.validate(req, now); len(fields) > 0 {
		return Created{}, invalidArgument(fields)
	}

	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	owner, err := s.resources.GetResourceOwner(ctx, req.ResourceID)
	if errors.Is(err, resources.ErrNotFound) {
		return Created{}, forbidden()
	}
	if err != nil {
		return Created{}, unavailable(err)
	}
	if owner != req.UserID {
		return Created{}, forbidden()
	}

	link := models.ShareLink{
		ID:             uuid.New().String(),
		ResourceID:     req.ResourceID,
		OwnerID:        req.UserID,
		Permission:     req.Permission,
		IsActive:       true,
		MaxAccessCount: req.MaxAccessCount,
		Description:    req.Description,
	}

	if req.ExpiresAt != nil {
		expiresAt := req.ExpiresAt.UTC()
		link.ExpiresAt = &expiresAt
	}

	if req.PasswordProtected {
		hash, err := s.verifier.Hash(req.Password)
		if err != nil {
			return Created{}, fmt.Errorf("sharing.Create: %w", err)
		}
		link.PasswordHash = &hash
	}

	for attempt := 1; attempt <= s.tokenAttempts; attempt++ {
		link.Token, err = s.codec.Generate()
		if err != nil {
			return Created{}, fmt.Errorf("sharing.Create: %w", err)
		}

		err = s.db.CreateShareLink(ctx, &link)
		if errors.Is(err, database.ErrDuplicateToken) {
			log.Warn().Int("attempt", attempt).Msg("Share token collision, regenerating")
			continue
		}
		if err != nil {
			return Created{}, unavailable(err)
		}

		log.Info().
			Str("share_link_id", link.ID).
			Str("resource_id", link.ResourceID).
			Str("permission", link.Permission.String()).
			Msg("Created share link")

		shareURL := s.ShareURL(link.Token)
		return Created{
			Link:      link,
			Token:     link.Token,
			ShareURL:  shareURL,
			QRPayload: shareURL,
		}, nil
	}

	return Created{}, unavailable(errTokenExhausted)
}

func (s *Service) validate(req CreateRequest, now time.Time) map[string]string {
	fields := map[string]string{}

	if req.ResourceID == "" {
		fields["resource_id"] = "is required"
	}

	if !req.Permission.Valid() {
		fields["permission"] = "must be a non-empty set of read_only, allow_copy, allow_download"
	}

	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		fields["expires_at"] = "must be in the future"
	}

	if req.MaxAccessCount < 0 {
		fields["max_access_count"] = "must not be negative"
	}

	switch {
	case req.PasswordProtected && req.Password == "":
		fields["password"] = "must not be empty"
	case req.PasswordProtected && len(req.Password) > maxPasswordBytes:
		fields["password"] = fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)
	case !req.PasswordProtected && req.Password != "":
		fields["password"] = "must not be set unless password_protected is true"
	}

	if req.Description != nil && s.maxDescriptionLength > 0 && utf8.RuneCountInString(*req.Description) > s.maxDescriptionLength {
		fields["description"] = fmt.Sprintf("must be at most %d characters", s.maxDescriptionLength)
	}

	return fields
}

// Resolve decides one access attempt. Every attempt against an existing
// link is written to the access log, whatever the outcome.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (Resolution, error) {
	if !s.codec.IsWellFormed(req.Token) {
		resolves.WithLabelValues("not_found", "").Inc()
		return Resolution{}, notFound()
	}

	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	link, err := s.db.GetShareLinkByToken(ctx, req.Token)
	if errors.Is(err, database.ErrNotFound) {
		resolves.WithLabelValues("not_found", "").Inc()
		return Resolution{}, notFound()
	}
	if err != nil {
		resolves.WithLabelValues("unavailable", "").Inc()
		return Resolution{}, unavailable(err)
	}

	now := s.now().UTC()

	limit := s.limiter.Check(req.Token, req.SourceAddress)
	if !limit.Allowed {
		s.recordFailure(ctx, link.ID, req, now, models.ReasonRateLimited)
		return Resolution{}, throttled(limit.RetryAfter)
	}

	decision := s.evaluator.Evaluate(link, now, req.Password)
	switch decision.Kind {
	case policy.PasswordRequired:
		s.recordFailure(ctx, link.ID, req, now, decision.Reason)
		return Resolution{}, passwordRequired()
	case policy.Denied:
		s.recordFailure(ctx, link.ID, req, now, decision.Reason)
		return Resolution{}, denied(decision.Reason)
	}

	if req.Download && !link.Permission.Has(models.AllowDownload) {
		s.recordFailure(ctx, link.ID, req, now, models.ReasonDownloadNotPermitted)
		return Resolution{}, denied(models.ReasonDownloadNotPermitted)
	}

	return s.grant(ctx, link, req, now)
}

// grant relies on RecordGrant's conditional update alone, so concurrent
// resolves of one link never wait on each other here.
func (s *Service) grant(ctx context.Context, link models.ShareLink, req ResolveRequest, now time.Time) (Resolution, error) {
	// Fetched before the grant so an orphaned link never consumes an access.
	resource, err := s.resources.GetResourceForShare(ctx, link.ResourceID, link.Permission)
	if errors.Is(err, resources.ErrNotFound) {
		log.Warn().Str("share_link_id", link.ID).Str("resource_id", link.ResourceID).Msg("Share link points at a missing resource")
		resolves.WithLabelValues("not_found", "").Inc()
		return Resolution{}, notFound()
	}
	if err != nil {
		resolves.WithLabelValues("unavailable", "").Inc()
		return Resolution{}, unavailable(err)
	}

	entry := newEntry(link.ID, req, now, models.Success)
	err = s.db.RecordGrant(ctx, link.ID, &entry)
	if errors.Is(err, database.ErrGrantRejected) {
		reason := s.rejectionReason(ctx, link.ID, now)
		s.recordFailure(ctx, link.ID, req, now, reason)
		return Resolution{}, denied(reason)
	}
	if err != nil {
		resolves.WithLabelValues("unavailable", "").Inc()
		return Resolution{}, unavailable(err)
	}

	resolves.WithLabelValues(string(models.Success), "").Inc()
	log.Debug().Str("share_link_id", link.ID).Msg("Granted share link access")

	return Resolution{
		LinkID:     link.ID,
		ResourceID: link.ResourceID,
		Resource:   resource,
		Permission: link.Permission,
	}, nil
}

// rejectionReason explains a lost conditional grant from the current row.
func (s *Service) rejectionReason(ctx context.Context, linkID string, now time.Time) models.FailureReason {
	current, err := s.db.GetShareLink(ctx, linkID)
	if err != nil {
		return models.ReasonLimitReached
	}

	decision := policy.EvaluateState(current, now)
	if decision.Kind == policy.Denied {
		return decision.Reason
	}
	return models.ReasonLimitReached
}

func (s *Service) recordFailure(ctx context.Context, linkID string, req ResolveRequest, now time.Time, reason models.FailureReason) {
	resolves.WithLabelValues(string(models.Failure), string(reason)).Inc()

	entry := newEntry(linkID, req, now, models.Failure)
	entry.FailureReason = &reason

	if err := s.db.AppendAccessLog(ctx, &entry); err != nil {
		log.Error().Err(err).Str("share_link_id", linkID).Str("reason", string(reason)).Msg("Unable to record failed access")
	}
}

func newEntry(linkID string, req ResolveRequest, now time.Time, outcome models.Outcome) models.AccessLogEntry {
	entry := models.AccessLogEntry{
		ID:            ulid.Make().String(),
		ShareLinkID:   linkID,
		Timestamp:     now,
		SourceAddress: truncate(req.SourceAddress, 64),
		UserAgent:     truncate(req.UserAgent, 512),
		Outcome:       outcome,
	}

	if req.SessionID != "" {
		sessionID := truncate(req.SessionID, 128)
		entry.SessionID = &sessionID
	}
	if req.Referrer != "" {
		referrer := truncate(req.Referrer, 1024)
		entry.Referrer = &referrer
	}
	return entry
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// Revoke deactivates the link for good. Revoking an inactive link succeeds
// without touching it.
func (s *Service) Revoke(ctx context.Context, id string, userID string) error {
	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	link, err := s.ownedLink(ctx, id, userID)
	if err != nil {
		return err
	}
	if !link.IsActive {
		return nil
	}

	if err := s.db.RevokeShareLink(ctx, id); err != nil {
		return unavailable(err)
	}

	log.Info().Str("share_link_id", id).Msg("Revoked share link")
	return nil
}

// Delete removes the link together with its access log.
func (s *Service) Delete(ctx context.Context, id string, userID string) error {
	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	if _, err := s.ownedLink(ctx, id, userID); err != nil {
		return err
	}

	err := s.db.DeleteShareLink(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return notFound()
	}
	if err != nil {
		return unavailable(err)
	}

	log.Info().Str("share_link_id", id).Msg("Deleted share link")
	return nil
}

// Stats aggregates the link's access log. A non-positive bucket uses the
// configured default.
func (s *Service) Stats(ctx context.Context, id string, userID string, bucket time.Duration) (ledger.Stats, error) {
	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	link, err := s.ownedLink(ctx, id, userID)
	if err != nil {
		return ledger.Stats{}, err
	}

	entries, err := s.db.ListAccessLog(ctx, id)
	if err != nil {
		return ledger.Stats{}, unavailable(err)
	}

	if bucket <= 0 {
		bucket = s.statsBucket
	}
	return ledger.Summarize(link, entries, bucket), nil
}

// List returns the user's links, optionally only those for one resource.
func (s *Service) List(ctx context.Context, userID string, resourceID string) ([]models.ShareLink, error) {
	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	links, err := s.db.ListShareLinks(ctx, userID, resourceID)
	if err != nil {
		return nil, unavailable(err)
	}
	return links, nil
}

func (s *Service) ownedLink(ctx context.Context, id string, userID string) (models.ShareLink, error) {
	link, err := s.db.GetShareLink(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.ShareLink{}, notFound()
	}
	if err != nil {
		return models.ShareLink{}, unavailable(err)
	}
	if link.OwnerID != userID {
		return models.ShareLink{}, forbidden()
	}
	return link, nil
}

func (s *Service) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storageTimeout)
}
