package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/intentflow/backend/internal/apperror"
	"github.com/intentflow/backend/internal/auth"
	"github.com/intentflow/backend/internal/repository"
)

// Version is the current product release.
const Version = "2.4.1"

// platformURLs is the allow-list of download platforms and their release
// artifacts. A platform outside this map is rejected before anything is
// mutated.
var platformURLs = map[string]string{
	"windows": "https://releases.intentflow.com/IntentFlow-2.4.1-windows.exe",
	"macos":   "https://releases.intentflow.com/IntentFlow-2.4.1-macos.dmg",
	"linux":   "https://releases.intentflow.com/IntentFlow-2.4.1-linux.deb",
	"chrome":  "https://chrome.google.com/webstore/detail/intentflow/abc123",
	"firefox": "https://addons.mozilla.org/addon/intentflow/",
}

// DownloadService issues time-boxed download links.
//
// The link returned to the client points back at this service's
// /download/file endpoint with a signed download token; Redeem verifies the
// token before revealing the release URL, so an expired or tampered link
// really does stop working.
type DownloadService struct {
	users   repository.UserRepository
	tokens  *auth.TokenService
	baseURL string
	ttl     time.Duration
	logger  *slog.Logger
}

// NewDownloadService creates a DownloadService. baseURL is the externally
// visible origin of this server; ttl is the download-token lifetime.
func NewDownloadService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	baseURL string,
	ttl time.Duration,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		users:   users,
		tokens:  tokens,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		logger:  logger,
	}
}

// Issued is the result of a successful download issuance.
type Issued struct {
	URL       string
	ExpiresIn int
	Version   string
	Platform  string
}

// Issue validates the requested platform, records the download on the
// account (counter + last platform), and returns a tokenized link valid for
// the configured TTL.
//
// Validation happens before the store is touched: an invalid platform never
// moves the counter.
func (s *DownloadService) Issue(ctx context.Context, userID, platform string) (*Issued, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if _, ok := platformURLs[platform]; !ok {
		return nil, apperror.ValidationFailed("platform", "Invalid platform")
	}

	user, err := s.users.RecordDownload(ctx, userID, platform)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateDownload(userID, platform)
	if err != nil {
		return nil, fmt.Errorf("service/download: generating download token: %w", err)
	}

	s.logger.Info("download issued",
		slog.String("userID", userID),
		slog.String("platform", platform),
		slog.Int("downloadCount", user.DownloadCount),
	)

	return &Issued{
		URL:       s.baseURL + "/download/file?token=" + url.QueryEscape(token),
		ExpiresIn: int(s.ttl.Seconds()),
		Version:   Version,
		Platform:  platform,
	}, nil
}

// Redeem verifies a download token and returns the release URL for its
// platform. Every failure mode (expired, tampered, wrong purpose) comes
// back as the same unauthorized error.
func (s *DownloadService) Redeem(token string) (string, error) {
	grant, err := s.tokens.ValidateDownload(token)
	if err != nil {
		return "", apperror.Unauthorized("Invalid or expired download token")
	}

	releaseURL, ok := platformURLs[grant.Platform]
	if !ok {
		return "", apperror.Unauthorized("Invalid or expired download token")
	}

	s.logger.Info("download redeemed",
		slog.String("userID", grant.UserID),
		slog.String("platform", grant.Platform),
	)

	return releaseURL, nil
}
