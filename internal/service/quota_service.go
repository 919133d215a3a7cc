package service

import (
	"context"
	"fmt"

	"raindrive/internal/domain"
)

const (
	// DefaultQuotaBytes is the per-user storage ceiling.
	DefaultQuotaBytes = 1 << 30 // 1 GiB
	// DefaultMaxFileBytes is the single-upload cap, checked before the
	// aggregate ceiling.
	DefaultMaxFileBytes = 10 << 20 // 10 MiB
)

type usageSource interface {
	Usage(ctx context.Context, ownerID string) (int64, error)
}

// QuotaService computes usage on demand from live file rows and gates
// upload admission. Admission is check-then-act, not a reservation:
// concurrent uploads can race past the check before either row lands,
// which is accepted for this system's single-user usage pattern.
type QuotaService struct {
	files        usageSource
	quotaBytes   int64
	maxFileBytes int64
}

func NewQuotaService(files usageSource, quotaBytes, maxFileBytes int64) *QuotaService {
	if quotaBytes <= 0 {
		quotaBytes = DefaultQuotaBytes
	}
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	return &QuotaService{files: files, quotaBytes: quotaBytes, maxFileBytes: maxFileBytes}
}

func (s *QuotaService) Usage(ctx context.Context, ownerID string) (int64, error) {
	return s.files.Usage(ctx, ownerID)
}

// Admit decides whether an incoming upload of the given size may proceed.
func (s *QuotaService) Admit(ctx context.Context, ownerID string, incomingBytes int64) error {
	if incomingBytes < 0 {
		return fmt.Errorf("%w: negative size", domain.ErrInvalidOperation)
	}
	if incomingBytes > s.maxFileBytes {
		return domain.ErrFileTooLarge
	}

	used, err := s.files.Usage(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to compute usage: %w", err)
	}
	if used+incomingBytes > s.quotaBytes {
		return domain.ErrQuotaExceeded
	}

	return nil
}

func (s *QuotaService) Info(ctx context.Context, ownerID string) (*domain.QuotaInfo, error) {
	used, err := s.files.Usage(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &domain.QuotaInfo{
		TotalSpace:     s.quotaBytes,
		UsedSpace:      used,
		AvailableSpace: s.quotaBytes - used,
		UsagePercent:   float64(used) / float64(s.quotaBytes) * 100,
	}, nil
}
