package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/devrantukan/spinning-tenant-be-sub001/app/models"
	"github.com/devrantukan/spinning-tenant-be-sub001/app/repository"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/backend"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/mail"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/passcode"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/pricing"
	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/storage"
)

const friendPassQRSize = 240

var ErrNoDocument = errors.New("receipt has no rendered document")

// IssueInput is everything a receipt shows.
type IssueInput struct {
	Redemption   pricing.PackageRedemption
	Package      pricing.Package
	Coupon       *pricing.Coupon
	Member       backend.Member
	Organization backend.Organization
	Locale       string
}

type Service struct {
	repo     repository.ReceiptRepository
	mailer   mail.Sender
	store    storage.Uploader
	renderer *Renderer
	qrSecret string
	now      func() time.Time
}

func NewService(repo repository.ReceiptRepository, mailer mail.Sender, store storage.Uploader, renderer *Renderer, qrSecret string) *Service {
	return &Service{
		repo:     repo,
		mailer:   mailer,
		store:    store,
		renderer: renderer,
		qrSecret: qrSecret,
		now:      time.Now,
	}
}

// NewNumber returns a human readable receipt number such as S8-20250520-1A2B3C4D.
func NewNumber(at time.Time) string {
	return fmt.Sprintf("S8-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(uuid.New().String()[:8]))
}

// Issue renders, archives, persists and e-mails a receipt. Archive and mail
// failures are recorded on the row; only render and persistence failures
// are returned.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*models.Receipt, error) {
	now := s.now()
	number := NewNumber(now)
	red := in.Redemption

	var qr []byte
	if red.FriendPassAvailable && s.qrSecret != "" {
		png, err := passcode.FriendPassPNG(red.ID, s.qrSecret, friendPassQRSize)
		if err != nil {
			log.Warnf("[Receipt] friend pass QR for %s failed: %v", red.ID, err)
		} else {
			qr = png
		}
	}

	doc, err := s.renderer.Render(in, number, now, qr)
	if err != nil {
		return nil, err
	}

	rec := &models.Receipt{
		ID:             uuid.New().String(),
		Number:         number,
		RedemptionID:   red.ID,
		OrganizationID: in.Organization.ID,
		MemberID:       red.MemberID,
		MemberEmail:    in.Member.Email,
		MemberName:     in.Member.DisplayName(),
		PackageName:    pricing.GetPackageDisplayName(in.Package, in.Locale),
		RedemptionType: string(red.RedemptionType),
		Currency:       pricing.NormalizeCurrency(in.Organization.Currency),
		OriginalPrice:  red.OriginalPrice,
		DiscountAmount: red.DiscountAmount,
		FinalPrice:     red.FinalPrice,
		CreditsAdded:   red.CreditsAdded,
		Subject:        Subject(number, in.Organization.Name, in.Locale),
		HTML:           doc,
		EmailStatus:    models.ReceiptEmailPending,
	}
	if in.Coupon != nil {
		rec.CouponCode = in.Coupon.Code
	}

	s.archive(ctx, rec, now)

	if err := s.repo.Create(rec); err != nil {
		return nil, fmt.Errorf("save receipt: %w", err)
	}

	s.deliver(ctx, rec)
	if err := s.repo.Update(rec); err != nil {
		return rec, fmt.Errorf("update receipt %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *Service) archive(ctx context.Context, rec *models.Receipt, at time.Time) {
	key := storage.ReceiptKey(rec.ID, at)
	up, err := s.store.Upload(ctx, key, strings.NewReader(rec.HTML), "text/html; charset=utf-8")
	if errors.Is(err, storage.ErrDisabled) {
		return
	}
	if err != nil {
		log.Errorf("[Receipt] archive %s failed: %v", rec.Number, err)
		rec.LastError = err.Error()
		return
	}
	rec.StorageKey = up.Key
	rec.StorageURL = up.URL
}

func (s *Service) deliver(ctx context.Context, rec *models.Receipt) {
	if rec.MemberEmail == "" {
		rec.EmailStatus = models.ReceiptEmailSkipped
		return
	}

	retry := rec.EmailStatus == models.ReceiptEmailFailed
	rec.EmailAttempts++
	rec.EmailProvider = s.mailer.Name()
	res, err := s.mailer.Send(ctx, mail.Message{
		To:      []string{rec.MemberEmail},
		Subject: rec.Subject,
		HTML:    rec.HTML,
	})
	if err != nil {
		log.Errorf("[Receipt] e-mail %s to %s failed: %v", rec.Number, rec.MemberEmail, err)
		rec.EmailStatus = models.ReceiptEmailFailed
		rec.LastError = err.Error()
		return
	}

	sentAt := res.SentAt
	rec.EmailStatus = models.ReceiptEmailSent
	rec.EmailMessageID = res.MessageID
	rec.SentAt = &sentAt
	if retry {
		rec.LastError = ""
	}
	log.Infof("[Receipt] %s sent to %s", rec.Number, rec.MemberEmail)
}

// Resend e-mails an existing receipt again.
func (s *Service) Resend(ctx context.Context, id string) (*models.Receipt, error) {
	rec, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rec.HTML == "" {
		return nil, ErrNoDocument
	}
	s.deliver(ctx, rec)
	if err := s.repo.Update(rec); err != nil {
		return nil, fmt.Errorf("update receipt %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *Service) Get(id string) (*models.Receipt, error) {
	return s.repo.GetByID(id)
}

func (s *Service) List(organizationID string, offset, limit int) ([]models.Receipt, int64, error) {
	return s.repo.ListByOrganization(organizationID, offset, limit)
}

func (s *Service) ListByRedemption(redemptionID string) ([]models.Receipt, error) {
	return s.repo.ListByRedemptionID(redemptionID)
}

// RetryFailed resends up to limit receipts whose e-mail failed, skipping
// those that already used maxAttempts. It returns how many were sent.
func (s *Service) RetryFailed(ctx context.Context, maxAttempts, limit int) (int, error) {
	failed, err := s.repo.ListFailedEmails(maxAttempts, limit)
	if err != nil {
		return 0, fmt.Errorf("list failed receipts: %w", err)
	}

	sent := 0
	for i := range failed {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		rec := &failed[i]
		s.deliver(ctx, rec)
		if err := s.repo.Update(rec); err != nil {
			log.Errorf("[Receipt] update %s after retry failed: %v", rec.Number, err)
			continue
		}
		if rec.EmailStatus == models.ReceiptEmailSent {
			sent++
		}
	}
	return sent, nil
}
