// Package pairing drives the session acquisition workflow: connect, issue a
// QR or numeric pairing code, wait for the account to accept the link,
// archive the credential bundle, and hand the locator back.
package pairing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pairgate/pairgate/internal/credstore"
	"github.com/pairgate/pairgate/internal/domain"
	"github.com/pairgate/pairgate/internal/registry"
	"github.com/pairgate/pairgate/internal/wa"
	"github.com/pairgate/pairgate/pkg/common"
	"github.com/pairgate/pairgate/pkg/metrics"
)

var (
	ErrNoCredentials    = errors.New("pairing: credential bundle never became ready")
	ErrArchiveUpload    = errors.New("pairing: archive upload failed")
	ErrIssueTimeout     = errors.New("pairing: timed out waiting for authentication")
	ErrDisconnected     = errors.New("pairing: connection lost")
	ErrLoggedOut        = errors.New("pairing: logged out by server")
	ErrInvalidSessionID = errors.New("pairing: invalid session id")
)

// Mode selects how the link is issued to the account.
type Mode string

const (
	ModeQR   Mode = "qr"
	ModeCode Mode = "code"
)

// Uploader is the slice of the archive client the workflow needs.
type Uploader interface {
	Upload(ctx context.Context, data []byte, name string) (string, error)
}

// Artifact is what the HTTP caller waits for: the first QR payload or the
// formatted pairing code, or the error that ended the attempt early.
type Artifact struct {
	SessionID string
	QR        string
	Code      string
	Err       error
}

// Params describes one pairing attempt. Deliver is invoked exactly once.
type Params struct {
	SessionID string
	Mode      Mode
	Phone     string
	Deliver   func(Artifact)
}

// notifyGuide is sent to the paired account after the locator message.
const notifyGuide = "Your session has been archived. Keep the code above private; anyone holding it can restore this session."

type Service struct {
	dialer   wa.Dialer
	creds    *credstore.Store
	uploader Uploader
	registry *registry.Registry
	db       *gorm.DB
	policy   Policy
}

func NewService(dialer wa.Dialer, creds *credstore.Store, uploader Uploader, reg *registry.Registry, db *gorm.DB, policy Policy) *Service {
	return &Service{
		dialer:   dialer,
		creds:    creds,
		uploader: uploader,
		registry: reg,
		db:       db,
		policy:   policy,
	}
}

// NewSessionID mints a session identifier for a new attempt.
func NewSessionID() string {
	return common.SessionID("pg")
}

// SanitizeSessionID reduces a caller-supplied session id to its alphanumeric
// characters. Returns "" when nothing survives; ids are used as directory
// names and must never carry path syntax.
func SanitizeSessionID(raw string) string {
	var sb strings.Builder
	for _, r := range raw {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// latch guarantees the artifact callback fires at most once.
type latch struct {
	once sync.Once
	fn   func(Artifact)
}

func (l *latch) deliver(a Artifact) {
	l.once.Do(func() {
		if l.fn != nil {
			l.fn(a)
		}
	})
}

// Run executes one pairing attempt to completion. It blocks until the
// workflow reaches done or failed; callers that only need the artifact should
// run it in a goroutine and wait on Params.Deliver. Cancelling ctx aborts the
// attempt and cleans up.
func (s *Service) Run(ctx context.Context, p Params) error {
	lt := &latch{fn: p.Deliver}

	p.SessionID = SanitizeSessionID(p.SessionID)
	if p.SessionID == "" {
		lt.deliver(Artifact{Err: ErrInvalidSessionID})
		return ErrInvalidSessionID
	}
	log := zap.L().With(zap.String("session_id", p.SessionID), zap.String("mode", string(p.Mode)))

	if p.Mode == ModeCode {
		phone, err := NormalizePhone(p.Phone)
		if err != nil {
			lt.deliver(Artifact{SessionID: p.SessionID, Err: err})
			return err
		}
		p.Phone = phone
	}

	s.createRow(p)

	dir, err := s.creds.EnsureDir(p.SessionID)
	if err != nil {
		return s.fail(p.SessionID, lt, err)
	}

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			s.registry.Remove(p.SessionID)
			if err := s.creds.Destroy(p.SessionID); err != nil {
				log.Warn("cleanup failed", zap.Error(err))
			}
		})
	}

	s.setStatus(p.SessionID, domain.SessionConnecting, nil)
	sock, err := s.dialer.Dial(ctx, dir)
	if err != nil {
		cleanup()
		return s.fail(p.SessionID, lt, err)
	}
	s.registry.Put(p.SessionID, sock)

	if err := sock.Connect(); err != nil {
		sock.Disconnect()
		cleanup()
		return s.fail(p.SessionID, lt, err)
	}
	log.Info("socket connected")

	if p.Mode == ModeCode {
		if sock.Registered() {
			// the store already holds a device identity; no code is needed
			// and the caller must not wait for one
			s.setStatus(p.SessionID, domain.SessionIssued, nil)
			log.Info("credential store already registered, skipping code issuance")
			lt.deliver(Artifact{SessionID: p.SessionID})
		} else {
			code, err := sock.RequestPairingCode(ctx, p.Phone)
			if err != nil {
				sock.Disconnect()
				cleanup()
				return s.fail(p.SessionID, lt, err)
			}
			formatted := FormatPairCode(code)
			s.setStatus(p.SessionID, domain.SessionIssued, nil)
			log.Info("pairing code issued")
			lt.deliver(Artifact{SessionID: p.SessionID, Code: formatted})
		}
	}

	if err := s.awaitAuthenticated(ctx, p, sock, lt, log); err != nil {
		sock.Disconnect()
		cleanup()
		return s.fail(p.SessionID, lt, err)
	}

	// the QR may have been scanned before the caller fetched it; make sure
	// the latch is released either way
	lt.deliver(Artifact{SessionID: p.SessionID})
	s.setStatus(p.SessionID, domain.SessionAuthenticated, nil)
	s.setJID(p.SessionID, sock.SelfJID())
	log.Info("authenticated", zap.String("jid", sock.SelfJID()))

	// a terminal logout can still arrive while the bundle settles, uploads,
	// or notifies; it must abort the handoff from any of those phases
	runCtx, cancelRun := context.WithCancelCause(ctx)
	defer cancelRun(nil)
	go s.watchLoggedOut(runCtx, cancelRun, sock, log)

	locator, err := s.archiveBundle(runCtx, p.SessionID, log)
	if err == nil {
		err = runCtx.Err()
	}
	if err != nil {
		sock.Disconnect()
		cleanup()
		return s.fail(p.SessionID, lt, terminalCause(runCtx, err))
	}

	s.setStatus(p.SessionID, domain.SessionNotifying, nil)
	s.notify(runCtx, sock, locator, log)

	if err := sleepCtx(runCtx, s.policy.GraceDelay); err != nil {
		sock.Disconnect()
		cleanup()
		return s.fail(p.SessionID, lt, terminalCause(runCtx, err))
	}
	cancelRun(nil)
	sock.Disconnect()
	s.registry.Remove(p.SessionID)

	if err := s.creds.WriteMeta(p.SessionID, credstore.Meta{
		SessionID: p.SessionID,
		Locator:   locator,
		CreatedAt: time.Now(),
	}); err != nil {
		log.Warn("meta write failed", zap.Error(err))
	}
	if !s.policy.RetainOnDone {
		cleanup()
	}

	s.finishRow(p.SessionID, locator)
	metrics.IncrCounter("pairing_done")
	log.Info("pairing complete", zap.String("locator", locator))
	return nil
}

// awaitAuthenticated runs the issuance event loop: forward the first QR,
// redial on recoverable disconnects, stop on logout, timeout, or ctx cancel.
func (s *Service) awaitAuthenticated(ctx context.Context, p Params, sock wa.Socket, lt *latch, log *zap.Logger) error {
	timeout := time.NewTimer(s.policy.IssueTimeout)
	defer timeout.Stop()

	reconnects := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return ErrIssueTimeout
		case evt := <-sock.Events():
			switch evt.Kind {
			case wa.EventQR:
				if p.Mode == ModeQR {
					s.setStatus(p.SessionID, domain.SessionIssued, nil)
					lt.deliver(Artifact{SessionID: p.SessionID, QR: evt.Code})
				}
			case wa.EventAuthenticated:
				return nil
			case wa.EventDisconnected:
				if reconnects >= s.policy.ReconnectAttempts {
					return fmt.Errorf("%w after %d redials", ErrDisconnected, reconnects)
				}
				reconnects++
				log.Warn("disconnected before authentication, redialing",
					zap.Int("attempt", reconnects))
				if err := sleepCtx(ctx, s.policy.ReconnectDelay); err != nil {
					return err
				}
				if err := sock.Connect(); err != nil {
					return err
				}
			case wa.EventLoggedOut:
				return ErrLoggedOut
			}
		}
	}
}

// watchLoggedOut drains the socket event stream after authentication and
// cancels the workflow context when the server revokes the session.
func (s *Service) watchLoggedOut(ctx context.Context, cancel context.CancelCauseFunc, sock wa.Socket, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sock.Events():
			if evt.Kind == wa.EventLoggedOut {
				log.Warn("logged out during handoff")
				cancel(ErrLoggedOut)
				return
			}
		}
	}
}

// terminalCause surfaces the logout sentinel when the workflow context was
// canceled for it; any other error passes through unchanged.
func terminalCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return err
}

// archiveBundle polls the credential snapshot until it is complete, then
// uploads it with bounded fixed-delay retries.
func (s *Service) archiveBundle(ctx context.Context, sessionID string, log *zap.Logger) (string, error) {
	if err := sleepCtx(ctx, s.policy.SettleDelay); err != nil {
		return "", err
	}

	var bundle []byte
	var err error
	for i := 0; i < s.policy.SnapshotAttempts; i++ {
		if i > 0 {
			if err := sleepCtx(ctx, s.policy.SnapshotDelay); err != nil {
				return "", err
			}
		}
		bundle, err = s.creds.Snapshot(sessionID)
		if err == nil {
			break
		}
		if !errors.Is(err, credstore.ErrNotFound) && !errors.Is(err, credstore.ErrIncomplete) {
			return "", err
		}
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	log.Info("credential bundle ready", zap.Int("bytes", len(bundle)))

	s.setStatus(sessionID, domain.SessionArchiving, nil)
	var locator string
	for i := 0; i < s.policy.UploadAttempts; i++ {
		if i > 0 {
			if err := sleepCtx(ctx, s.policy.UploadDelay); err != nil {
				return "", err
			}
		}
		locator, err = s.uploader.Upload(ctx, bundle, sessionID)
		if err == nil {
			return locator, nil
		}
		log.Warn("archive upload failed", zap.Int("attempt", i+1), zap.Error(err))
	}
	return "", fmt.Errorf("%w: %v", ErrArchiveUpload, err)
}

// notify sends the locator and a usage guide to the paired account's own
// chat. Delivery is best-effort; the locator has already been secured.
func (s *Service) notify(ctx context.Context, sock wa.Socket, locator string, log *zap.Logger) {
	if err := sock.SendSelf(ctx, locator); err != nil {
		log.Warn("locator notification failed", zap.Error(err))
		return
	}
	if err := sock.SendSelf(ctx, notifyGuide); err != nil {
		log.Warn("guide notification failed", zap.Error(err))
	}
}

func (s *Service) fail(sessionID string, lt *latch, err error) error {
	s.setStatus(sessionID, domain.SessionFailed, err)
	lt.deliver(Artifact{SessionID: sessionID, Err: err})
	metrics.IncrCounter("pairing_failed")
	zap.L().Warn("pairing failed", zap.String("session_id", sessionID), zap.Error(err))
	return err
}

func (s *Service) createRow(p Params) {
	if s.db == nil {
		return
	}
	row := &domain.WaSession{
		ID:        common.UUIDint64(),
		SessionID: p.SessionID,
		Phone:     p.Phone,
		Mode:      string(p.Mode),
		Status:    domain.SessionCreated,
	}
	if err := s.db.Create(row).Error; err != nil {
		zap.L().Warn("session row create failed", zap.String("session_id", p.SessionID), zap.Error(err))
	}
}

func (s *Service) setStatus(sessionID, status string, cause error) {
	if s.db == nil {
		return
	}
	updates := map[string]interface{}{"status": status, "updated_at": time.Now()}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	if err := s.db.Model(&domain.WaSession{}).Where("session_id = ?", sessionID).Updates(updates).Error; err != nil {
		zap.L().Warn("session status update failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *Service) setJID(sessionID, jid string) {
	if s.db == nil || jid == "" {
		return
	}
	if err := s.db.Model(&domain.WaSession{}).Where("session_id = ?", sessionID).Update("jid", jid).Error; err != nil {
		zap.L().Warn("session jid update failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *Service) finishRow(sessionID, locator string) {
	if s.db == nil {
		return
	}
	updates := map[string]interface{}{
		"status":     domain.SessionDone,
		"locator":    locator,
		"updated_at": time.Now(),
	}
	if err := s.db.Model(&domain.WaSession{}).Where("session_id = ?", sessionID).Updates(updates).Error; err != nil {
		zap.L().Warn("session finish update failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
