package pairing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pairgate/pairgate/internal/domain"
	"github.com/pairgate/pairgate/internal/wa"
)

var ErrSessionNotFound = errors.New("pairing: session not found")

// Load re-establishes a retained session: dial over the stored credential
// directory, connect, and register the live socket. A session that is already
// registered is left alone.
func (s *Service) Load(ctx context.Context, sessionID string) error {
	sessionID = SanitizeSessionID(sessionID)
	if sessionID == "" {
		return ErrSessionNotFound
	}
	if _, ok := s.registry.Get(sessionID); ok {
		return nil
	}
	if !s.creds.Exists(sessionID) {
		return ErrSessionNotFound
	}

	sock, err := s.dialer.Dial(ctx, s.creds.Dir(sessionID))
	if err != nil {
		return err
	}
	if !sock.Registered() {
		return fmt.Errorf("%w: no device identity in credential store", ErrSessionNotFound)
	}
	if err := sock.Connect(); err != nil {
		return err
	}
	s.registry.Put(sessionID, sock)
	zap.L().Info("session loaded", zap.String("session_id", sessionID))

	go s.supervise(ctx, sessionID, sock)
	return nil
}

// supervise watches a loaded session: redial with fixed delay on recoverable
// disconnects, tear everything down on logout.
func (s *Service) supervise(ctx context.Context, sessionID string, sock wa.Socket) {
	log := zap.L().With(zap.String("session_id", sessionID))
	reconnects := 0
	for {
		select {
		case <-ctx.Done():
			sock.Disconnect()
			s.registry.Remove(sessionID)
			return
		case evt := <-sock.Events():
			switch evt.Kind {
			case wa.EventAuthenticated:
				reconnects = 0
			case wa.EventDisconnected:
				if reconnects >= s.policy.ReconnectAttempts {
					log.Warn("loaded session gave up reconnecting", zap.Int("attempts", reconnects))
					s.registry.Remove(sessionID)
					return
				}
				reconnects++
				log.Warn("loaded session disconnected, redialing", zap.Int("attempt", reconnects))
				if err := sleepCtx(ctx, s.policy.ReconnectDelay); err != nil {
					s.registry.Remove(sessionID)
					return
				}
				if err := sock.Connect(); err != nil {
					log.Warn("loaded session reconnect failed", zap.Error(err))
					s.registry.Remove(sessionID)
					return
				}
			case wa.EventLoggedOut:
				log.Warn("loaded session logged out, destroying credentials")
				s.registry.Remove(sessionID)
				if err := s.creds.Destroy(sessionID); err != nil {
					log.Warn("credential destroy failed", zap.Error(err))
				}
				s.setStatus(sessionID, domain.SessionFailed, errors.New("logged out"))
				return
			}
		}
	}
}
