package wa

import (
	"context"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/pairgate/pairgate/internal/credstore"
)

// MeowDialer opens whatsmeow-backed sockets. Each socket owns a sqlite store
// inside its credential directory, so every key rotation the library performs
// is flushed straight into the session's bundle file.
type MeowDialer struct{}

func NewDialer() *MeowDialer {
	return &MeowDialer{}
}

func (d *MeowDialer) Dial(ctx context.Context, credDir string) (Socket, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(credDir, credstore.CredFile))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, waLog.Noop)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device storage: %w", err)
	}

	client := whatsmeow.NewClient(device, waLog.Noop)
	sock := &meowSocket{
		client: client,
		events: make(chan Event, 16),
	}
	client.AddEventHandler(sock.translate)
	return sock, nil
}

type meowSocket struct {
	client *whatsmeow.Client
	events chan Event
}

func (s *meowSocket) Registered() bool {
	return s.client.Store.ID != nil
}

func (s *meowSocket) Connect() error {
	return s.client.Connect()
}

func (s *meowSocket) Disconnect() {
	s.client.Disconnect()
}

func (s *meowSocket) Events() <-chan Event {
	return s.events
}

func (s *meowSocket) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	return s.client.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
}

func (s *meowSocket) SendSelf(ctx context.Context, text string) error {
	id := s.client.Store.ID
	if id == nil {
		return fmt.Errorf("wa: not authenticated")
	}
	msg := &waE2E.Message{Conversation: proto.String(text)}
	_, err := s.client.SendMessage(ctx, id.ToNonAD(), msg)
	return err
}

func (s *meowSocket) SelfJID() string {
	if s.client.Store.ID == nil {
		return ""
	}
	return s.client.Store.ID.String()
}

// translate maps library events onto the package event stream. QR codes are
// forwarded one at a time; everything the workflow does not care about is
// logged at debug and dropped.
func (s *meowSocket) translate(evt interface{}) {
	switch e := evt.(type) {
	case *events.QR:
		for _, code := range e.Codes {
			s.push(Event{Kind: EventQR, Code: code})
		}
	case *events.PairSuccess:
		zap.L().Info("wa: pair success", zap.String("jid", e.ID.String()))
	case *events.Connected:
		s.push(Event{Kind: EventAuthenticated})
	case *events.Disconnected:
		s.push(Event{Kind: EventDisconnected})
	case *events.LoggedOut:
		zap.L().Warn("wa: logged out", zap.Int("reason", int(e.Reason)))
		s.push(Event{Kind: EventLoggedOut})
	default:
		zap.L().Debug("wa: event ignored", zap.String("type", fmt.Sprintf("%T", evt)))
	}
}

func (s *meowSocket) push(evt Event) {
	select {
	case s.events <- evt:
	default:
		zap.L().Warn("wa: event channel full, dropping", zap.String("kind", evt.Kind.String()))
	}
}
