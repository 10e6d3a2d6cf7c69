// pairgate-cli pairs a WhatsApp account from the terminal without the HTTP
// service: it prints the QR (or requests a numeric code) and leaves the
// credential bundle in the session directory for inspection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/mdp/qrterminal/v3"

	"github.com/pairgate/pairgate/internal/credstore"
	"github.com/pairgate/pairgate/internal/pairing"
	"github.com/pairgate/pairgate/internal/wa"
)

var (
	workdir = flag.String("workdir", ".", "directory holding session credential stores")
	phone   = flag.String("phone", "", "request a numeric pairing code for this number instead of a QR")
	session = flag.String("session", "", "session id (default: generated)")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	creds := credstore.New(*workdir)
	sessionID := pairing.SanitizeSessionID(*session)
	if sessionID == "" {
		sessionID = pairing.NewSessionID()
	}
	dir, err := creds.EnsureDir(sessionID)
	if err != nil {
		fatal(err)
	}

	sock, err := wa.NewDialer().Dial(ctx, dir)
	if err != nil {
		fatal(err)
	}
	if err := sock.Connect(); err != nil {
		fatal(err)
	}
	defer sock.Disconnect()

	if *phone != "" && !sock.Registered() {
		number, err := pairing.NormalizePhone(*phone)
		if err != nil {
			fatal(err)
		}
		code, err := sock.RequestPairingCode(ctx, number)
		if err != nil {
			fatal(err)
		}
		fmt.Println("Pairing code:", pairing.FormatPairCode(code))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sock.Events():
			switch evt.Kind {
			case wa.EventQR:
				if *phone == "" {
					fmt.Println("Scan with WhatsApp:")
					qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
				}
			case wa.EventAuthenticated:
				fmt.Println("Paired. JID:", sock.SelfJID())
				fmt.Println("Credentials:", dir)
				return
			case wa.EventLoggedOut:
				fmt.Println("Logged out by server")
				_ = creds.Destroy(sessionID)
				return
			}
		}
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
