package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"skillxchange/client"
	"skillxchange/domain"
	"skillxchange/domain/event"
	grpcclient "skillxchange/infrastructure/grpc/client"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:9090"`
	HTTPAddress   string `env:"CHAT_HTTP_ADDR,default=http://localhost:8080"`
	User          string `env:"CHAT_USER,required=true"`
	Token         string `env:"CHAT_TOKEN,required=true"`
	Peer          string `env:"CHAT_PEER,required=true"`
	HistoryLimit  int    `env:"CHAT_HISTORY_LIMIT,default=20"`
	LogLevel      string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run opens a conversation with CHAT_PEER and sends every line read on stdin.
// "/read" marks the conversation as read, "/quit" leaves.
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := grpcclient.Dial(config.ServerAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() { _ = conn.Close() }()

	stream, err := grpcclient.Connect(ctx, conn, config.Token)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open stream: %w", err)
	}

	history := client.NewHistoryClient(config.HTTPAddress, config.Token, nil)
	session := client.NewSession(log, stream, client.NewReconciler(config.User), 64)

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	if err := session.Open(ctx, history, config.Peer, config.HistoryLimit); err != nil {
		return exitRuntime, fmt.Errorf("failed to load history: %w", err)
	}
	for _, entry := range session.Reconciler().Visible() {
		printMessage(config.Peer, entry.Message)
	}
	color.Gray.Printf(">>> Talking with %s (/read, /quit)\n", config.Peer)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = session.Close()
			return exitOK, nil
		case err := <-done:
			if err != nil {
				return exitRuntime, err
			}
			return exitOK, nil
		case e, ok := <-session.Events():
			if ok {
				render(config.Peer, e)
			}
		case line, ok := <-lines:
			line = strings.TrimSpace(line)
			switch {
			case !ok || line == "/quit":
				_ = session.Close()
				return exitOK, nil
			case line == "":
			case line == "/read":
				if err := session.MarkAsRead(); err != nil {
					color.Red.Printf("read failed: %v\n", err)
				}
			default:
				if _, err := session.Send(line); err != nil {
					color.Red.Printf("send failed: %v\n", err)
				}
			}
		}
	}
}

func render(peer string, e event.Event) {
	switch e := e.(type) {
	case event.NewMessage:
		if e.SenderID == peer {
			printMessage(peer, e.Message)
		} else {
			color.Yellow.Printf("new message from %s\n", e.SenderID)
		}
	case event.MessageSent:
		printMessage(peer, e.Message)
	case event.MessageFailed:
		color.Red.Printf("message not sent: %s\n", e.Error)
	case event.MessagesRead:
		color.Gray.Printf("%s read your messages\n", e.ConversationID)
	case event.UserStatus:
		state := "offline"
		if e.Online {
			state = "online"
		}
		color.Gray.Printf("%s is %s\n", e.UserID, state)
	case event.ConnectionRejected:
		color.Red.Printf("connection rejected: %s\n", e.Reason)
	}
}

func printMessage(peer string, m domain.Message) {
	at := m.CreatedAt.Local().Format(time.TimeOnly)
	if m.SenderID == peer {
		color.Cyan.Printf("[%s] %s: %s\n", at, m.SenderID, m.Text)
		return
	}
	color.Green.Printf("[%s] me: %s (%s)\n", at, m.Text, m.Status)
}
