// Interactive terminal client for the Shiksha teacher-assistant service.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"mitra/mitra/capture"
	"mitra/mitra/config"
	"mitra/mitra/dispatch"
	"mitra/mitra/gateway"
	"mitra/mitra/session"
	"mitra/mitra/sources/sqlite"
	"mitra/mitra/utils/jsonutils"
	"mitra/mitra/utils/logging"
)

func main() {
	cfg := config.LoadConfig()
	logging.InitLogger(cfg.LogDir)

	creds := gateway.NewCredentials(cfg.StateFile)
	loggedOut := make(chan struct{}, 1)
	gw := gateway.New(cfg, creds, func() {
		// forced unauthenticated state: the REPL drops back to login
		select {
		case loggedOut <- struct{}{}:
		default:
		}
	})

	var cache session.Cache
	if cfg.CachePath != "" {
		db, err := sqlite.NewDatabase(cfg.CachePath)
		if err != nil {
			logging.ErrorLogger.Error("cache open failed", zap.Error(err))
		} else {
			cache = sqlite.NewSessionCacheDAO(db.DB)
		}
	}

	store := session.NewStore(gw, cache)
	dispatcher := dispatch.New(gw, store)

	var src capture.Source
	if cfg.MicBridgeURL != "" {
		src = capture.NewBridgeSource(cfg.MicBridgeURL, "pcm")
	} else {
		// no mic bridge configured: Start reports the device as absent
		src = capture.NewReaderSource(nil, "pcm")
	}
	recorder := capture.NewRecorder(src)

	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	fmt.Println("=== Mitra teacher assistant ===")
	for !creds.Authenticated() {
		if !login(ctx, gw, scanner) {
			return
		}
	}
	if id := creds.Identity(); id != nil {
		fmt.Printf("Logged in as %s (%s)\n", id.Name, id.Role)
	}
	fmt.Println("Type your question, or /help for commands.")
	fmt.Println()

	for {
		select {
		case <-loggedOut:
			fmt.Println("Session expired, please log in again.")
			if !login(ctx, gw, scanner) {
				return
			}
		default:
		}

		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := command(ctx, line, gw, store, dispatcher, recorder, scanner); quit {
				return
			}
			continue
		}

		ex, err := dispatcher.SendText(ctx, line)
		if err != nil {
			fmt.Println("Busy: wait for the current question to finish.")
			continue
		}
		printExchange(ex)
	}
}

func login(ctx context.Context, gw *gateway.Gateway, scanner *bufio.Scanner) bool {
	fmt.Print("email> ")
	if !scanner.Scan() {
		return false
	}
	email := strings.TrimSpace(scanner.Text())
	fmt.Print("password> ")
	if !scanner.Scan() {
		return false
	}
	password := strings.TrimSpace(scanner.Text())

	if _, err := gw.Login(ctx, email, password); err != nil {
		// login failures stay on the login surface with a visible error
		var reqErr *gateway.RequestError
		if errors.As(err, &reqErr) {
			fmt.Println("Login failed:", reqErr.Message)
		} else {
			fmt.Println("Login failed:", err)
		}
		return true
	}
	return true
}

func command(ctx context.Context, line string, gw *gateway.Gateway, store *session.Store, dispatcher *dispatch.Dispatcher, recorder *capture.Recorder, scanner *bufio.Scanner) bool {
	parts := strings.Fields(line)
	switch parts[0] {
	case "/quit", "/exit":
		fmt.Println("Goodbye!")
		return true

	case "/new":
		store.StartNew()
		fmt.Println("Started a new conversation.")

	case "/sessions":
		records := store.ListSessions(ctx)
		if len(records) == 0 {
			fmt.Println("No chats yet. Start a conversation!")
			break
		}
		for i, rec := range records {
			fmt.Printf("%d. %s (%d messages)\n", i+1, preview(rec.FirstQuery), len(rec.Messages))
		}

	case "/open":
		if len(parts) < 2 {
			fmt.Println("usage: /open <number from /sessions>")
			break
		}
		n, err := strconv.Atoi(parts[1])
		records := store.Summaries()
		if err != nil || n < 1 || n > len(records) {
			fmt.Println("usage: /open <number from /sessions>")
			break
		}
		store.LoadSession(records[n-1])
		for _, m := range store.Messages() {
			printMessage(m)
		}

	case "/voice":
		if err := recorder.Start(ctx); err != nil {
			// blocking user-facing alert; state stays Idle
			fmt.Println("Microphone access denied or not available")
			break
		}
		fmt.Println("Recording... press Enter to stop.")
		scanner.Scan()
		result, ok := <-recorder.Stop()
		if !ok || result.Err != nil || len(result.Asset.Data) == 0 {
			fmt.Println("Nothing captured.")
			break
		}
		ex, err := dispatcher.SendVoice(ctx, result.Asset)
		if err != nil {
			fmt.Println("Busy: wait for the current question to finish.")
			break
		}
		printExchange(ex)

	case "/logout":
		gw.Logout()
		store.StartNew()
		fmt.Println("Logged out.")
		if !login(ctx, gw, scanner) {
			return true
		}

	case "/help":
		fmt.Println("Available commands:")
		fmt.Println("  /sessions        - List your past conversations")
		fmt.Println("  /open <n>        - Reopen a past conversation")
		fmt.Println("  /new             - Start a fresh conversation")
		fmt.Println("  /voice           - Ask by voice (Enter stops recording)")
		fmt.Println("  /logout          - Log out and clear saved credentials")
		fmt.Println("  /quit, /exit     - Exit")

	default:
		fmt.Println("Unknown command. Type /help.")
	}
	return false
}

func printExchange(ex *dispatch.Exchange) {
	if ex.State == dispatch.Failed {
		if errors.Is(ex.Err, gateway.ErrUnauthorized) {
			return
		}
		fmt.Printf("mitra> Error: %v\n\n", ex.Err)
		return
	}
	fmt.Printf("mitra> %s\n", ex.Result.AnswerText)
	fmt.Println(jsonutils.ToJSON(map[string]interface{}{
		"topic":             ex.Result.DetectedTopic,
		"sentiment":         ex.Result.QuerySentiment,
		"language":          ex.Result.DetectedLanguage,
		"suggested_actions": ex.Result.SuggestedActions,
	}))
	fmt.Println()
}

func printMessage(m session.Message) {
	switch m.Kind {
	case session.KindUser:
		fmt.Printf("you> %s\n", m.Text)
	case session.KindAssistant:
		fmt.Printf("mitra> %s\n", m.Text)
	case session.KindAssistantError:
		fmt.Printf("mitra> (error) %s\n", m.Text)
	}
}

func preview(s string) string {
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
