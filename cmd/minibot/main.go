package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/abhiramiramadas/minibot/internal/config"
	"github.com/abhiramiramadas/minibot/internal/logging"
	"github.com/abhiramiramadas/minibot/internal/settings"
	"github.com/abhiramiramadas/minibot/internal/store"
	"github.com/abhiramiramadas/minibot/pkg/chat"
	"github.com/abhiramiramadas/minibot/pkg/gateway"
	"github.com/abhiramiramadas/minibot/pkg/history"
	"github.com/abhiramiramadas/minibot/pkg/keys"
	"github.com/abhiramiramadas/minibot/pkg/personalize"
	"github.com/abhiramiramadas/minibot/pkg/session"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.App.Environment, cfg.App.LogFilePath)
	defer logger.Sync()

	kv, err := store.NewSQLiteStoreWithDSN(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close()

	keyStore := keys.NewStore(kv)
	seedKeys(keyStore, cfg.Keys, logger)

	sess, err := session.NewManager(kv, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open session: %v\n", err)
		os.Exit(1)
	}

	engine, err := personalize.NewEngine(sess, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build personalization engine: %v\n", err)
		os.Exit(1)
	}

	log := history.NewLog(kv, logger)
	log.Restore()

	gw := gateway.NewClient(gatewayConfig(cfg.Provider), logger)
	svc := chat.NewService(log, sess, engine, keyStore, gw, logger)
	prefs := settings.New(kv)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build renderer: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	fmt.Printf("minibot — session %s (type /help for commands)\n", sess.Token())
	if resumed := log.Len(); resumed > 0 {
		fmt.Printf("resumed conversation with %d turns\n", resumed)
	}

	repl(ctx, svc, sess, engine, keyStore, prefs, renderer)
}

func gatewayConfig(p config.ProviderConfig) gateway.Config {
	return gateway.Config{
		ChatURL:      p.ChatURL,
		ImageURL:     p.ImageURL,
		UploadURL:    p.UploadURL,
		VideoURL:     p.VideoURL,
		Timeout:      secondsOrZero(p.TimeoutSeconds),
		PollInterval: secondsOrZero(p.PollIntervalSeconds),
		PollAttempts: p.PollAttempts,
	}
}

// secondsOrZero leaves zero alone so the gateway defaults apply.
func secondsOrZero(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// seedKeys stores environment-provided keys that the user has not already
// saved interactively.
func seedKeys(ks *keys.Store, apiKeys config.APIKeys, logger *zap.Logger) {
	seed := func(kind keys.Kind, value string) {
		if value == "" || ks.IsSet(kind) {
			return
		}
		if err := ks.Save(kind, value); err != nil {
			logger.Warn("failed to seed API key", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	seed(keys.KindGemini, apiKeys.Gemini)
	seed(keys.KindHuggingFace, apiKeys.HuggingFace)
	seed(keys.KindMagicAPI, apiKeys.MagicAPI)
}

func repl(ctx context.Context, svc *chat.Service, sess *session.Manager, engine *personalize.Engine, ks *keys.Store, prefs *settings.Settings, renderer *glamour.TermRenderer) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/exit" || line == "/quit" {
			return
		}
		if strings.HasPrefix(line, "/") {
			runCommand(ctx, line, svc, sess, engine, ks, prefs)
			continue
		}

		reply, err := svc.Send(ctx, line)
		if err != nil {
			printSendError(err)
			continue
		}
		printMarkdown(renderer, reply)
	}
}

func runCommand(ctx context.Context, line string, svc *chat.Service, sess *session.Manager, engine *personalize.Engine, ks *keys.Store, prefs *settings.Settings) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		printHelp()

	case "/reset":
		if err := svc.Reset(); err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Println("conversation cleared")

	case "/personality":
		if err := svc.SetSystemInstruction(arg); err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if arg == "" {
			fmt.Println("personality reset to default; conversation cleared")
		} else {
			fmt.Println("personality updated; conversation cleared")
		}

	case "/generate":
		if arg == "" {
			fmt.Println("usage: /generate <prompt>")
			return
		}
		url, err := svc.GenerateImage(ctx, arg)
		if err != nil {
			printSendError(err)
			return
		}
		fmt.Printf("image ready: %s\n", url)

	case "/video":
		if arg == "" {
			fmt.Println("usage: /video <prompt>")
			return
		}
		fmt.Println("generating video, this can take a few minutes...")
		url, err := svc.GenerateVideo(ctx, arg)
		if err != nil {
			printSendError(err)
			return
		}
		fmt.Printf("video ready: %s\n", url)

	case "/attach":
		path, message, _ := strings.Cut(arg, " ")
		if path == "" {
			fmt.Println("usage: /attach <file> [message]")
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		reply, err := svc.SendWithAttachment(ctx, strings.TrimSpace(message),
			mimeTypeFor(path), base64.StdEncoding.EncodeToString(data))
		if err != nil {
			printSendError(err)
			return
		}
		fmt.Println(reply)

	case "/upload":
		if arg == "" {
			fmt.Println("usage: /upload <file>")
			return
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		url, err := svc.ShareFile(ctx, filepath.Base(arg), mimeTypeFor(arg), data)
		if err != nil {
			printSendError(err)
			return
		}
		fmt.Printf("uploaded: %s\n", url)

	case "/mark":
		if arg == "" {
			fmt.Println("usage: /mark <summary>")
			return
		}
		id, err := svc.MarkImportant(arg, nil)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("marked as important (%s)\n", id)

	case "/recall":
		if arg == "" {
			fmt.Println("usage: /recall <message>")
			return
		}
		relevant, err := engine.RelevantContext(arg)
		if err != nil {
			if errors.Is(err, personalize.ErrMemorySuppressed) {
				fmt.Println("conversation memory is disabled in privacy settings")
				return
			}
			fmt.Printf("error: %v\n", err)
			return
		}
		if len(relevant) == 0 {
			fmt.Println("no related conversations")
			return
		}
		for _, conv := range relevant {
			fmt.Printf("- %s [%s]\n", conv.Summary, strings.Join(conv.Tags, ", "))
		}

	case "/prefs":
		printJSON(sess.Preferences())

	case "/export":
		printJSON(sess.Export())

	case "/key":
		kindArg, value, _ := strings.Cut(arg, " ")
		runKeyCommand(ks, kindArg, strings.TrimSpace(value))

	case "/set":
		runSetCommand(prefs, arg)

	case "/clear-session":
		if err := sess.Clear(); err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if err := svc.Reset(); err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("session cleared; new session %s\n", sess.Token())

	default:
		fmt.Printf("unknown command %s (try /help)\n", cmd)
	}
}

func runKeyCommand(ks *keys.Store, kindArg, value string) {
	kind, err := keyKind(kindArg)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if value == "" {
		fmt.Printf("usage: /key %s <value>\n", kindArg)
		return
	}
	if err := ks.Save(kind, value); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%s key saved\n", kind)
}

func runSetCommand(prefs *settings.Settings, arg string) {
	name, value, _ := strings.Cut(arg, " ")
	value = strings.TrimSpace(value)

	var err error
	switch name {
	case "theme":
		err = prefs.SetTheme(value)
	case "font":
		err = prefs.SetFont(value)
	case "tts":
		err = prefs.SetTTSEnabled(value == "on")
	case "stt":
		err = prefs.SetSTTEnabled(value == "on")
	case "custom-main", "custom-bg", "custom-font-url", "custom-font-name":
		err = setCustomThemeValue(prefs, name, value)
	default:
		fmt.Println("usage: /set theme|font|tts|stt|custom-main|custom-bg|custom-font-url|custom-font-name <value>")
		return
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%s updated\n", name)
}

// setCustomThemeValue updates one custom theme field; saving any of them
// switches the active theme to custom.
func setCustomThemeValue(prefs *settings.Settings, name, value string) error {
	theme, err := prefs.CustomTheme()
	if err != nil {
		return err
	}
	switch name {
	case "custom-main":
		theme.MainColor = value
	case "custom-bg":
		theme.BgColor = value
	case "custom-font-url":
		theme.FontURL = value
	case "custom-font-name":
		theme.FontName = value
	}
	return prefs.SetCustomTheme(theme)
}

func keyKind(name string) (keys.Kind, error) {
	switch name {
	case "gemini":
		return keys.KindGemini, nil
	case "huggingface":
		return keys.KindHuggingFace, nil
	case "magicapi":
		return keys.KindMagicAPI, nil
	}
	return "", fmt.Errorf("unknown key kind %q (gemini, huggingface, magicapi)", name)
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}

func printSendError(err error) {
	var missing *chat.MissingKeyError
	switch {
	case errors.As(err, &missing):
		fmt.Printf("no %s API key configured; set one with /key %s <value>\n", missing.Kind, missing.Kind)
	case errors.Is(err, chat.ErrBusy):
		fmt.Println("still waiting on the previous request")
	default:
		fmt.Printf("error: %v\n", err)
	}
}

func printMarkdown(renderer *glamour.TermRenderer, text string) {
	out, err := renderer.Render(text)
	if err != nil {
		fmt.Println(text)
		return
	}
	fmt.Print(out)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printHelp() {
	fmt.Print(`commands:
  /personality <text>   set the AI personality (clears the conversation)
  /reset                clear the conversation
  /generate <prompt>    generate an image
  /video <prompt>       generate a video
  /attach <file> [msg]  send a message with an inline attachment
  /upload <file>        host a file and record its URL in the history
  /mark <summary>       flag this conversation as important
  /recall <message>     list flagged conversations related to a message
  /prefs                show the stored preferences
  /export               dump the session data as JSON
  /key <kind> <value>   save an API key (gemini, huggingface, magicapi)
  /set <name> <value>   interface settings (theme, font, tts, stt,
                        custom-main, custom-bg, custom-font-url, custom-font-name)
  /clear-session        wipe the session and start a new one
  /exit                 quit
`)
}
