package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"peer-chat/internal/config"
	"peer-chat/internal/db"
	"peer-chat/internal/domain"
	"peer-chat/internal/service"
)

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	directory := domain.NewDirectory(cfg.Users)
	store, closeStore := db.OpenStore(ctx, cfg, logger)
	defer closeStore()

	chatSvc := service.NewChatService(logger, directory, store, store, service.NewMemoryRateLimiter(cfg.SendRateWindow, cfg.SendRateLimit))

	if err := run(ctx, bufio.NewReader(os.Stdin), os.Stdout, chatSvc); err != nil && !errors.Is(err, io.EOF) {
		log.Fatal(err)
	}
}

func run(ctx context.Context, reader *bufio.Reader, out io.Writer, chatSvc *service.ChatService) error {
	for {
		fmt.Fprintln(out, "===== Chat =====")
		users := chatSvc.Users()
		for i, u := range users {
			fmt.Fprintf(out, "[%d] %s\n", i+1, u)
		}
		fmt.Fprintln(out, "[Q] Salir")
		fmt.Fprint(out, "Quien eres: ")
		choice, err := readLine(reader)
		if err != nil {
			return err
		}
		if strings.EqualFold(choice, "Q") {
			return nil
		}
		viewer, ok := pick(users, choice)
		if !ok {
			fmt.Fprintln(out, "User not found!")
			continue
		}
		if err := runUserMenu(ctx, reader, out, chatSvc, viewer); err != nil {
			return err
		}
	}
}

func runUserMenu(ctx context.Context, reader *bufio.Reader, out io.Writer, chatSvc *service.ChatService, viewer string) error {
	for {
		view, err := chatSvc.Conversation(ctx, viewer, "")
		if err != nil {
			return fmt.Errorf("cargar notificaciones: %w", err)
		}
		fmt.Fprintf(out, "\n--- %s (%d sin leer) ---\n", viewer, len(view.Notifications))
		fmt.Fprintln(out, "[1] Ver notificaciones")
		fmt.Fprintln(out, "[2] Abrir conversacion")
		fmt.Fprintln(out, "[3] Marcar todas como leidas")
		fmt.Fprintln(out, "[4] Cambiar usuario")
		fmt.Fprint(out, "Selecciona una opcion: ")

		line, err := readLine(reader)
		if err != nil {
			return err
		}
		switch line {
		case "1":
			printNotifications(out, view.Notifications)
		case "2":
			for i, u := range view.OtherUsers {
				fmt.Fprintf(out, "[%d] %s\n", i+1, u)
			}
			fmt.Fprint(out, "Con quien: ")
			choice, err := readLine(reader)
			if err != nil {
				return err
			}
			peer, ok := pick(view.OtherUsers, choice)
			if !ok {
				fmt.Fprintln(out, "Seleccion invalida.")
				continue
			}
			if err := chatFlow(ctx, reader, out, chatSvc, viewer, peer); err != nil {
				fmt.Fprintf(out, "Error en chat: %v\n", err)
			}
		case "3":
			if err := chatSvc.ClearNotifications(ctx, viewer); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		case "4":
			return nil
		default:
			fmt.Fprintln(out, "Opcion invalida.")
		}
	}
}

func chatFlow(ctx context.Context, reader *bufio.Reader, out io.Writer, chatSvc *service.ChatService, viewer, peer string) error {
	view, err := chatSvc.Conversation(ctx, viewer, peer)
	if err != nil {
		return err
	}
	if err := chatSvc.AcknowledgeConversation(ctx, viewer, peer); err != nil {
		return err
	}
	for _, m := range view.Messages {
		printMessage(out, m)
	}

	fmt.Fprintln(out, "---- Modo Chat (escribe 'salir' para terminar chat) ----")
	for {
		fmt.Fprint(out, "Tu > ")
		text, err := readLine(reader)
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit") {
			return nil
		}
		if err := chatSvc.Send(ctx, viewer, peer, text); err != nil {
			fmt.Fprintf(out, "error enviando mensaje: %v\n", err)
		}
	}
}

func printNotifications(out io.Writer, notifs []domain.Notification) {
	if len(notifs) == 0 {
		fmt.Fprintln(out, "Sin notificaciones.")
		return
	}
	for _, n := range notifs {
		fmt.Fprintf(out, "* %s %s: %s\n", n.CreatedAt.Format("2006-01-02 15:04"), n.FromUser, n.Body)
	}
}

func printMessage(out io.Writer, m domain.Message) {
	fmt.Fprintf(out, "[%s] %s > %s\n", m.CreatedAt.Format("15:04"), m.FromUser, m.Body)
}

// pick acepta un indice 1-based o el nombre exacto.
func pick(options []string, choice string) (string, bool) {
	if idx, err := strconv.Atoi(choice); err == nil {
		if idx < 1 || idx > len(options) {
			return "", false
		}
		return options[idx-1], true
	}
	for _, o := range options {
		if o == choice {
			return o, true
		}
	}
	return "", false
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
