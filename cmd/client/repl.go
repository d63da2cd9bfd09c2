package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"supportchat/internal/client"
)

// readPassword is swapped out in tests.
var readPassword = func() (string, error) {
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	return string(pw), err
}

var (
	promptColor    = color.New(color.FgCyan, color.Bold).SprintFunc()
	userColor      = color.New(color.FgGreen, color.Bold).SprintFunc()
	assistantColor = color.New(color.FgMagenta, color.Bold).SprintFunc()
	errorColor     = color.New(color.FgRed).SprintFunc()
	dimColor       = color.New(color.Faint).SprintFunc()
)

const helpText = `Commands:
  /signup              create an account
  /login               sign in with email and password
  /logout              forget the saved session
  /chats               list your chats
  /open <n|chat id>    switch to a chat and show its transcript
  /new                 start a new chat with the next message
  /delete <n|chat id>  delete a chat
  /help                show this help
  /quit                exit
Anything else is sent as a message to the current chat.`

type repl struct {
	session *client.Session
	in      *bufio.Reader
	out     io.Writer

	chatID string
	listed []client.ChatSummary
}

func newREPL(session *client.Session, in *bufio.Reader, out io.Writer) *repl {
	return &repl{session: session, in: in, out: out}
}

func (r *repl) run(ctx context.Context) error {
	restored, err := r.session.Restore(ctx)
	if err != nil {
		r.errorf("could not restore session: %v", err)
	}
	if restored {
		fmt.Fprintf(r.out, "Welcome back, %s.\n", r.session.User().Username)
	} else {
		fmt.Fprintln(r.out, "Not signed in. Use /login or /signup.")
	}
	fmt.Fprintln(r.out, dimColor("Type /help for commands."))

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.out, promptColor("> "))
		line, err := r.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			if quit := r.dispatch(ctx, line); quit {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (r *repl) dispatch(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "/") {
		r.send(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/signup":
		r.signup(ctx)
	case "/login":
		r.login(ctx)
	case "/logout":
		if err := r.session.Logout(ctx); err != nil {
			r.errorf("%v", err)
		}
		r.chatID, r.listed = "", nil
		fmt.Fprintln(r.out, "Logged out.")
	case "/chats":
		r.listChats(ctx)
	case "/open":
		r.open(ctx, arg)
	case "/new":
		r.chatID = ""
		fmt.Fprintln(r.out, "Your next message starts a new chat.")
	case "/delete":
		r.delete(ctx, arg)
	default:
		r.errorf("unknown command %s", cmd)
	}
	return false
}

func (r *repl) signup(ctx context.Context) {
	username := r.ask("Username: ")
	email := r.ask("Email: ")
	password, err := r.askPassword()
	if err != nil {
		r.errorf("%v", err)
		return
	}
	if err := r.session.Signup(ctx, username, email, password); err != nil {
		r.errorf("%v", err)
		return
	}
	fmt.Fprintf(r.out, "Signed up as %s.\n", r.session.User().Username)
}

func (r *repl) login(ctx context.Context) {
	email := r.ask("Email: ")
	password, err := r.askPassword()
	if err != nil {
		r.errorf("%v", err)
		return
	}
	if err := r.session.Login(ctx, email, password); err != nil {
		r.errorf("%v", err)
		return
	}
	r.chatID, r.listed = "", nil
	fmt.Fprintf(r.out, "Signed in as %s.\n", r.session.User().Username)
}

func (r *repl) send(ctx context.Context, text string) {
	res, err := r.session.Send(ctx, r.chatID, text)
	if err != nil {
		r.errorf("send failed: %v", err)
		return
	}
	r.chatID = res.ChatID
	fmt.Fprintf(r.out, "%s %s\n", assistantColor("assistant:"), res.AIResponse.Content)
}

func (r *repl) listChats(ctx context.Context) {
	chats, err := r.session.Chats(ctx)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	r.listed = chats
	if len(chats) == 0 {
		fmt.Fprintln(r.out, "No chats yet.")
		return
	}
	for i, chat := range chats {
		marker := " "
		if chat.ID == r.chatID {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s%2d. %s %s\n", marker, i+1, chat.Title,
			dimColor(fmt.Sprintf("(%d messages, %s)", chat.MessageCount, chat.UpdatedAt.Local().Format("2006-01-02 15:04"))))
	}
}

func (r *repl) open(ctx context.Context, ref string) {
	chatID := r.resolve(ref)
	if chatID == "" {
		r.errorf("usage: /open <n|chat id>")
		return
	}
	detail, err := r.session.History(ctx, chatID)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	r.chatID = detail.ID
	fmt.Fprintf(r.out, "== %s ==\n", detail.Title)
	for _, msg := range detail.Messages {
		label := userColor("you:")
		if msg.Role == "assistant" {
			label = assistantColor("assistant:")
		}
		fmt.Fprintf(r.out, "%s %s\n", label, msg.Content)
	}
}

func (r *repl) delete(ctx context.Context, ref string) {
	chatID := r.resolve(ref)
	if chatID == "" {
		r.errorf("usage: /delete <n|chat id>")
		return
	}
	if err := r.session.DeleteChat(ctx, chatID); err != nil {
		r.errorf("%v", err)
		return
	}
	if r.chatID == chatID {
		r.chatID = ""
	}
	r.listed = nil
	fmt.Fprintln(r.out, "Chat deleted.")
}

// resolve maps a 1-based index from the last /chats listing to a chat id;
// anything else is taken as an id.
func (r *repl) resolve(ref string) string {
	var n int
	if _, err := fmt.Sscanf(ref, "%d", &n); err == nil && fmt.Sprint(n) == ref {
		if n >= 1 && n <= len(r.listed) {
			return r.listed[n-1].ID
		}
		return ""
	}
	return ref
}

func (r *repl) ask(prompt string) string {
	fmt.Fprint(r.out, prompt)
	line, _ := r.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (r *repl) askPassword() (string, error) {
	fmt.Fprint(r.out, "Password: ")
	pw, err := readPassword()
	fmt.Fprintln(r.out)
	if err != nil {
		return "", fmt.Errorf("read password failed: %w", err)
	}
	return pw, nil
}

func (r *repl) errorf(format string, args ...interface{}) {
	fmt.Fprintln(r.out, errorColor(fmt.Sprintf(format, args...)))
}
