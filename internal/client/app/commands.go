package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aussiebroadwan/rolechat/pkg/chatsdk"
)

// ErrUsage is returned when the command line cannot be understood. The usage
// text has already been printed.
var ErrUsage = errors.New("usage error")

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, app *Application, args []string) error
}

var commands = []command{
	{"login", "sign in with email and password", runLogin},
	{"register", "create an account and sign in", runRegister},
	{"logout", "forget the stored credential", runLogout},
	{"whoami", "show the signed in user", runWhoami},
	{"health", "check the backend is up", runHealth},
	{"topics", "list your topics", runTopics},
	{"messages", "show the messages of a topic", runMessages},
	{"send", "send a message, starting a topic if needed", runSend},
	{"reply", "ask a persona to reply in a topic", runReply},
}

// Run executes the command named by args[0].
func (app *Application) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		app.usage()
		return ErrUsage
	}

	for _, cmd := range commands {
		if cmd.name == args[0] {
			app.logger.Debug("running command", "command", cmd.name)
			return cmd.run(ctx, app, args[1:])
		}
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		app.usage()
		return nil
	}

	fmt.Fprintf(app.stderr, "unknown command %q\n\n", args[0])
	app.usage()
	return ErrUsage
}

func (app *Application) usage() {
	fmt.Fprintln(app.stderr, "Usage: rolechat <command> [flags]")
	fmt.Fprintln(app.stderr)
	fmt.Fprintln(app.stderr, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(app.stderr, "  %-10s %s\n", cmd.name, cmd.summary)
	}
}

func (app *Application) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("rolechat "+name, flag.ContinueOnError)
	fs.SetOutput(app.stderr)
	return fs
}

// parse wraps flag parsing so every failure maps to ErrUsage.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ErrUsage
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

func requireFlag(fs *flag.FlagSet, name, value string) error {
	if value == "" {
		fmt.Fprintf(fs.Output(), "-%s is required\n", name)
		fs.Usage()
		return ErrUsage
	}
	return nil
}

func runLogin(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag(fs, "email", *email); err != nil {
		return err
	}
	if err := requireFlag(fs, "password", *password); err != nil {
		return err
	}

	if _, err := app.sdk.Login(ctx, *email, *password); err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Signed in as %s\n", *email)
	return nil
}

func runRegister(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("register")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	nickname := fs.String("nickname", "", "display name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireFlag(fs, "email", *email); err != nil {
		return err
	}
	if err := requireFlag(fs, "password", *password); err != nil {
		return err
	}

	reg, err := app.sdk.Register(ctx, *email, *password, *nickname)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Registered user %d, signed in as %s\n", reg.UserID, *email)
	return nil
}

func runLogout(ctx context.Context, app *Application, args []string) error {
	if err := parse(app.flags("logout"), args); err != nil {
		return err
	}
	if err := app.sdk.Logout(ctx); err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, "Signed out")
	return nil
}

func runWhoami(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("whoami")
	remote := fs.Bool("remote", true, "ask the backend who the token belongs to")
	if err := parse(fs, args); err != nil {
		return err
	}

	if !app.session.IsLoggedIn() {
		fmt.Fprintln(app.stdout, "Not signed in")
		return nil
	}

	cred := app.session.Credential()

	w := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	if user := cred.User; user != nil {
		fmt.Fprintf(w, "user\t%s\n", user.Username)
		if user.Nickname != "" {
			fmt.Fprintf(w, "nickname\t%s\n", user.Nickname)
		}
	}
	if cred.RefreshToken != "" {
		fmt.Fprintln(w, "refresh token\tstored")
	} else {
		fmt.Fprintln(w, "refresh token\tnone (login required once the access token expires)")
	}

	if claims, err := chatsdk.ParseAccessClaims(cred.AccessToken); err == nil {
		if claims.Role != "" {
			fmt.Fprintf(w, "role\t%s\n", claims.Role)
		}
		if in := claims.ExpiresIn(time.Now()); in != 0 {
			fmt.Fprintf(w, "token expires\t%s\n", formatExpiry(in))
		}
	} else {
		app.logger.Debug("access token is not a readable jwt", "error", err)
	}

	if *remote {
		me, err := app.chat.Me(ctx)
		if err != nil {
			_ = w.Flush()
			return err
		}
		fmt.Fprintf(w, "user id\t%d\n", me.UserID)
	}

	return w.Flush()
}

func formatExpiry(in time.Duration) string {
	if in < 0 {
		return fmt.Sprintf("expired %s ago (refreshed on next request)", (-in).Round(time.Second))
	}
	return "in " + in.Round(time.Second).String()
}

func runHealth(ctx context.Context, app *Application, args []string) error {
	if err := parse(app.flags("health"), args); err != nil {
		return err
	}

	health, err := app.sdk.Health(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, health.Status)
	return nil
}

func runTopics(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("topics")
	limit := fs.Int("limit", 0, "show at most this many topics")
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		topics []chatsdk.Topic
		err    error
	)
	if *limit > 0 {
		topics, err = app.chat.TopicsWithLimit(ctx, *limit)
	} else {
		topics, err = app.chat.Topics(ctx)
	}
	if err != nil {
		return err
	}

	if len(topics) == 0 {
		fmt.Fprintln(app.stdout, "No topics yet")
		return nil
	}

	w := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
	for _, topic := range topics {
		fmt.Fprintf(w, "%d\t%s\t%s\n", topic.ID, topic.Title, formatTime(topic.UpdatedAt))
	}
	return w.Flush()
}

func runMessages(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("messages")
	topicID := fs.Uint64("topic", 0, "topic id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *topicID == 0 {
		return requireFlag(fs, "topic", "")
	}

	messages, err := app.chat.Messages(ctx, *topicID)
	if err != nil {
		return err
	}

	printMessages(app.stdout, messages...)
	return nil
}

func runSend(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("send")
	topicID := fs.Uint64("topic", 0, "topic id, omit to start a new topic")
	role := fs.String("role", "user", "message role")
	if err := parse(fs, args); err != nil {
		return err
	}
	content := strings.Join(fs.Args(), " ")
	if err := requireFlag(fs, "message", content); err != nil {
		return err
	}

	res, err := app.chat.SendMessage(ctx, chatsdk.SendMessageRequest{
		TopicID: *topicID,
		Role:    *role,
		Content: content,
	})
	if err != nil {
		return err
	}

	if res.NewTopic {
		fmt.Fprintf(app.stdout, "Started topic %d: %s\n", res.Topic.ID, res.Topic.Title)
	}
	printMessages(app.stdout, res.Message)
	return nil
}

func runReply(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("reply")
	topicID := fs.Uint64("topic", 0, "topic id")
	persona := fs.String("persona", "", "persona name")
	roleID := fs.String("role-id", "", "persona role id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *topicID == 0 {
		return requireFlag(fs, "topic", "")
	}
	content := strings.Join(fs.Args(), " ")
	if err := requireFlag(fs, "message", content); err != nil {
		return err
	}

	res, err := app.chat.RoleReply(ctx, chatsdk.RoleReplyRequest{
		TopicID:     *topicID,
		PersonaName: *persona,
		RoleID:      *roleID,
		Content:     content,
	})
	if err != nil {
		return err
	}

	printMessages(app.stdout, res.UserMessage, res.AssistantMessage)
	if res.AudioBase64 != "" {
		fmt.Fprintf(app.stdout, "(audio attached, %d bytes base64)\n", len(res.AudioBase64))
	}
	return nil
}

func printMessages(out io.Writer, messages ...chatsdk.Message) {
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "?"
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", formatTime(m.CreatedAt), role, m.Content)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
