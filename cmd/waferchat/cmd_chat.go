package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/user/waferchat/internal/runtime"
	"github.com/user/waferchat/internal/types"
	"github.com/user/waferchat/pkg/llm"
)

var (
	chatSession     string
	chatAutoApprove bool
)

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session key to resume (default: a new session)")
	chatCmd.Flags().BoolVar(&chatAutoApprove, "yes", false, "approve every tool call without asking")
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

const chatHelp = `Commands:
  /edit <text>   replace your last message and resend
  /history       print the conversation
  /quit          exit`

type chatSessionState struct {
	a        *app
	key      types.SessionKey
	renderer *glamour.TermRenderer
	scanner  *bufio.Scanner
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.gateway.Start(ctx)
	defer a.gateway.Stop()

	key := types.NewSessionKey("cli")
	if chatSession != "" {
		if key, err = types.ParseSessionKey(chatSession); err != nil {
			return err
		}
	}
	s := &chatSessionState{
		a:        a,
		key:      key,
		renderer: newRenderer(),
		scanner:  bufio.NewScanner(os.Stdin),
	}
	s.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Println(titleStyle.Render("waferchat") + infoStyle.Render(fmt.Sprintf(" %s · session %s · /help", cfg.LLM.Model, key)))
	if chatSession != "" {
		s.printHistory(ctx)
	}

	for {
		fmt.Print(userLabelStyle.Render("You") + " ")
		if !s.scanner.Scan() {
			fmt.Println()
			return s.scanner.Err()
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		var (
			res *runtime.Result
			err error
		)
		switch {
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/help":
			fmt.Println(chatHelp)
			continue
		case line == "/history":
			s.printHistory(ctx)
			continue
		case strings.HasPrefix(line, "/edit "):
			res, err = s.editLast(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/edit ")))
		default:
			res, err = a.gateway.Send(ctx, key, line)
		}

		s.handle(ctx, res, err)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// handle prints a result and walks the user through any pending tool
// calls until none remain.
func (s *chatSessionState) handle(ctx context.Context, res *runtime.Result, err error) {
	for {
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				fmt.Println(errorStyle.Render("Error: " + chatError(err)))
			}
			return
		}
		for _, m := range res.Messages {
			if m.Role == llm.RoleAssistant || m.Role == llm.RoleTool {
				printMessage(s.renderer, m)
			}
		}
		if len(res.Pending) == 0 {
			return
		}

		tc := res.Pending[0]
		fmt.Println(describeCall(tc))
		if s.confirm("Run this tool?") {
			res, err = s.a.gateway.Approve(ctx, s.key, tc.ID)
		} else {
			res, err = s.a.gateway.Reject(ctx, s.key, tc.ID)
		}
	}
}

func (s *chatSessionState) confirm(question string) bool {
	if chatAutoApprove {
		return true
	}
	fmt.Print(toolNameStyle.Render(question) + " [y/N] ")
	if !s.scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(s.scanner.Text()))
	return answer == "y" || answer == "yes"
}

func (s *chatSessionState) editLast(ctx context.Context, text string) (*runtime.Result, error) {
	if text == "" {
		return nil, fmt.Errorf("usage: /edit <text>")
	}
	sess, err := s.a.sessions.GetByKey(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("nothing to edit yet")
	}
	msgs, err := s.a.sessions.Messages(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return s.a.gateway.Edit(ctx, s.key, msgs[i].ID, text)
		}
	}
	return nil, fmt.Errorf("nothing to edit yet")
}

func (s *chatSessionState) printHistory(ctx context.Context) {
	sess, err := s.a.sessions.GetByKey(ctx, s.key)
	if err != nil {
		return
	}
	msgs, err := s.a.sessions.Messages(ctx, sess.ID)
	if err != nil {
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
		return
	}
	fmt.Println(titleStyle.Render(sess.Title))
	for _, m := range msgs {
		printMessage(s.renderer, m)
	}
}

func chatError(err error) string {
	var ae *llm.AuthenticationError
	if errors.As(err, &ae) {
		return ae.Error()
	}
	var pe *llm.PreconditionError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	return err.Error()
}
