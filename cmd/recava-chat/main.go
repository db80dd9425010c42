package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recava/recava-server/internal/config"
	"github.com/recava/recava-server/internal/infrastructure/logger"
	"github.com/recava/recava-server/internal/widget/controller"
	"github.com/recava/recava-server/internal/widget/conversation"
	"github.com/recava/recava-server/internal/widget/environment"
	"github.com/recava/recava-server/internal/widget/identity"
	"github.com/recava/recava-server/internal/widget/orchestrator"
	"github.com/recava/recava-server/internal/widget/session"
)

type chatOptions struct {
	identityBaseURL  string
	identityTokenURL string
	identityAPIKey   string

	hostname  string
	probeURL  string
	projectID string

	localAdvisor string
	localAuditor string
	localHistory string
	devAdvisor   string
	devAuditor   string
	devHistory   string
	prodAdvisor  string
	prodAuditor  string
	prodHistory  string

	email    string
	password string
	register bool
}

func main() {
	opts := chatOptions{}

	rootCmd := &cobra.Command{
		Use:   "recava-chat",
		Short: "Terminal client for the Recava sustainability assistant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.identityBaseURL, "identity-url", "https://identitytoolkit.googleapis.com/v1", "identity provider base URL")
	flags.StringVar(&opts.identityTokenURL, "identity-token-url", "https://securetoken.googleapis.com/v1", "identity provider token URL")
	flags.StringVar(&opts.identityAPIKey, "identity-api-key", os.Getenv("RECAVA_IDENTITY_API_KEY"), "identity provider API key")

	flags.StringVar(&opts.hostname, "hostname", "terminal", "hostname reported for environment selection")
	flags.StringVar(&opts.probeURL, "probe-url", "https://recava.web.app/__/firebase/init.json", "hosting-config probe URL")
	flags.StringVar(&opts.projectID, "project-id", "recava-prod", "project id identifying the production deployment")

	flags.StringVar(&opts.localAdvisor, "local-advisor-url", "http://localhost:8080/chat_assistant", "local advisor endpoint")
	flags.StringVar(&opts.localAuditor, "local-auditor-url", "http://localhost:8080/chat_auditor", "local auditor endpoint")
	flags.StringVar(&opts.localHistory, "local-history-url", "http://localhost:8080/chat_history", "local history endpoint")
	flags.StringVar(&opts.devAdvisor, "dev-advisor-url", "https://api-dev.recava.app/chat_assistant", "development advisor endpoint")
	flags.StringVar(&opts.devAuditor, "dev-auditor-url", "https://api-dev.recava.app/chat_auditor", "development auditor endpoint")
	flags.StringVar(&opts.devHistory, "dev-history-url", "https://api-dev.recava.app/chat_history", "development history endpoint")
	flags.StringVar(&opts.prodAdvisor, "prod-advisor-url", "https://api.recava.app/chat_assistant", "production advisor endpoint")
	flags.StringVar(&opts.prodAuditor, "prod-auditor-url", "https://api.recava.app/chat_auditor", "production auditor endpoint")
	flags.StringVar(&opts.prodHistory, "prod-history-url", "https://api.recava.app/chat_history", "production history endpoint")

	flags.StringVar(&opts.email, "email", "", "sign in with this email on start")
	flags.StringVar(&opts.password, "password", os.Getenv("RECAVA_PASSWORD"), "password for --email")
	flags.BoolVar(&opts.register, "register", false, "create the account instead of signing in")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runChat(ctx context.Context, opts chatOptions) error {
	log := logger.New(&config.Config{ServiceName: "recava-chat", LogLevel: "warn", Environment: "cli"})

	provider := identity.NewClient(identity.Config{
		BaseURL:  opts.identityBaseURL,
		TokenURL: opts.identityTokenURL,
		APIKey:   opts.identityAPIKey,
	}, log)
	gate := session.NewGate(provider, log)

	resolver := environment.NewResolver(environment.Config{
		Hostname:            opts.hostname,
		ProbeURL:            opts.probeURL,
		ProductionProjectID: opts.projectID,
		Local:               environment.Endpoints{Advisor: opts.localAdvisor, Auditor: opts.localAuditor, History: opts.localHistory},
		Dev:                 environment.Endpoints{Advisor: opts.devAdvisor, Auditor: opts.devAuditor, History: opts.devHistory},
		Production:          environment.Endpoints{Advisor: opts.prodAdvisor, Auditor: opts.prodAuditor, History: opts.prodHistory},
	}, log)

	renderer := newTerminalRenderer(os.Stdout)
	store := conversation.NewStore()
	ctrl := controller.New(renderer, gate, orchestrator.NewClient(log), resolver, store, log)

	// Every identity transition restarts the conversation from scratch.
	gate.OnChange(func(state session.State, s *session.Session) {
		ctrl.ResetSession()
		switch state {
		case session.StateVerified:
			renderer.ShowStatus("Sesión iniciada como " + s.Email)
		case session.StateUnverified:
			renderer.ShowVerifyBanner()
		case session.StateSignedOut:
			renderer.ShowStatus("Sesión cerrada")
		}
	})

	if opts.email != "" {
		var err error
		if opts.register {
			err = gate.Register(ctx, opts.email, opts.password)
		} else {
			err = gate.SignIn(ctx, opts.email, opts.password)
		}
		if err != nil {
			return err
		}
	}

	repl := &chatREPL{gate: gate, ctrl: ctrl, renderer: renderer}
	return repl.run(ctx)
}

// chatREPL owns the interactive loop: plain lines go to the assistant,
// slash commands drive session and mode changes.
type chatREPL struct {
	gate     *session.Gate
	ctrl     *controller.Controller
	renderer *terminalRenderer

	summaries []conversation.Summary
}

func (r *chatREPL) run(ctx context.Context) error {
	r.renderer.ShowStatus("Comandos: /login correo contraseña, /register correo contraseña, /mode asesor|auditor, /history, /open N, /verify, /resend, /reset, /logout, /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			r.ctrl.SendMessage(ctx, line)
			continue
		}
		if done := r.command(ctx, line); done {
			return nil
		}
	}
}

func (r *chatREPL) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/login":
		if len(args) != 2 {
			r.renderer.ShowStatus("Uso: /login correo contraseña")
			return false
		}
		if err := r.gate.SignIn(ctx, args[0], args[1]); err != nil {
			r.renderer.ShowStatus(err.Error())
		}

	case "/register":
		if len(args) != 2 {
			r.renderer.ShowStatus("Uso: /register correo contraseña")
			return false
		}
		if err := r.gate.Register(ctx, args[0], args[1]); err != nil {
			r.renderer.ShowStatus(err.Error())
		}

	case "/logout":
		r.gate.SignOut()

	case "/mode":
		if len(args) != 1 {
			r.renderer.ShowStatus("Uso: /mode asesor|auditor")
			return false
		}
		switch strings.ToLower(args[0]) {
		case "asesor", "advisor":
			r.ctrl.SelectMode(conversation.ModeAdvisor)
		case "auditor":
			r.ctrl.SelectMode(conversation.ModeAuditor)
		default:
			r.renderer.ShowStatus("Modo desconocido: " + args[0])
		}

	case "/history":
		r.summaries = r.ctrl.RecentConversations(ctx, 20)
		for i, s := range r.summaries {
			label := s.Summary
			if label == "" {
				label = s.ThreadID
			}
			r.renderer.ShowStatus(fmt.Sprintf("%d. %s (%s)", i+1, label, s.LastTimestamp))
		}

	case "/open":
		if len(args) != 1 {
			r.renderer.ShowStatus("Uso: /open N")
			return false
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(r.summaries) {
			r.renderer.ShowStatus("Primero lista el historial con /history y elige un número válido.")
			return false
		}
		r.ctrl.ResumeThread(ctx, r.summaries[n-1])

	case "/verify":
		verified, err := r.gate.RecheckVerification(ctx)
		switch {
		case err != nil:
			r.renderer.ShowStatus(err.Error())
		case verified:
			r.renderer.ShowStatus("Correo verificado.")
		default:
			r.renderer.ShowStatus("El correo sigue sin verificar.")
		}

	case "/resend":
		if err := r.gate.ResendVerification(ctx); err != nil {
			r.renderer.ShowStatus(err.Error())
		} else {
			r.renderer.ShowStatus("Correo de verificación reenviado.")
		}

	case "/reset":
		r.ctrl.ResetSession()
		r.renderer.ShowStatus("Conversación reiniciada.")

	default:
		r.renderer.ShowStatus("Comando desconocido: " + cmd)
	}
	return false
}
