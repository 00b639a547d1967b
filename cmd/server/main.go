package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/hertz/pkg/app/server"

	chatws "chatcraft/internal/adapter/chat/ws"
	"chatcraft/internal/adapter/eventlog"
	httpadapter "chatcraft/internal/adapter/http"
	metricsinmem "chatcraft/internal/adapter/metrics/inmemory"
	gormrepo "chatcraft/internal/adapter/repo/gorm"
	"chatcraft/internal/adapter/repo/memory"
	"chatcraft/internal/adapter/repo/yamlfile"
	"chatcraft/internal/adapter/world/sim"
	"chatcraft/internal/app/action"
	"chatcraft/internal/app/binding"
	"chatcraft/internal/app/dispatch"
	"chatcraft/internal/app/link"
	"chatcraft/internal/app/npctask"
	"chatcraft/internal/app/ports"
	"chatcraft/internal/domain/stream"
	"chatcraft/internal/domain/world"
)

type config struct {
	HTTPAddr      string `env:"CHATCRAFT_HTTP_ADDR" envDefault:":8080"`
	DBDSN         string `env:"CHATCRAFT_DB_DSN"`
	MigrationsDir string `env:"CHATCRAFT_MIGRATIONS_DIR" envDefault:"./migrations"`

	BindingsPath string `env:"CHATCRAFT_BINDINGS_PATH" envDefault:"./bindings.yml"`
	LinksPath    string `env:"CHATCRAFT_LINKS_PATH" envDefault:"./links.yml"`
	AnchorsPath  string `env:"CHATCRAFT_ANCHORS_PATH" envDefault:"./anchors.yml"`
	EventLogDir  string `env:"CHATCRAFT_EVENTLOG_DIR"`

	HookSecret string `env:"CHATCRAFT_HOOK_SECRET"`

	ChatURL     string `env:"CHATCRAFT_CHAT_URL"`
	ChatToken   string `env:"CHATCRAFT_CHAT_TOKEN"`
	ChatNick    string `env:"CHATCRAFT_CHAT_NICK" envDefault:"chatcraft"`
	ChatChannel string `env:"CHATCRAFT_CHAT_CHANNEL"`

	WorldID        string `env:"CHATCRAFT_WORLD_ID" envDefault:"overworld"`
	ControlCommand string `env:"CHATCRAFT_CONTROL_COMMAND" envDefault:"cc"`
	Profession     string `env:"CHATCRAFT_AGENT_PROFESSION"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	sched := sim.NewScheduler()
	worldSim := sim.NewWorld(sched, sim.Config{DefaultWorldID: cfg.WorldID})
	sched.Start()
	defer sched.Stop()

	bindings := binding.NewStore()
	reload := func(ctx context.Context) error {
		raw, err := os.ReadFile(cfg.BindingsPath)
		if err != nil {
			return fmt.Errorf("read bindings: %w", err)
		}
		return bindings.LoadYAML(raw)
	}
	if err := reload(context.Background()); err != nil {
		log.Printf("bindings: %v (starting with an empty set)", err)
	}

	journal := mustBuildJournal(cfg)
	metrics := metricsinmem.NewRecorder()

	links := &link.Service{
		Repo:       yamlfile.NewLinkRepo(cfg.LinksPath),
		World:      worldSim,
		Sched:      sched,
		Profession: world.Profession(cfg.Profession),
		Now:        time.Now,
	}
	anchors := &npctask.AnchorPicker{Repo: yamlfile.NewAnchorRepo(cfg.AnchorsPath)}

	aggro := &npctask.ChaseService{World: worldSim, Sched: sched, Links: links}
	swarm := &npctask.ChaseService{World: worldSim, Sched: sched, Links: links}
	attack := &npctask.AttackService{World: worldSim, Sched: sched, Links: links}
	duel := &npctask.DuelService{World: worldSim, Sched: sched, Links: links, Anchors: anchors}

	var capture *eventlog.Writer
	if cfg.EventLogDir != "" {
		capture = eventlog.NewWriter(cfg.EventLogDir, "events")
		defer capture.Close()
	}

	var replier ports.Replier
	var chat *chatws.Client
	var commands *dispatch.CommandDispatcher
	if cfg.ChatURL != "" {
		chat = chatws.NewClient(chatws.Config{
			URL:     cfg.ChatURL,
			Token:   cfg.ChatToken,
			Nick:    cfg.ChatNick,
			Channel: cfg.ChatChannel,
		}, func(id stream.Identity, channel, text string) {
			logEvent(sched, capture, eventlog.Entry{
				Kind:     "chat",
				Channel:  channel,
				UserID:   id.UserID,
				UserName: id.DisplayName,
				Text:     text,
			})
			ensurePresence(sched, worldSim, id, cfg.WorldID)
			commands.Dispatch(context.Background(), id, channel, text)
		})
		replier = chat
	} else {
		log.Println("chat: CHATCRAFT_CHAT_URL unset, replies go to the process log")
		replier = logReplier{}
	}

	registry := action.NewRegistry(action.Builtins(action.Env{
		World:          worldSim,
		Links:          links,
		Aggro:          aggro,
		Swarm:          swarm,
		Attack:         attack,
		Duel:           duel,
		Anchors:        anchors,
		Replier:        replier,
		DefaultWorldID: cfg.WorldID,
	})...)

	ex := dispatch.Executor{
		Registry: registry,
		Sched:    sched,
		Replier:  replier,
		Journal:  journal,
		Metrics:  metrics,
		Now:      time.Now,
	}
	control := dispatch.ControlCommand(cfg.ControlCommand, dispatch.ControlDeps{
		Registry: registry,
		Replier:  replier,
		Reload:   reload,
	})
	commands = dispatch.NewCommandDispatcher(ex, bindings, control)
	redeems := dispatch.NewRedeemDispatcher(ex, bindings)

	if chat != nil {
		chat.Start()
		defer chat.Close()
	}

	h := httpadapter.Handler{
		Redeems:    capturedRedeems{sched: sched, capture: capture, next: redeems},
		Journal:    journal,
		KPI:        metrics,
		Reload:     reload,
		HookSecret: cfg.HookSecret,
	}
	s := server.Default(server.WithHostPorts(cfg.HTTPAddr))
	h.RegisterRoutes(s)

	log.Printf("chatcraft listening on %s (channel #%s)", cfg.HTTPAddr, cfg.ChatChannel)
	s.Spin()
}

func mustBuildJournal(cfg config) ports.JournalRepository {
	if cfg.DBDSN == "" {
		log.Println("journal: CHATCRAFT_DB_DSN unset, keeping an in-memory tail")
		return memory.NewJournalRepo(0)
	}
	db, err := gormrepo.OpenPostgres(cfg.DBDSN)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gormrepo.ApplyMigrations(context.Background(), db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	return gormrepo.NewJournalRepo(db)
}

// ensurePresence registers a chatter as a world participant at the default
// spawn the first time they speak.
func ensurePresence(sched *sim.Scheduler, w *sim.World, id stream.Identity, worldID string) {
	sched.Run(func() {
		if _, ok := w.PresentParticipant(id.UserID); ok {
			return
		}
		w.Join(ports.Participant{
			UserID:      id.UserID,
			DisplayName: id.DisplayName,
			Location:    world.Location{WorldID: worldID, Y: 64},
		})
	})
}

func logEvent(sched *sim.Scheduler, capture *eventlog.Writer, e eventlog.Entry) {
	if capture == nil {
		return
	}
	sched.RunAsync(func() {
		if err := capture.Write(e); err != nil {
			log.Printf("eventlog: %v", err)
		}
	})
}

// capturedRedeems tees raw redemption payloads into the event log before
// handing them to the dispatcher.
type capturedRedeems struct {
	sched   *sim.Scheduler
	capture *eventlog.Writer
	next    *dispatch.RedeemDispatcher
}

func (c capturedRedeems) DispatchRaw(ctx context.Context, p dispatch.Payload) {
	logEvent(c.sched, c.capture, eventlog.Entry{Kind: "redemption", Payload: map[string]any(p)})
	c.next.DispatchRaw(ctx, p)
}

// logReplier stands in for chat when no connection is configured.
type logReplier struct{}

func (logReplier) Reply(channel, message string) {
	log.Printf("reply %s: %s", channel, message)
}
